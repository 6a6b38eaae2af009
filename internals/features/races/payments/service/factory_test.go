package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"racehub_backend/internals/configs"
	qrSvc "racehub_backend/internals/features/races/qrcodes/service"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

func TestBuildQRIssuer(t *testing.T) {
	tests := []struct {
		name    string
		storage string
		format  string
		wantErr bool
	}{
		{"dataurl png", "dataurl", "png", false},
		{"default storage", "", "webp", false},
		{"unknown storage", "s3", "png", true},
		{"unknown format", "dataurl", "gif", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iss, err := buildQRIssuer(configs.Config{QRStorage: tt.storage, QRImageFormat: tt.format, QRSize: 64})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			url, err := iss.Issue(context.Background(), qrSvc.NewPayload(uuid.New(), uuid.New(), "Rina", "001"))
			if err != nil || url == "" {
				t.Fatalf("Issue = %q, %v", url, err)
			}
		})
	}
}

func TestBuild_WithoutProviderCredentials(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "factory.db")), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&regModel.Registration{}); err != nil {
		t.Fatal(err)
	}

	mod, err := Build(configs.Config{PaymentProvider: "xendit", QRImageFormat: "png", QRSize: 64}, db, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if mod.Provider != nil {
		t.Fatalf("provider = %v, want nil without XENDIT_SECRET_KEY", mod.Provider)
	}
	if mod.Reconciler.Guard() != GuardConditional {
		t.Fatalf("guard = %s", mod.Reconciler.Guard())
	}

	// Sync tanpa provider: registrasi tidak ada tetap 404, bukan unavailable
	_, err = mod.Reconciler.Sync(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Sync err = %v, want ErrNotFound", err)
	}
}

func TestBuild_RejectsBadModes(t *testing.T) {
	for _, cfg := range []configs.Config{
		{BibCounterMode: "random"},
		{ReconcileGuard: "optimistic"},
	} {
		if _, err := Build(cfg, nil, nil); err == nil {
			t.Fatalf("Build(%+v) should fail", cfg)
		}
	}
}
