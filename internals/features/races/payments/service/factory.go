package service

import (
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"racehub_backend/internals/configs"
	bibSvc "racehub_backend/internals/features/races/bibs/service"
	"racehub_backend/internals/features/races/ledger"
	"racehub_backend/internals/features/races/payments/gateway"
	qrSvc "racehub_backend/internals/features/races/qrcodes/service"
	ossHelper "racehub_backend/internals/helpers/oss"
)

// Module is the reconcile stack shared by the HTTP server, the sweeper and racectl.
type Module struct {
	Ledger     *ledger.GormLedger
	Reconciler *Reconciler
	Events     *GormEventLog
	Provider   gateway.Provider // nil kalau kredensial provider belum diset
}

func Build(cfg configs.Config, db *gorm.DB, rdb *redis.Client) (*Module, error) {
	counterMode, err := bibSvc.ParseCounterMode(cfg.BibCounterMode)
	if err != nil {
		return nil, err
	}
	guard, err := ParseGuardMode(cfg.ReconcileGuard)
	if err != nil {
		return nil, err
	}

	provider, err := gateway.New(gateway.Config{
		Provider:          cfg.PaymentProvider,
		XenditSecretKey:   cfg.XenditSecretKey,
		MidtransServerKey: cfg.MidtransServerKey,
		MidtransUseProd:   cfg.MidtransUseProd,
	})
	if err != nil {
		log.Printf("[WARN] payment provider disabled: %v (sync akan selalu pending)", err)
		provider = nil
	}

	issuer, err := buildQRIssuer(cfg)
	if err != nil {
		return nil, err
	}

	var locker Locker
	if rdb != nil {
		locker = NewRedisLocker(rdb, "racehub:lock:")
	}

	l := ledger.NewGormLedger(db)
	rec := NewReconciler(l, bibSvc.NewAllocator(counterMode), issuer, provider, locker, Options{
		Guard:           guard,
		ProviderTimeout: cfg.PaymentProviderTimeout,
	})

	log.Printf("[INFO] reconcile stack: guard=%s counter=%s provider=%s qr=%s/%s lock=%v",
		guard, counterMode, providerName(provider), cfg.QRStorage, cfg.QRImageFormat, locker != nil)

	return &Module{Ledger: l, Reconciler: rec, Events: NewGormEventLog(db), Provider: provider}, nil
}

func buildQRIssuer(cfg configs.Config) (*qrSvc.Issuer, error) {
	format, err := qrSvc.ParseImageFormat(cfg.QRImageFormat)
	if err != nil {
		return nil, err
	}
	enc := qrSvc.NewEncoder(cfg.QRSize, format)

	switch cfg.QRStorage {
	case "", "dataurl":
		return qrSvc.NewIssuer(enc, qrSvc.DataURLStore{}), nil
	case "oss":
		svc, err := ossHelper.NewOSSServiceFromEnv(cfg.OSSPrefix)
		if err != nil {
			return nil, fmt.Errorf("qr oss store: %w", err)
		}
		return qrSvc.NewIssuer(enc, qrSvc.OSSStore{OSS: svc}), nil
	}
	return nil, fmt.Errorf("unknown QR_STORAGE %q", cfg.QRStorage)
}

func providerName(p gateway.Provider) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}
