package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	bibModel "racehub_backend/internals/features/races/bibs/model"
	eventModel "racehub_backend/internals/features/races/events/model"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&eventModel.EventCategory{}, &regModel.Registration{}, &bibModel.BibCounter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedRegistration(t *testing.T, db *gorm.DB, eventID, categoryID uuid.UUID, status regModel.RegistrationStatus, vanity string) uuid.UUID {
	t.Helper()
	r := regModel.Registration{
		RegistrationEventID:    eventID,
		RegistrationCategoryID: categoryID,
		RegistrationUserID:     uuid.New(),
		RegistrationRunnerName: "Andi",
		RegistrationStatus:     status,
	}
	if vanity != "" {
		r.RegistrationVanityNumber = &vanity
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	return r.RegistrationID
}

func TestGormLedger_ReadRegistration(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()

	id := seedRegistration(t, db, uuid.New(), uuid.New(), regModel.StatusPending, "")
	got, err := l.ReadRegistration(ctx, id)
	if err != nil {
		t.Fatalf("ReadRegistration: %v", err)
	}
	if got.RegistrationID != id || !got.IsPending() {
		t.Errorf("got %+v", got)
	}

	if _, err := l.ReadRegistration(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing registration err = %v, want ErrNotFound", err)
	}
}

func TestGormLedger_ReadEventCategory(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()

	cat := eventModel.EventCategory{
		EventCategoryEventID:          uuid.New(),
		EventCategoryName:             "Half Marathon",
		EventCategoryRaceNumberFormat: "21K-{number}",
	}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	got, err := l.ReadEventCategory(ctx, cat.EventCategoryEventID, cat.EventCategoryID)
	if err != nil {
		t.Fatalf("ReadEventCategory: %v", err)
	}
	if got.RaceNumberFormat() != "21K-{number}" {
		t.Errorf("format = %q", got.RaceNumberFormat())
	}

	// kategori milik event lain
	if _, err := l.ReadEventCategory(ctx, uuid.New(), cat.EventCategoryID); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong event err = %v, want ErrNotFound", err)
	}
}

func TestGormLedger_IncrementBibCounter(t *testing.T) {
	l := NewGormLedger(openTestDB(t))
	ctx := context.Background()
	eventID, categoryID := uuid.New(), uuid.New()

	for want := int64(1); want <= 3; want++ {
		got, err := l.IncrementBibCounter(ctx, eventID, categoryID)
		if err != nil {
			t.Fatalf("increment %d: %v", want, err)
		}
		if got != want {
			t.Errorf("increment = %d, want %d", got, want)
		}
	}

	// pasangan lain punya counter sendiri
	got, err := l.IncrementBibCounter(ctx, eventID, uuid.New())
	if err != nil || got != 1 {
		t.Errorf("other pair = %d, %v; want 1", got, err)
	}
}

func TestGormLedger_TransactionRollsBackCounter(t *testing.T) {
	l := NewGormLedger(openTestDB(t))
	ctx := context.Background()
	eventID, categoryID := uuid.New(), uuid.New()

	if _, err := l.IncrementBibCounter(ctx, eventID, categoryID); err != nil {
		t.Fatalf("seed increment: %v", err)
	}

	boom := errors.New("abort")
	err := l.Transaction(ctx, func(tx Ledger) error {
		n, err := tx.IncrementBibCounter(ctx, eventID, categoryID)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("in-tx count = %d, want 2", n)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction err = %v", err)
	}

	n, err := l.IncrementBibCounter(ctx, eventID, categoryID)
	if err != nil || n != 2 {
		t.Errorf("after rollback increment = %d, %v; want 2", n, err)
	}
}

func TestGormLedger_WriteRegistrationPaidConditional(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()
	id := seedRegistration(t, db, uuid.New(), uuid.New(), regModel.StatusPending, "")

	w := PaidWrite{
		RaceNumber: "42K-001",
		QRCodeURL:  "data:image/png;base64,AAAA",
		PaymentID:  "inv-1",
		PaidAt:     time.Now(),
		IfStatus:   regModel.StatusPending,
	}
	if err := l.WriteRegistrationPaid(ctx, id, w); err != nil {
		t.Fatalf("first write: %v", err)
	}

	w.RaceNumber = "42K-002"
	if err := l.WriteRegistrationPaid(ctx, id, w); !errors.Is(err, ErrConflict) {
		t.Fatalf("second conditional write err = %v, want ErrConflict", err)
	}

	got, err := l.ReadRegistration(ctx, id)
	if err != nil {
		t.Fatalf("ReadRegistration: %v", err)
	}
	if got.RaceNumber() != "42K-001" || !got.IsPaid() || got.RegistrationPaymentStatus != regModel.PaymentPaid {
		t.Errorf("after conflict: race=%q status=%s/%s", got.RaceNumber(), got.RegistrationStatus, got.RegistrationPaymentStatus)
	}
	if got.RegistrationXenditPaymentID == nil || *got.RegistrationXenditPaymentID != "inv-1" {
		t.Errorf("payment id = %v", got.RegistrationXenditPaymentID)
	}
}

func TestGormLedger_WriteRegistrationPaidUnconditional(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()
	id := seedRegistration(t, db, uuid.New(), uuid.New(), regModel.StatusPending, "")

	for _, race := range []string{"001", "002"} {
		if err := l.WriteRegistrationPaid(ctx, id, PaidWrite{RaceNumber: race, QRCodeURL: "qr", PaidAt: time.Now()}); err != nil {
			t.Fatalf("write %s: %v", race, err)
		}
	}
	got, _ := l.ReadRegistration(ctx, id)
	if got.RaceNumber() != "002" {
		t.Errorf("race = %q, want last write 002", got.RaceNumber())
	}

	if err := l.WriteRegistrationPaid(ctx, uuid.New(), PaidWrite{RaceNumber: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestGormLedger_CountPaidNonVanity(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	eventID, categoryID := uuid.New(), uuid.New()

	seedRegistration(t, db, eventID, categoryID, regModel.StatusPaid, "")
	seedRegistration(t, db, eventID, categoryID, regModel.StatusPaid, "")
	seedRegistration(t, db, eventID, categoryID, regModel.StatusPaid, "007")
	seedRegistration(t, db, eventID, categoryID, regModel.StatusPending, "")
	seedRegistration(t, db, eventID, uuid.New(), regModel.StatusPaid, "")

	n, err := l.CountPaidNonVanity(context.Background(), eventID, categoryID)
	if err != nil {
		t.Fatalf("CountPaidNonVanity: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestGormLedger_SyncQueue(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()
	eventID, categoryID := uuid.New(), uuid.New()

	due := seedRegistration(t, db, eventID, categoryID, regModel.StatusPending, "")
	seedRegistration(t, db, eventID, categoryID, regModel.StatusPaid, "")

	rows, err := l.ListDueForSync(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("ListDueForSync: %v", err)
	}
	if len(rows) != 1 || rows[0].RegistrationID != due {
		t.Fatalf("due rows = %d, want only the pending one", len(rows))
	}

	next := time.Now().Add(time.Hour)
	if err := l.RecordSyncAttempt(ctx, due, errors.New("provider timeout"), &next); err != nil {
		t.Fatalf("RecordSyncAttempt: %v", err)
	}
	got, _ := l.ReadRegistration(ctx, due)
	if got.RegistrationSyncAttempts != 1 {
		t.Errorf("attempts = %d, want 1", got.RegistrationSyncAttempts)
	}
	if got.RegistrationLastSyncError == nil || *got.RegistrationLastSyncError != "provider timeout" {
		t.Errorf("last error = %v", got.RegistrationLastSyncError)
	}
	if got.RegistrationNextSyncAt == nil {
		t.Error("next_sync_at not stored")
	}
}

func TestGormLedger_BackfillBibCounters(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()
	eventID, catA, catB := uuid.New(), uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		seedRegistration(t, db, eventID, catA, regModel.StatusPaid, "")
	}
	seedRegistration(t, db, eventID, catA, regModel.StatusPaid, "999")
	seedRegistration(t, db, eventID, catB, regModel.StatusPaid, "")

	// counter B sudah lebih tinggi dari histori; tidak boleh turun
	if err := db.Create(&bibModel.BibCounter{BibCounterEventID: eventID, BibCounterCategoryID: catB, BibCounterCount: 10}).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	if _, err := l.BackfillBibCounters(ctx); err != nil {
		t.Fatalf("BackfillBibCounters: %v", err)
	}

	read := func(cat uuid.UUID) int64 {
		var c bibModel.BibCounter
		if err := db.Where("bib_counter_event_id = ? AND bib_counter_category_id = ?", eventID, cat).Take(&c).Error; err != nil {
			t.Fatalf("read counter: %v", err)
		}
		return c.BibCounterCount
	}
	if got := read(catA); got != 3 {
		t.Errorf("counter A = %d, want 3", got)
	}
	if got := read(catB); got != 10 {
		t.Errorf("counter B = %d, want 10 (never lowered)", got)
	}

	// allocation after backfill continues from history
	n, err := l.IncrementBibCounter(ctx, eventID, catA)
	if err != nil || n != 4 {
		t.Errorf("next = %d, %v; want 4", n, err)
	}
}

func TestGormLedger_BlankVanityCountsAsSequential(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()
	eventID, categoryID := uuid.New(), uuid.New()

	seedRegistration(t, db, eventID, categoryID, regModel.StatusPaid, "")
	seedRegistration(t, db, eventID, categoryID, regModel.StatusPaid, "   ")
	seedRegistration(t, db, eventID, categoryID, regModel.StatusPaid, " 77 ")

	n, err := l.CountPaidNonVanity(ctx, eventID, categoryID)
	if err != nil {
		t.Fatalf("CountPaidNonVanity: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 (blank vanity is sequential)", n)
	}

	if _, err := l.BackfillBibCounters(ctx); err != nil {
		t.Fatalf("BackfillBibCounters: %v", err)
	}
	next, err := l.IncrementBibCounter(ctx, eventID, categoryID)
	if err != nil || next != 3 {
		t.Errorf("next after backfill = %d, %v; want 3", next, err)
	}
}

func TestGormLedger_StopSyncLeavesQueue(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()
	eventID, categoryID := uuid.New(), uuid.New()

	stopped := seedRegistration(t, db, eventID, categoryID, regModel.StatusPending, "")
	kept := seedRegistration(t, db, eventID, categoryID, regModel.StatusPending, "")

	if err := l.StopSync(ctx, stopped, "provider status expired", time.Now()); err != nil {
		t.Fatalf("StopSync: %v", err)
	}

	rows, err := l.ListDueForSync(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("ListDueForSync: %v", err)
	}
	if len(rows) != 1 || rows[0].RegistrationID != kept {
		t.Fatalf("due rows = %d, want only the registration still syncing", len(rows))
	}

	got, _ := l.ReadRegistration(ctx, stopped)
	if !got.IsPending() || got.RegistrationSyncStoppedAt == nil || got.RegistrationSyncAttempts != 1 {
		t.Errorf("stopped registration: status=%s stopped=%v attempts=%d",
			got.RegistrationStatus, got.RegistrationSyncStoppedAt, got.RegistrationSyncAttempts)
	}
}

func TestGormLedger_WriteRegistrationQR(t *testing.T) {
	db := openTestDB(t)
	l := NewGormLedger(db)
	ctx := context.Background()
	id := seedRegistration(t, db, uuid.New(), uuid.New(), regModel.StatusPending, "")

	// hanya registrasi paid yang boleh diganti QR-nya
	if err := l.WriteRegistrationQR(ctx, id, "https://cdn.racehub.id/qr.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pending registration err = %v, want ErrNotFound", err)
	}

	if err := l.WriteRegistrationPaid(ctx, id, PaidWrite{RaceNumber: "001", QRCodeURL: "https://cdn.racehub.id/a.png", PaidAt: time.Now()}); err != nil {
		t.Fatalf("WriteRegistrationPaid: %v", err)
	}
	if err := l.WriteRegistrationQR(ctx, id, ""); err != nil {
		t.Fatalf("clear qr: %v", err)
	}
	got, _ := l.ReadRegistration(ctx, id)
	if got.RegistrationQRCodeURL != nil {
		t.Errorf("qr = %q, want NULL", *got.RegistrationQRCodeURL)
	}

	if err := l.WriteRegistrationQR(ctx, id, "https://cdn.racehub.id/b.png"); err != nil {
		t.Fatalf("set qr: %v", err)
	}
	got, _ = l.ReadRegistration(ctx, id)
	if got.QRCodeURL() != "https://cdn.racehub.id/b.png" {
		t.Errorf("qr = %q", got.QRCodeURL())
	}
}
