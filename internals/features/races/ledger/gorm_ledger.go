// file: internals/features/races/ledger/gorm_ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	bibModel "racehub_backend/internals/features/races/bibs/model"
	eventModel "racehub_backend/internals/features/races/events/model"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

type GormLedger struct {
	db   *gorm.DB
	inTx bool
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

var (
	_ Ledger    = (*GormLedger)(nil)
	_ SyncQueue = (*GormLedger)(nil)
)

/* ===================== Reads ===================== */

func (l *GormLedger) ReadRegistration(ctx context.Context, id uuid.UUID) (*regModel.Registration, error) {
	var r regModel.Registration
	if err := l.db.WithContext(ctx).
		First(&r, "registration_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read registration: %w", err)
	}
	return &r, nil
}

func (l *GormLedger) ReadEventCategory(ctx context.Context, eventID, categoryID uuid.UUID) (*eventModel.EventCategory, error) {
	var c eventModel.EventCategory
	if err := l.db.WithContext(ctx).
		Where("event_category_id = ? AND event_category_event_id = ?", categoryID, eventID).
		Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read event category: %w", err)
	}
	return &c, nil
}

func (l *GormLedger) CountPaidNonVanity(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).
		Model(&regModel.Registration{}).
		Where("registration_event_id = ? AND registration_category_id = ?", eventID, categoryID).
		Where("registration_status = ?", regModel.StatusPaid).
		Where(regModel.VanitySQLEmpty).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count paid registrations: %w", err)
	}
	return n, nil
}

/* ===================== Writes ===================== */

// IncrementBibCounter upserts the (event, category) row and returns the new count.
// Row lock dari upsert ditahan sampai transaksi selesai.
func (l *GormLedger) IncrementBibCounter(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error) {
	if !l.inTx {
		var n int64
		err := l.Transaction(ctx, func(tx Ledger) error {
			var err error
			n, err = tx.IncrementBibCounter(ctx, eventID, categoryID)
			return err
		})
		return n, err
	}

	now := time.Now()
	row := bibModel.BibCounter{
		BibCounterEventID:    eventID,
		BibCounterCategoryID: categoryID,
		BibCounterCount:      1,
	}
	if err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "bib_counter_event_id"},
			{Name: "bib_counter_category_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"bib_counter_count":      gorm.Expr("bib_counters.bib_counter_count + 1"),
			"bib_counter_updated_at": now,
		}),
	}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("increment bib counter: %w", err)
	}

	var out bibModel.BibCounter
	if err := l.db.WithContext(ctx).
		Where("bib_counter_event_id = ? AND bib_counter_category_id = ?", eventID, categoryID).
		Take(&out).Error; err != nil {
		return 0, fmt.Errorf("read bib counter: %w", err)
	}
	return out.BibCounterCount, nil
}

func (l *GormLedger) WriteRegistrationPaid(ctx context.Context, id uuid.UUID, w PaidWrite) error {
	q := l.db.WithContext(ctx).
		Model(&regModel.Registration{}).
		Where("registration_id = ?", id)
	if w.IfStatus != "" {
		q = q.Where("registration_status = ?", w.IfStatus)
	}

	updates := map[string]interface{}{
		"registration_status":          regModel.StatusPaid,
		"registration_payment_status":  regModel.PaymentPaid,
		"registration_race_number":     w.RaceNumber,
		"registration_qr_code_url":     w.QRCodeURL,
		"registration_paid_at":         w.PaidAt,
		"registration_next_sync_at":    nil,
		"registration_last_sync_error": nil,
	}
	if w.PaymentID != "" {
		updates["registration_xendit_payment_id"] = w.PaymentID
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("write registration paid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if w.IfStatus != "" {
			return ErrConflict
		}
		return ErrNotFound
	}
	return nil
}

func (l *GormLedger) WriteRegistrationQR(ctx context.Context, id uuid.UUID, url string) error {
	var v interface{}
	if url != "" {
		v = url
	}
	res := l.db.WithContext(ctx).
		Model(&regModel.Registration{}).
		Where("registration_id = ? AND registration_status = ?", id, regModel.StatusPaid).
		Update("registration_qr_code_url", v)
	if res.Error != nil {
		return fmt.Errorf("write registration qr: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *GormLedger) Transaction(ctx context.Context, fn func(tx Ledger) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormLedger{db: tx, inTx: true})
	})
}

/* ===================== Sweeper queue ===================== */

func (l *GormLedger) ListDueForSync(ctx context.Context, now time.Time, limit int) ([]regModel.Registration, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []regModel.Registration
	err := l.db.WithContext(ctx).
		Where("registration_status = ?", regModel.StatusPending).
		Where("(registration_next_sync_at IS NULL OR registration_next_sync_at <= ?)", now).
		Where("registration_sync_stopped_at IS NULL").
		Order("registration_created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list due registrations: %w", err)
	}
	return rows, nil
}

func (l *GormLedger) RecordSyncAttempt(ctx context.Context, id uuid.UUID, syncErr error, nextAt *time.Time) error {
	var lastErr interface{}
	if syncErr != nil {
		lastErr = syncErr.Error()
	}
	return l.db.WithContext(ctx).
		Model(&regModel.Registration{}).
		Where("registration_id = ? AND registration_status = ?", id, regModel.StatusPending).
		Updates(map[string]interface{}{
			"registration_sync_attempts":   gorm.Expr("registration_sync_attempts + 1"),
			"registration_next_sync_at":    nextAt,
			"registration_last_sync_error": lastErr,
		}).Error
}

func (l *GormLedger) StopSync(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return l.db.WithContext(ctx).
		Model(&regModel.Registration{}).
		Where("registration_id = ? AND registration_status = ?", id, regModel.StatusPending).
		Updates(map[string]interface{}{
			"registration_sync_attempts":   gorm.Expr("registration_sync_attempts + 1"),
			"registration_next_sync_at":    nil,
			"registration_last_sync_error": reason,
			"registration_sync_stopped_at": at,
		}).Error
}

/* ===================== Backfill ===================== */

// BackfillBibCounters seeds bib_counters from historical paid non-vanity registrations.
// Counter yang sudah lebih besar tidak diturunkan.
func (l *GormLedger) BackfillBibCounters(ctx context.Context) (int64, error) {
	greatest := "GREATEST"
	if l.db.Dialector.Name() == "sqlite" {
		greatest = "MAX"
	}
	now := time.Now()
	q := `
INSERT INTO bib_counters (bib_counter_event_id, bib_counter_category_id, bib_counter_count, bib_counter_created_at, bib_counter_updated_at)
SELECT registration_event_id, registration_category_id, COUNT(*), ?, ?
  FROM registrations
 WHERE registration_status = 'paid'
   AND ` + regModel.VanitySQLEmpty + `
   AND registration_deleted_at IS NULL
 GROUP BY registration_event_id, registration_category_id
ON CONFLICT (bib_counter_event_id, bib_counter_category_id)
DO UPDATE SET bib_counter_count      = ` + greatest + `(bib_counters.bib_counter_count, excluded.bib_counter_count),
              bib_counter_updated_at = excluded.bib_counter_updated_at`

	res := l.db.WithContext(ctx).Exec(q, now, now)
	if res.Error != nil {
		return 0, fmt.Errorf("backfill bib counters: %w", res.Error)
	}
	return res.RowsAffected, nil
}
