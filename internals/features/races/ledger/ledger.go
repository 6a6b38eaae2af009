// file: internals/features/races/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	eventModel "racehub_backend/internals/features/races/events/model"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict: conditional write kalah race (status sudah bukan yang diharapkan).
	ErrConflict = errors.New("registration is no longer pending")
)

// PaidWrite is the single logical update that marks a registration paid.
// IfStatus kosong = overwrite tanpa syarat (perilaku baseline).
type PaidWrite struct {
	RaceNumber string
	QRCodeURL  string
	PaymentID  string
	PaidAt     time.Time
	IfStatus   regModel.RegistrationStatus
}

// Ledger is the storage contract used by the bib allocator and the reconciler.
type Ledger interface {
	ReadRegistration(ctx context.Context, id uuid.UUID) (*regModel.Registration, error)
	ReadEventCategory(ctx context.Context, eventID, categoryID uuid.UUID) (*eventModel.EventCategory, error)
	CountPaidNonVanity(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error)
	IncrementBibCounter(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error)
	WriteRegistrationPaid(ctx context.Context, id uuid.UUID, w PaidWrite) error
	// WriteRegistrationQR replaces the QR URL of a paid registration; "" clears it.
	WriteRegistrationQR(ctx context.Context, id uuid.UUID, url string) error
	Transaction(ctx context.Context, fn func(tx Ledger) error) error
}

// SyncQueue feeds the pending-payment sweeper.
type SyncQueue interface {
	ListDueForSync(ctx context.Context, now time.Time, limit int) ([]regModel.Registration, error)
	RecordSyncAttempt(ctx context.Context, id uuid.UUID, syncErr error, nextAt *time.Time) error
	// StopSync removes a pending registration from the queue; manual sync and webhooks still apply.
	StopSync(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}
