// file: internals/features/races/registrations/model/registration_model.go
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ===================== Enums ===================== */

type RegistrationStatus string
type PaymentStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusPaid      RegistrationStatus = "paid"
	StatusCancelled RegistrationStatus = "cancelled"
	StatusFailed    RegistrationStatus = "failed"
)

// PaymentStatus mirrors provider state; boleh tertinggal dari RegistrationStatus.
const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

/* ===================== Model ===================== */

type Registration struct {
	RegistrationID uuid.UUID `gorm:"column:registration_id;type:uuid;primaryKey" json:"registration_id"`

	RegistrationEventID    uuid.UUID `gorm:"column:registration_event_id;type:uuid;not null;index:idx_reg_event_category,priority:1" json:"registration_event_id"`
	RegistrationCategoryID uuid.UUID `gorm:"column:registration_category_id;type:uuid;not null;index:idx_reg_event_category,priority:2" json:"registration_category_id"`
	RegistrationUserID     uuid.UUID `gorm:"column:registration_user_id;type:uuid;not null;index" json:"registration_user_id"`

	RegistrationRunnerName string `gorm:"column:registration_runner_name;type:varchar(160);not null;default:''" json:"registration_runner_name"`

	RegistrationStatus        RegistrationStatus `gorm:"column:registration_status;type:varchar(16);not null;default:'pending';index" json:"registration_status"`
	RegistrationPaymentStatus PaymentStatus      `gorm:"column:registration_payment_status;type:varchar(16);not null;default:'unpaid'" json:"registration_payment_status"`

	// Bib
	RegistrationVanityNumber *string `gorm:"column:registration_vanity_number;type:varchar(16)" json:"registration_vanity_number,omitempty"`
	RegistrationRaceNumber   *string `gorm:"column:registration_race_number;type:varchar(64)" json:"registration_race_number,omitempty"`
	RegistrationQRCodeURL    *string `gorm:"column:registration_qr_code_url;type:text" json:"registration_qr_code_url,omitempty"`

	// Gateway
	RegistrationXenditPaymentID *string    `gorm:"column:registration_xendit_payment_id;type:varchar(128)" json:"registration_xendit_payment_id,omitempty"`
	RegistrationPaidAt          *time.Time `gorm:"column:registration_paid_at" json:"registration_paid_at,omitempty"`

	// Sweeper bookkeeping (bukan bagian state machine)
	RegistrationSyncAttempts  int        `gorm:"column:registration_sync_attempts;not null;default:0" json:"registration_sync_attempts"`
	RegistrationNextSyncAt    *time.Time `gorm:"column:registration_next_sync_at;index" json:"registration_next_sync_at,omitempty"`
	RegistrationLastSyncError *string    `gorm:"column:registration_last_sync_error;type:text" json:"registration_last_sync_error,omitempty"`
	// Sweeper berhenti: status provider final atau batas percobaan tercapai
	RegistrationSyncStoppedAt *time.Time `gorm:"column:registration_sync_stopped_at" json:"registration_sync_stopped_at,omitempty"`

	CreatedAt time.Time      `gorm:"column:registration_created_at;autoCreateTime" json:"registration_created_at"`
	UpdatedAt time.Time      `gorm:"column:registration_updated_at;autoUpdateTime" json:"registration_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:registration_deleted_at;index" json:"registration_deleted_at,omitempty"`
}

func (Registration) TableName() string { return "registrations" }

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.RegistrationID == uuid.Nil {
		r.RegistrationID = uuid.New()
	}
	return nil
}

/* ===================== Helpers ===================== */

func (r *Registration) IsPaid() bool { return r.RegistrationStatus == StatusPaid }

func (r *Registration) IsPending() bool { return r.RegistrationStatus == StatusPending }

// HasVanity reports whether allocation should short-circuit to the vanity number.
// Nilai yang hanya berisi spasi dianggap kosong, sama dengan VanitySQLEmpty.
func (r *Registration) HasVanity() bool {
	return r.VanityNumber() != ""
}

// VanityNumber returns the trimmed vanity number, "" when unset.
func (r *Registration) VanityNumber() string {
	if r.RegistrationVanityNumber == nil {
		return ""
	}
	return strings.TrimSpace(*r.RegistrationVanityNumber)
}

// VanitySQLEmpty is the SQL predicate matching registrations without a vanity number.
const VanitySQLEmpty = "COALESCE(TRIM(registration_vanity_number), '') = ''"

func (r *Registration) RaceNumber() string {
	if r.RegistrationRaceNumber == nil {
		return ""
	}
	return *r.RegistrationRaceNumber
}

func (r *Registration) QRCodeURL() string {
	if r.RegistrationQRCodeURL == nil {
		return ""
	}
	return *r.RegistrationQRCodeURL
}
