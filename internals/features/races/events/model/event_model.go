// file: internals/features/races/events/model/event_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ===================== Enums ===================== */

const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusClosed    = "closed"
)

// DefaultRaceNumberFormat dipakai kalau kategori tidak ditemukan / format kosong.
const DefaultRaceNumberFormat = "{number}"

// RaceNumberPlaceholder is substituted with the raw bib number.
const RaceNumberPlaceholder = "{number}"

/* ===================== Event ===================== */

type Event struct {
	EventID uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`

	EventName      string     `gorm:"column:event_name;type:varchar(160);not null" json:"event_name"`
	EventSlug      string     `gorm:"column:event_slug;type:varchar(160);not null;uniqueIndex" json:"event_slug"`
	EventStatus    string     `gorm:"column:event_status;type:varchar(16);not null;default:'draft'" json:"event_status"`
	EventStartAt   *time.Time `gorm:"column:event_start_at" json:"event_start_at,omitempty"`
	EventOrganizer *uuid.UUID `gorm:"column:event_organizer_id;type:uuid" json:"event_organizer_id,omitempty"`

	Categories []EventCategory `gorm:"foreignKey:EventCategoryEventID;references:EventID" json:"categories,omitempty"`

	CreatedAt time.Time      `gorm:"column:event_created_at;autoCreateTime" json:"event_created_at"`
	UpdatedAt time.Time      `gorm:"column:event_updated_at;autoUpdateTime" json:"event_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:event_deleted_at;index" json:"event_deleted_at,omitempty"`
}

func (Event) TableName() string { return "events" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

/* ===================== Category ===================== */

type EventCategory struct {
	EventCategoryID      uuid.UUID `gorm:"column:event_category_id;type:uuid;primaryKey" json:"event_category_id"`
	EventCategoryEventID uuid.UUID `gorm:"column:event_category_event_id;type:uuid;not null;index" json:"event_category_event_id"`

	EventCategoryName     string `gorm:"column:event_category_name;type:varchar(120);not null" json:"event_category_name"`
	EventCategoryDistance string `gorm:"column:event_category_distance;type:varchar(32)" json:"event_category_distance"`
	EventCategoryPriceIDR int64  `gorm:"column:event_category_price_idr;not null;default:0" json:"event_category_price_idr"`
	EventCategoryQuota    *int   `gorm:"column:event_category_quota" json:"event_category_quota,omitempty"`

	// contoh: "42K-{number}"
	EventCategoryRaceNumberFormat string `gorm:"column:event_category_race_number_format;type:varchar(64);not null;default:'{number}'" json:"event_category_race_number_format"`

	CreatedAt time.Time      `gorm:"column:event_category_created_at;autoCreateTime" json:"event_category_created_at"`
	UpdatedAt time.Time      `gorm:"column:event_category_updated_at;autoUpdateTime" json:"event_category_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:event_category_deleted_at;index" json:"event_category_deleted_at,omitempty"`
}

func (EventCategory) TableName() string { return "event_categories" }

func (c *EventCategory) BeforeCreate(tx *gorm.DB) error {
	if c.EventCategoryID == uuid.Nil {
		c.EventCategoryID = uuid.New()
	}
	return nil
}

// RaceNumberFormat returns the category template, or the identity template when unset.
func (c *EventCategory) RaceNumberFormat() string {
	if c == nil || c.EventCategoryRaceNumberFormat == "" {
		return DefaultRaceNumberFormat
	}
	return c.EventCategoryRaceNumberFormat
}
