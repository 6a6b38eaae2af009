// file: internals/features/races/bibs/model/bib_counter_model.go
package model

import (
	"time"

	"github.com/google/uuid"
)

/*
  bib_counters = satu baris per (event, category).
  count = jumlah registrasi paid non-vanity yang sudah dapat nomor urut.
  Hanya boleh naik (upsert-increment di dalam transaksi commit paid).
*/

type BibCounter struct {
	BibCounterEventID    uuid.UUID `gorm:"column:bib_counter_event_id;type:uuid;primaryKey" json:"bib_counter_event_id"`
	BibCounterCategoryID uuid.UUID `gorm:"column:bib_counter_category_id;type:uuid;primaryKey" json:"bib_counter_category_id"`
	BibCounterCount      int64     `gorm:"column:bib_counter_count;not null;default:0" json:"bib_counter_count"`

	CreatedAt time.Time `gorm:"column:bib_counter_created_at;autoCreateTime" json:"bib_counter_created_at"`
	UpdatedAt time.Time `gorm:"column:bib_counter_updated_at;autoUpdateTime" json:"bib_counter_updated_at"`
}

func (BibCounter) TableName() string { return "bib_counters" }
