// file: internals/features/races/bibs/service/allocator.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	eventModel "racehub_backend/internals/features/races/events/model"
	"racehub_backend/internals/features/races/ledger"
)

/* ===================== Mode ===================== */

type CounterMode string

const (
	// CounterAtomic: upsert-increment baris bib_counters, satu transaksi dengan commit paid.
	CounterAtomic CounterMode = "atomic"
	// CounterRecount: hitung ulang registrasi paid non-vanity + 1 (tidak aman konkuren).
	CounterRecount CounterMode = "recount"
)

func ParseCounterMode(s string) (CounterMode, error) {
	switch CounterMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CounterAtomic:
		return CounterAtomic, nil
	case CounterRecount:
		return CounterRecount, nil
	}
	return "", fmt.Errorf("unknown bib counter mode %q", s)
}

/* ===================== Allocator ===================== */

type Allocation struct {
	RaceNumber string // hasil format, contoh "42K-007"
	Raw        string // bagian angka sebelum format
	Vanity     bool
	Sequence   int64 // 0 untuk vanity
}

type Allocator struct {
	Mode CounterMode
}

func NewAllocator(mode CounterMode) *Allocator {
	if mode == "" {
		mode = CounterAtomic
	}
	return &Allocator{Mode: mode}
}

// Allocate computes the race number for a registration about to be marked paid.
// In atomic mode l should be the transaction that also commits the paid write.
func (a *Allocator) Allocate(ctx context.Context, l ledger.Ledger, eventID, categoryID uuid.UUID, vanity string) (Allocation, error) {
	format := eventModel.DefaultRaceNumberFormat
	cat, err := l.ReadEventCategory(ctx, eventID, categoryID)
	switch {
	case err == nil:
		format = cat.RaceNumberFormat()
	case errors.Is(err, ledger.ErrNotFound):
		log.Printf("[WARN] bib: category %s/%s not found, using %q", eventID, categoryID, format)
	default:
		return Allocation{}, fmt.Errorf("resolve race number format: %w", err)
	}

	vanity = strings.TrimSpace(vanity)
	if vanity != "" {
		return Allocation{
			RaceNumber: FormatRaceNumber(format, vanity),
			Raw:        vanity,
			Vanity:     true,
		}, nil
	}

	seq, err := a.next(ctx, l, eventID, categoryID)
	if err != nil {
		return Allocation{}, err
	}
	raw := PadNumber(seq)
	return Allocation{
		RaceNumber: FormatRaceNumber(format, raw),
		Raw:        raw,
		Sequence:   seq,
	}, nil
}

func (a *Allocator) next(ctx context.Context, l ledger.Ledger, eventID, categoryID uuid.UUID) (int64, error) {
	if a.Mode == CounterRecount {
		n, err := l.CountPaidNonVanity(ctx, eventID, categoryID)
		if err != nil {
			return 0, fmt.Errorf("count paid registrations: %w", err)
		}
		return n + 1, nil
	}
	n, err := l.IncrementBibCounter(ctx, eventID, categoryID)
	if err != nil {
		return 0, fmt.Errorf("increment bib counter: %w", err)
	}
	return n, nil
}

/* ===================== Formatting ===================== */

// PadNumber zero-pads to at least three digits; wider numbers are kept whole.
func PadNumber(n int64) string {
	return fmt.Sprintf("%03d", n)
}

// FormatRaceNumber substitutes raw into the first {number} placeholder.
// Tanpa placeholder, format dipakai apa adanya.
func FormatRaceNumber(format, raw string) string {
	if strings.TrimSpace(format) == "" {
		format = eventModel.DefaultRaceNumberFormat
	}
	return strings.Replace(format, eventModel.RaceNumberPlaceholder, raw, 1)
}
