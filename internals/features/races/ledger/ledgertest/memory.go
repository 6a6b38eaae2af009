// Package ledgertest provides an in-memory ledger.Ledger for tests.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventModel "racehub_backend/internals/features/races/events/model"
	"racehub_backend/internals/features/races/ledger"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

type pairKey struct {
	EventID    uuid.UUID
	CategoryID uuid.UUID
}

// Calls counts every ledger operation, including those made inside transactions.
type Calls struct {
	ReadRegistration      atomic.Int64
	ReadEventCategory     atomic.Int64
	CountPaidNonVanity    atomic.Int64
	IncrementBibCounter   atomic.Int64
	WriteRegistrationPaid atomic.Int64
	WriteRegistrationQR   atomic.Int64
	Transaction           atomic.Int64
	ListDueForSync        atomic.Int64
	RecordSyncAttempt     atomic.Int64
	StopSync              atomic.Int64
}

func (c *Calls) Total() int64 {
	return c.ReadRegistration.Load() + c.ReadEventCategory.Load() + c.CountPaidNonVanity.Load() +
		c.IncrementBibCounter.Load() + c.WriteRegistrationPaid.Load() + c.WriteRegistrationQR.Load() + c.Transaction.Load() +
		c.ListDueForSync.Load() + c.RecordSyncAttempt.Load() + c.StopSync.Load()
}

// Memory is a map-backed ledger. Transactions are serialized and roll back on error.
type Memory struct {
	mu            sync.Mutex
	registrations map[uuid.UUID]regModel.Registration
	categories    map[pairKey]eventModel.EventCategory
	counters      map[pairKey]int64

	// CategoryErr, kalau di-set, dikembalikan oleh ReadEventCategory.
	CategoryErr error
	// WriteErr, kalau di-set, dikembalikan oleh WriteRegistrationPaid.
	WriteErr error

	Calls Calls
}

func NewMemory() *Memory {
	return &Memory{
		registrations: map[uuid.UUID]regModel.Registration{},
		categories:    map[pairKey]eventModel.EventCategory{},
		counters:      map[pairKey]int64{},
	}
}

var (
	_ ledger.Ledger    = (*Memory)(nil)
	_ ledger.SyncQueue = (*Memory)(nil)
)

/* ===================== Seeding & inspection ===================== */

func (m *Memory) PutRegistration(r regModel.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.RegistrationID == uuid.Nil {
		r.RegistrationID = uuid.New()
	}
	if r.RegistrationStatus == "" {
		r.RegistrationStatus = regModel.StatusPending
	}
	if r.RegistrationPaymentStatus == "" {
		r.RegistrationPaymentStatus = regModel.PaymentUnpaid
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.registrations[r.RegistrationID] = r
}

func (m *Memory) PutCategory(c eventModel.EventCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[pairKey{c.EventCategoryEventID, c.EventCategoryID}] = c
}

func (m *Memory) SetCounter(eventID, categoryID uuid.UUID, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[pairKey{eventID, categoryID}] = n
}

func (m *Memory) Counter(eventID, categoryID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[pairKey{eventID, categoryID}]
}

// Registration returns a copy without counting it as a ledger call.
func (m *Memory) Registration(id uuid.UUID) (regModel.Registration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	return r, ok
}

/* ===================== ledger.Ledger ===================== */

func (m *Memory) ReadRegistration(ctx context.Context, id uuid.UUID) (*regModel.Registration, error) {
	m.Calls.ReadRegistration.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readRegistration(id)
}

func (m *Memory) ReadEventCategory(ctx context.Context, eventID, categoryID uuid.UUID) (*eventModel.EventCategory, error) {
	m.Calls.ReadEventCategory.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readEventCategory(eventID, categoryID)
}

func (m *Memory) CountPaidNonVanity(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error) {
	m.Calls.CountPaidNonVanity.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countPaidNonVanity(eventID, categoryID), nil
}

func (m *Memory) IncrementBibCounter(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error) {
	m.Calls.IncrementBibCounter.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.increment(eventID, categoryID), nil
}

func (m *Memory) WriteRegistrationPaid(ctx context.Context, id uuid.UUID, w ledger.PaidWrite) error {
	m.Calls.WriteRegistrationPaid.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writePaid(id, w)
}

func (m *Memory) WriteRegistrationQR(ctx context.Context, id uuid.UUID, url string) error {
	m.Calls.WriteRegistrationQR.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeQR(id, url)
}

func (m *Memory) Transaction(ctx context.Context, fn func(tx ledger.Ledger) error) error {
	m.Calls.Transaction.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	regSnap := make(map[uuid.UUID]regModel.Registration, len(m.registrations))
	for k, v := range m.registrations {
		regSnap[k] = v
	}
	cntSnap := make(map[pairKey]int64, len(m.counters))
	for k, v := range m.counters {
		cntSnap[k] = v
	}

	if err := fn(&memTx{m: m}); err != nil {
		m.registrations = regSnap
		m.counters = cntSnap
		return err
	}
	return nil
}

/* ===================== ledger.SyncQueue ===================== */

func (m *Memory) ListDueForSync(ctx context.Context, now time.Time, limit int) ([]regModel.Registration, error) {
	m.Calls.ListDueForSync.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []regModel.Registration{}
	for _, r := range m.registrations {
		if r.RegistrationStatus != regModel.StatusPending || r.RegistrationSyncStoppedAt != nil {
			continue
		}
		if r.RegistrationNextSyncAt != nil && r.RegistrationNextSyncAt.After(now) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) RecordSyncAttempt(ctx context.Context, id uuid.UUID, syncErr error, nextAt *time.Time) error {
	m.Calls.RecordSyncAttempt.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok || r.RegistrationStatus != regModel.StatusPending {
		return nil
	}
	r.RegistrationSyncAttempts++
	r.RegistrationNextSyncAt = nextAt
	r.RegistrationLastSyncError = nil
	if syncErr != nil {
		msg := syncErr.Error()
		r.RegistrationLastSyncError = &msg
	}
	m.registrations[id] = r
	return nil
}

func (m *Memory) StopSync(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	m.Calls.StopSync.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok || r.RegistrationStatus != regModel.StatusPending {
		return nil
	}
	r.RegistrationSyncAttempts++
	r.RegistrationNextSyncAt = nil
	r.RegistrationLastSyncError = &reason
	r.RegistrationSyncStoppedAt = &at
	m.registrations[id] = r
	return nil
}

/* ===================== unlocked internals ===================== */

func (m *Memory) readRegistration(id uuid.UUID) (*regModel.Registration, error) {
	r, ok := m.registrations[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &r, nil
}

func (m *Memory) readEventCategory(eventID, categoryID uuid.UUID) (*eventModel.EventCategory, error) {
	if m.CategoryErr != nil {
		return nil, m.CategoryErr
	}
	c, ok := m.categories[pairKey{eventID, categoryID}]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) countPaidNonVanity(eventID, categoryID uuid.UUID) int64 {
	var n int64
	for _, r := range m.registrations {
		if r.RegistrationEventID == eventID && r.RegistrationCategoryID == categoryID &&
			r.RegistrationStatus == regModel.StatusPaid && !r.HasVanity() {
			n++
		}
	}
	return n
}

func (m *Memory) increment(eventID, categoryID uuid.UUID) int64 {
	k := pairKey{eventID, categoryID}
	m.counters[k]++
	return m.counters[k]
}

func (m *Memory) writePaid(id uuid.UUID, w ledger.PaidWrite) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	r, ok := m.registrations[id]
	if !ok {
		if w.IfStatus != "" {
			return ledger.ErrConflict
		}
		return ledger.ErrNotFound
	}
	if w.IfStatus != "" && r.RegistrationStatus != w.IfStatus {
		return ledger.ErrConflict
	}
	paidAt := w.PaidAt
	race, qr := w.RaceNumber, w.QRCodeURL
	r.RegistrationStatus = regModel.StatusPaid
	r.RegistrationPaymentStatus = regModel.PaymentPaid
	r.RegistrationRaceNumber = &race
	r.RegistrationQRCodeURL = &qr
	r.RegistrationPaidAt = &paidAt
	r.RegistrationNextSyncAt = nil
	r.RegistrationLastSyncError = nil
	if w.PaymentID != "" {
		pid := w.PaymentID
		r.RegistrationXenditPaymentID = &pid
	}
	m.registrations[id] = r
	return nil
}

func (m *Memory) writeQR(id uuid.UUID, url string) error {
	r, ok := m.registrations[id]
	if !ok || r.RegistrationStatus != regModel.StatusPaid {
		return ledger.ErrNotFound
	}
	r.RegistrationQRCodeURL = nil
	if url != "" {
		r.RegistrationQRCodeURL = &url
	}
	m.registrations[id] = r
	return nil
}

/* ===================== tx view ===================== */

type memTx struct{ m *Memory }

func (t *memTx) ReadRegistration(ctx context.Context, id uuid.UUID) (*regModel.Registration, error) {
	t.m.Calls.ReadRegistration.Add(1)
	return t.m.readRegistration(id)
}

func (t *memTx) ReadEventCategory(ctx context.Context, eventID, categoryID uuid.UUID) (*eventModel.EventCategory, error) {
	t.m.Calls.ReadEventCategory.Add(1)
	return t.m.readEventCategory(eventID, categoryID)
}

func (t *memTx) CountPaidNonVanity(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error) {
	t.m.Calls.CountPaidNonVanity.Add(1)
	return t.m.countPaidNonVanity(eventID, categoryID), nil
}

func (t *memTx) IncrementBibCounter(ctx context.Context, eventID, categoryID uuid.UUID) (int64, error) {
	t.m.Calls.IncrementBibCounter.Add(1)
	return t.m.increment(eventID, categoryID), nil
}

func (t *memTx) WriteRegistrationPaid(ctx context.Context, id uuid.UUID, w ledger.PaidWrite) error {
	t.m.Calls.WriteRegistrationPaid.Add(1)
	return t.m.writePaid(id, w)
}

func (t *memTx) WriteRegistrationQR(ctx context.Context, id uuid.UUID, url string) error {
	t.m.Calls.WriteRegistrationQR.Add(1)
	return t.m.writeQR(id, url)
}

// Transaction inside a transaction just runs fn on the same view.
func (t *memTx) Transaction(ctx context.Context, fn func(tx ledger.Ledger) error) error {
	t.m.Calls.Transaction.Add(1)
	return fn(t)
}
