// Package gatewaytest provides a scripted gateway.Provider for tests.
package gatewaytest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"racehub_backend/internals/features/races/payments/gateway"
)

type Fake struct {
	mu       sync.Mutex
	invoices map[string]*gateway.Invoice

	Err   error
	Delay time.Duration // > 0: tunggu (atau ctx selesai) sebelum menjawab

	Calls atomic.Int64
}

func NewFake() *Fake {
	return &Fake{invoices: map[string]*gateway.Invoice{}}
}

var _ gateway.Provider = (*Fake)(nil)

func (f *Fake) Name() string { return "fake" }

func (f *Fake) SetInvoice(externalID, id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[externalID] = &gateway.Invoice{
		ID:         id,
		ExternalID: externalID,
		Status:     status,
		Paid:       gateway.IsPaidStatus(status),
	}
}

func (f *Fake) FindInvoice(ctx context.Context, externalID string) (*gateway.Invoice, error) {
	f.Calls.Add(1)
	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[externalID]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}
