// file: internals/features/races/payments/gateway/gateway.go
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("payment provider unavailable")

// Invoice is the provider-neutral view of the invoice for one registration.
type Invoice struct {
	ID         string // referensi provider (invoice id / transaction id)
	ExternalID string // = registration id
	Status     string // status mentah dari provider
	Paid       bool
	PaidAt     *time.Time
	Created    time.Time
}

// PickInvoice chooses among duplicate invoices for one external id: a paid one
// wins, otherwise the most recently created. Urutan dari provider tidak dipakai.
func PickInvoice(invoices []*Invoice) *Invoice {
	var pick *Invoice
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		if inv.Paid {
			return inv
		}
		if pick == nil || inv.Created.After(pick.Created) {
			pick = inv
		}
	}
	return pick
}

// Provider looks up the invoice whose external id is the registration id.
// FindInvoice returns (nil, nil) when the provider has no such invoice.
type Provider interface {
	Name() string
	FindInvoice(ctx context.Context, externalID string) (*Invoice, error)
}

// IsPaidStatus reports whether an invoice status counts as paid (Xendit: PAID/SETTLED).
func IsPaidStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "SETTLED":
		return true
	}
	return false
}

// IsMidtransPaid: settlement, atau capture dengan fraud_status accept (kartu kredit).
func IsMidtransPaid(transactionStatus, fraudStatus string) bool {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "settlement":
		return true
	case "capture":
		return strings.EqualFold(strings.TrimSpace(fraudStatus), "accept")
	}
	return false
}

// IsFinalStatus reports whether a non-paid invoice status can no longer turn paid.
func IsFinalStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "expired", "expire", "cancel", "deny", "failure", "failed":
		return true
	}
	return false
}

/* ===================== Factory ===================== */

type Config struct {
	Provider string // xendit | midtrans

	XenditSecretKey   string
	MidtransServerKey string
	MidtransUseProd   bool
}

func New(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "xendit":
		if cfg.XenditSecretKey == "" {
			return nil, errors.New("XENDIT_SECRET_KEY is required for provider xendit")
		}
		return NewXendit(cfg.XenditSecretKey), nil
	case "midtrans":
		if cfg.MidtransServerKey == "" {
			return nil, errors.New("MIDTRANS_SERVER_KEY is required for provider midtrans")
		}
		return NewMidtrans(cfg.MidtransServerKey, cfg.MidtransUseProd), nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
}
