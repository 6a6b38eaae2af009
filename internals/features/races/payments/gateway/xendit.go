// file: internals/features/races/payments/gateway/xendit.go
package gateway

import (
	"context"
	"fmt"
	"net/http"

	xendit "github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

type Xendit struct {
	client *xendit.APIClient
}

func NewXendit(secretKey string) *Xendit {
	return &Xendit{client: xendit.NewClient(secretKey)}
}

func (x *Xendit) Name() string { return "xendit" }

// FindInvoice returns the most relevant invoice for externalID: a paid one if any,
// else the one created last.
func (x *Xendit) FindInvoice(ctx context.Context, externalID string) (*Invoice, error) {
	invoices, httpRes, xerr := x.client.InvoiceApi.GetInvoices(ctx).ExternalId(externalID).Execute()
	if xerr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
		if httpRes != nil && httpRes.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: xendit get invoices: %s", ErrUnavailable, xerr.Error())
	}
	if len(invoices) == 0 {
		return nil, nil
	}

	// Duplikat invoice mungkin ada untuk external id yang sama.
	all := make([]*Invoice, 0, len(invoices))
	for _, inv := range invoices {
		all = append(all, xenditInvoice(inv))
	}
	return PickInvoice(all), nil
}

func xenditInvoice(inv invoice.Invoice) *Invoice {
	status := string(inv.GetStatus())
	return &Invoice{
		ID:         inv.GetId(),
		ExternalID: inv.GetExternalId(),
		Status:     status,
		Paid:       IsPaidStatus(status),
		Created:    inv.GetCreated(),
	}
}
