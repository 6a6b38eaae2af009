// file: internals/features/races/payments/gateway/midtrans.go
package gateway

import (
	"context"
	"fmt"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

type Midtrans struct {
	client coreapi.Client
}

func NewMidtrans(serverKey string, useProduction bool) *Midtrans {
	m := &Midtrans{}
	if useProduction {
		m.client.New(serverKey, midtrans.Production)
	} else {
		m.client.New(serverKey, midtrans.Sandbox)
	}
	return m
}

func (m *Midtrans) Name() string { return "midtrans" }

type midtransResult struct {
	res *coreapi.TransactionStatusResponse
	err *midtrans.Error
}

// FindInvoice checks the transaction whose order_id is externalID.
// SDK Midtrans tidak menerima context, jadi panggilan dibungkus goroutine.
func (m *Midtrans) FindInvoice(ctx context.Context, externalID string) (*Invoice, error) {
	done := make(chan midtransResult, 1)
	go func() {
		res, err := m.client.CheckTransaction(externalID)
		done <- midtransResult{res: res, err: err}
	}()

	var out midtransResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case out = <-done:
	}

	if out.err != nil {
		if out.err.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: midtrans check transaction: %s", ErrUnavailable, out.err.Message)
	}
	if out.res == nil || out.res.StatusCode == "404" {
		return nil, nil
	}

	return &Invoice{
		ID:         out.res.TransactionID,
		ExternalID: out.res.OrderID,
		Status:     strings.ToUpper(out.res.TransactionStatus),
		Paid:       IsMidtransPaid(out.res.TransactionStatus, out.res.FraudStatus),
	}, nil
}
