// file: internals/features/races/payments/dto/webhook_dto.go
package dto

import (
	"strings"
	"time"
)

/* ===================== Xendit ===================== */

// XenditInvoiceCallback is the body Xendit posts for invoice status changes.
type XenditInvoiceCallback struct {
	ID             string     `json:"id" validate:"required"`
	ExternalID     string     `json:"external_id" validate:"required"`
	UserID         string     `json:"user_id,omitempty"`
	Status         string     `json:"status" validate:"required"`
	MerchantName   string     `json:"merchant_name,omitempty"`
	Amount         float64    `json:"amount,omitempty"`
	PaidAmount     float64    `json:"paid_amount,omitempty"`
	PaymentID      string     `json:"payment_id,omitempty"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	PaymentChannel string     `json:"payment_channel,omitempty"`
	Currency       string     `json:"currency,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

// PaymentRef is the provider reference stored on the registration.
// payment_id lebih spesifik; id (invoice id) sebagai fallback.
func (x XenditInvoiceCallback) PaymentRef() string {
	if v := strings.TrimSpace(x.PaymentID); v != "" {
		return v
	}
	return strings.TrimSpace(x.ID)
}

/* ===================== Midtrans ===================== */

type MidtransNotification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status" validate:"required"` // capture, settlement, pending, deny, cancel, expire, refund, failure
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id" validate:"required"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"` // accept / challenge / deny
	TransactionID     string `json:"transaction_id"`
	SettlementTime    string `json:"settlement_time"`
}

/* ===================== Responses ===================== */

type WebhookAck struct {
	Success    bool   `json:"success"`
	Status     string `json:"status,omitempty"`
	RaceNumber string `json:"raceNumber,omitempty"`
}
