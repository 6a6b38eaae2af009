// file: internals/features/races/payments/model/payment_gateway_event_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
  payment_gateway_events = LOG WEBHOOK / CALLBACK PAYMENT GATEWAY
  - Satu row per delivery (retry provider = row baru)
  - Hanya delivery yang lolos token/signature yang dicatat
*/

type PaymentGatewayProvider string
type GatewayEventStatus string

const (
	GatewayProviderXendit   PaymentGatewayProvider = "xendit"
	GatewayProviderMidtrans PaymentGatewayProvider = "midtrans"
)

const (
	GatewayEventStatusReceived  GatewayEventStatus = "received"
	GatewayEventStatusProcessed GatewayEventStatus = "processed"
	GatewayEventStatusIgnored   GatewayEventStatus = "ignored"
	GatewayEventStatusFailed    GatewayEventStatus = "failed"
)

type PaymentGatewayEvent struct {
	GatewayEventID uuid.UUID `gorm:"column:gateway_event_id;type:uuid;primaryKey" json:"gateway_event_id"`

	GatewayEventRegistrationID *uuid.UUID `gorm:"column:gateway_event_registration_id;type:uuid;index" json:"gateway_event_registration_id,omitempty"`

	// Provider & identitas event
	GatewayEventProvider    PaymentGatewayProvider `gorm:"column:gateway_event_provider;type:varchar(16);not null" json:"gateway_event_provider"`
	GatewayEventType        *string                `gorm:"column:gateway_event_type;type:varchar(64)" json:"gateway_event_type,omitempty"`
	GatewayEventExternalID  *string                `gorm:"column:gateway_event_external_id;type:varchar(128);index" json:"gateway_event_external_id,omitempty"`
	GatewayEventExternalRef *string                `gorm:"column:gateway_event_external_ref;type:varchar(128)" json:"gateway_event_external_ref,omitempty"`

	// Raw data (buat debug / replay)
	GatewayEventHeaders datatypes.JSON `gorm:"column:gateway_event_headers;type:jsonb" json:"gateway_event_headers,omitempty"`
	GatewayEventPayload datatypes.JSON `gorm:"column:gateway_event_payload;type:jsonb" json:"gateway_event_payload,omitempty"`

	// Status processing internal
	GatewayEventStatus GatewayEventStatus `gorm:"column:gateway_event_status;type:varchar(16);not null;default:'received'" json:"gateway_event_status"`
	GatewayEventError  *string            `gorm:"column:gateway_event_error;type:text" json:"gateway_event_error,omitempty"`

	GatewayEventReceivedAt  time.Time  `gorm:"column:gateway_event_received_at;not null" json:"gateway_event_received_at"`
	GatewayEventProcessedAt *time.Time `gorm:"column:gateway_event_processed_at" json:"gateway_event_processed_at,omitempty"`

	CreatedAt time.Time      `gorm:"column:gateway_event_created_at;autoCreateTime" json:"gateway_event_created_at"`
	UpdatedAt time.Time      `gorm:"column:gateway_event_updated_at;autoUpdateTime" json:"gateway_event_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:gateway_event_deleted_at;index" json:"-"`
}

func (PaymentGatewayEvent) TableName() string {
	return "payment_gateway_events"
}

func (e *PaymentGatewayEvent) BeforeCreate(tx *gorm.DB) error {
	if e.GatewayEventID == uuid.Nil {
		e.GatewayEventID = uuid.New()
	}
	if e.GatewayEventReceivedAt.IsZero() {
		e.GatewayEventReceivedAt = time.Now()
	}
	return nil
}
