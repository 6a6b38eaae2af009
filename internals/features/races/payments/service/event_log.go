// file: internals/features/races/payments/service/event_log.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "racehub_backend/internals/features/races/payments/model"
)

// EventLog records authenticated gateway deliveries in payment_gateway_events.
type EventLog interface {
	Record(ctx context.Context, ev *model.PaymentGatewayEvent) error
	Finish(ctx context.Context, id uuid.UUID, status model.GatewayEventStatus, errMsg string) error
}

type GormEventLog struct {
	DB *gorm.DB
}

func NewGormEventLog(db *gorm.DB) *GormEventLog { return &GormEventLog{DB: db} }

func (l *GormEventLog) Record(ctx context.Context, ev *model.PaymentGatewayEvent) error {
	if ev.GatewayEventStatus == "" {
		ev.GatewayEventStatus = model.GatewayEventStatusReceived
	}
	if err := l.DB.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("insert gateway event: %w", err)
	}
	return nil
}

func (l *GormEventLog) Finish(ctx context.Context, id uuid.UUID, status model.GatewayEventStatus, errMsg string) error {
	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}
	return l.DB.WithContext(ctx).
		Model(&model.PaymentGatewayEvent{}).
		Where("gateway_event_id = ?", id).
		Updates(map[string]interface{}{
			"gateway_event_status":       status,
			"gateway_event_error":        errVal,
			"gateway_event_processed_at": time.Now(),
		}).Error
}
