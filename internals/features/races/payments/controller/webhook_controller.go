package controller

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"racehub_backend/internals/features/races/payments/dto"
	"racehub_backend/internals/features/races/payments/gateway"
	model "racehub_backend/internals/features/races/payments/model"
	"racehub_backend/internals/features/races/payments/service"
	helper "racehub_backend/internals/helpers"
)

const HeaderXenditCallbackToken = "x-callback-token"

// header yang tidak boleh ikut tersimpan di payment_gateway_events
var redactedHeaders = map[string]struct{}{
	HeaderXenditCallbackToken: {},
	"authorization":           {},
	"cookie":                  {},
}

/*
	========================================================
	  Controller
	========================================================
*/

type WebhookController struct {
	Reconciler *service.Reconciler
	Events     service.EventLog // nil = tanpa log event

	XenditCallbackToken string
	MidtransServerKey   string

	validate *validator.Validate
}

func NewWebhookController(rec *service.Reconciler, events service.EventLog, xenditToken, midtransServerKey string) *WebhookController {
	return &WebhookController{
		Reconciler:          rec,
		Events:              events,
		XenditCallbackToken: xenditToken,
		MidtransServerKey:   midtransServerKey,
		validate:            validator.New(),
	}
}

/* ===================== Xendit ===================== */

// POST /api/webhooks/xendit
func (ctrl *WebhookController) XenditInvoiceCallback(c *fiber.Ctx) error {
	// token dulu; belum boleh ada akses registrasi sebelum ini
	if !service.VerifyCallbackToken(c.Get(HeaderXenditCallbackToken), ctrl.XenditCallbackToken) {
		log.Printf("[WARN] xendit webhook: invalid callback token from %s", c.IP())
		return helper.JsonError(c, fiber.StatusUnauthorized, "Invalid callback token")
	}

	var body dto.XenditInvoiceCallback
	if err := c.BodyParser(&body); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := ctrl.validate.Struct(&body); err != nil {
		return helper.JsonValidationError(c, err)
	}

	status := strings.ToUpper(strings.TrimSpace(body.Status))
	log.Printf("[INFO] xendit webhook: invoice=%s external_id=%s status=%s", body.ID, body.ExternalID, status)

	evID := ctrl.record(c, model.GatewayProviderXendit, "invoice."+strings.ToLower(status), body.ExternalID, body.PaymentRef())

	return ctrl.apply(c, evID, body.ExternalID, gateway.IsPaidStatus(status), status, body.PaymentRef())
}

/* ===================== Midtrans ===================== */

// POST /api/webhooks/midtrans
func (ctrl *WebhookController) MidtransNotification(c *fiber.Ctx) error {
	var body dto.MidtransNotification
	if err := c.BodyParser(&body); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if !service.VerifyMidtransSignature(body.SignatureKey, body.OrderID, body.StatusCode, body.GrossAmount, ctrl.MidtransServerKey) {
		log.Printf("[WARN] midtrans webhook: invalid signature order_id=%s from %s", body.OrderID, c.IP())
		return helper.JsonError(c, fiber.StatusUnauthorized, "Invalid signature")
	}
	if err := ctrl.validate.Struct(&body); err != nil {
		return helper.JsonValidationError(c, err)
	}

	txStatus := strings.ToLower(strings.TrimSpace(body.TransactionStatus))
	log.Printf("[INFO] midtrans webhook: order_id=%s tx_status=%s fraud=%s pay_type=%s",
		body.OrderID, txStatus, body.FraudStatus, body.PaymentType)

	evID := ctrl.record(c, model.GatewayProviderMidtrans, txStatus, body.OrderID, body.TransactionID)

	return ctrl.apply(c, evID, body.OrderID, gateway.IsMidtransPaid(txStatus, body.FraudStatus), txStatus, body.TransactionID)
}

/* ===================== Shared ===================== */

// apply runs the paid transition for an authenticated, parsed delivery.
func (ctrl *WebhookController) apply(c *fiber.Ctx, evID uuid.UUID, externalID string, paid bool, rawStatus, paymentRef string) error {
	ctx := c.UserContext()

	regID, err := service.ParseExternalID(externalID)
	if err != nil {
		ctrl.finish(ctx, evID, model.GatewayEventStatusFailed, err.Error())
		return helper.JsonError(c, fiber.StatusBadRequest, "external_id bukan registration id yang valid")
	}

	if !paid {
		ctrl.finish(ctx, evID, model.GatewayEventStatusIgnored, "")
		return c.JSON(dto.WebhookAck{Success: true, Status: strings.ToLower(rawStatus)})
	}

	res, err := ctrl.Reconciler.MarkPaid(ctx, regID, paymentRef)
	switch {
	case err == nil:
		ctrl.finish(ctx, evID, model.GatewayEventStatusProcessed, "")
		return c.JSON(dto.WebhookAck{Success: true, Status: res.Status, RaceNumber: res.RaceNumber})

	case errors.Is(err, service.ErrNotFound):
		log.Printf("[WARN] webhook: registration %s not found, acknowledging", regID)
		ctrl.finish(ctx, evID, model.GatewayEventStatusIgnored, "registration not found")
		return c.JSON(dto.WebhookAck{Success: true, Status: "unknown_registration"})

	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrConflict), helper.IsRetryablePG(err):
		ctrl.finish(ctx, evID, model.GatewayEventStatusFailed, err.Error())
		return helper.JsonError(c, fiber.StatusConflict, "Registrasi sedang diproses, silakan ulangi")

	default:
		log.Printf("[ERROR] webhook: mark paid registration=%s: %v", regID, err)
		ctrl.finish(ctx, evID, model.GatewayEventStatusFailed, err.Error())
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal memproses pembayaran")
	}
}

// record stores the delivery; failures are logged and never block processing.
func (ctrl *WebhookController) record(c *fiber.Ctx, provider model.PaymentGatewayProvider, eventType, externalID, externalRef string) uuid.UUID {
	if ctrl.Events == nil {
		return uuid.Nil
	}

	headers := map[string]string{}
	c.Request().Header.VisitAll(func(k, v []byte) {
		key := strings.ToLower(string(k))
		if _, skip := redactedHeaders[key]; skip {
			return
		}
		headers[key] = string(v)
	})
	rawHeaders, _ := sonic.Marshal(headers)

	payload := c.Body()
	if !sonic.Valid(payload) {
		// form-urlencoded → simpan sebagai string JSON
		payload, _ = sonic.Marshal(string(payload))
	}

	ev := &model.PaymentGatewayEvent{
		GatewayEventProvider:    provider,
		GatewayEventType:        strPtr(eventType),
		GatewayEventExternalID:  strPtr(externalID),
		GatewayEventExternalRef: strPtr(externalRef),
		GatewayEventHeaders:     datatypes.JSON(rawHeaders),
		GatewayEventPayload:     datatypes.JSON(payload),
	}
	if id, err := uuid.Parse(strings.TrimSpace(externalID)); err == nil {
		ev.GatewayEventRegistrationID = &id
	}

	if err := ctrl.Events.Record(c.UserContext(), ev); err != nil {
		log.Printf("[WARN] webhook: record gateway event: %v", err)
		return uuid.Nil
	}
	return ev.GatewayEventID
}

func (ctrl *WebhookController) finish(ctx context.Context, evID uuid.UUID, status model.GatewayEventStatus, errMsg string) {
	if ctrl.Events == nil || evID == uuid.Nil {
		return
	}
	if err := ctrl.Events.Finish(ctx, evID, status, errMsg); err != nil {
		log.Printf("[WARN] webhook: finish gateway event %s: %v", evID, err)
	}
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
