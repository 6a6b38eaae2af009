package route

import (
	"github.com/gofiber/fiber/v2"

	paymentController "racehub_backend/internals/features/races/payments/controller"
	"racehub_backend/internals/features/races/payments/service"
	"racehub_backend/internals/constants"
	"racehub_backend/internals/middlewares"
	"racehub_backend/internals/middlewares/auth"
)

// PaymentWebhookRoutes: /api/webhooks/* (tanpa JWT, auth via token/signature provider)
func PaymentWebhookRoutes(api fiber.Router, rec *service.Reconciler, events service.EventLog, xenditToken, midtransServerKey string) {
	ctrl := paymentController.NewWebhookController(rec, events, xenditToken, midtransServerKey)

	wh := api.Group("/webhooks", middlewares.WebhookRateLimiter())
	wh.Post("/xendit", ctrl.XenditInvoiceCallback)
	wh.Post("/midtrans", ctrl.MidtransNotification)
}

// PaymentUserRoutes: sync manual. authMw dipasang hanya kalau requireAuth.
func PaymentUserRoutes(u fiber.Router, authMw fiber.Handler, rec *service.Reconciler, requireAuth bool) {
	ctrl := paymentController.NewSyncController(rec, requireAuth)

	handlers := []fiber.Handler{}
	if requireAuth {
		handlers = append(handlers, authMw)
	}
	handlers = append(handlers, middlewares.SyncRateLimiter(), ctrl.Sync)

	u.Get("/registrations/:id/payment-sync", handlers...)
}

// PaymentAdminRoutes: /api/a/payments/* (JWT + role admin/owner)
func PaymentAdminRoutes(a fiber.Router, authMw fiber.Handler, sweeper paymentController.Sweeper) {
	ctrl := paymentController.NewSweepController(sweeper)

	adm := a.Group("/payments", authMw, auth.OnlyRoles(constants.RoleErrorAdmin("sweep pembayaran"), constants.AdminRoles...))
	adm.Post("/sweep", ctrl.RunNow)
}
