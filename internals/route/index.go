// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"racehub_backend/internals/configs"
	paymentController "racehub_backend/internals/features/races/payments/controller"
	paymentRoute "racehub_backend/internals/features/races/payments/route"
	"racehub_backend/internals/features/races/payments/service"
	registrationRoute "racehub_backend/internals/features/races/registrations/route"
	"racehub_backend/internals/middlewares/auth"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg configs.Config, m *service.Module, sweeper paymentController.Sweeper) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, db)

	api := app.Group("/api")

	// ===================== WEBHOOKS (token / signature) =====================
	log.Println("[INFO] Mounting payment webhook routes...")
	paymentRoute.PaymentWebhookRoutes(api, m.Reconciler, m.Events, cfg.XenditCallbackToken, cfg.MidtransServerKey)

	// ===================== PRIVATE (USER) =====================
	// JWT dipasang per route: payment-sync bisa dibuka tanpa auth (SYNC_REQUIRE_AUTH=false)
	log.Println("[INFO] Mounting user routes...")
	u := api.Group("/u")
	authMw := auth.AuthJWT(auth.AuthJWTOpts{
		Secret:              cfg.JWTSecret,
		AllowCookieFallback: true,
	})

	registrationRoute.RegistrationUserRoutes(u, authMw, m.Ledger)
	paymentRoute.PaymentUserRoutes(u, authMw, m.Reconciler, cfg.SyncRequireAuth)

	// ===================== PRIVATE (ADMIN) =====================
	log.Println("[INFO] Mounting admin routes...")
	paymentRoute.PaymentAdminRoutes(api.Group("/a"), authMw, sweeper)

	if !cfg.SyncRequireAuth {
		log.Println("[WARN] SYNC_REQUIRE_AUTH=false: payment-sync terbuka tanpa JWT")
	}
}
