package route

import (
	"github.com/gofiber/fiber/v2"

	"racehub_backend/internals/features/races/ledger"
	registrationController "racehub_backend/internals/features/races/registrations/controller"
)

func RegistrationUserRoutes(u fiber.Router, authMw fiber.Handler, l ledger.Ledger) {
	ctrl := registrationController.NewRegistrationController(l)

	u.Get("/registrations/:id", authMw, ctrl.GetByID) // owner / admin
}
