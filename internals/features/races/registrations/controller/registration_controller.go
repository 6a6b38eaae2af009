package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"racehub_backend/internals/features/races/ledger"
	"racehub_backend/internals/features/races/registrations/dto"
	helper "racehub_backend/internals/helpers"
	"racehub_backend/internals/middlewares/auth"
)

type RegistrationController struct {
	Ledger ledger.Ledger
}

func NewRegistrationController(l ledger.Ledger) *RegistrationController {
	return &RegistrationController{Ledger: l}
}

// GET /api/u/registrations/:id
func (ctrl *RegistrationController) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil || id == uuid.Nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "registration id tidak valid")
	}

	reg, err := ctrl.Ledger.ReadRegistration(c.UserContext(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		return helper.JsonError(c, fiber.StatusNotFound, "Registrasi tidak ditemukan")
	}
	if err != nil {
		log.Printf("[ERROR] read registration %s: %v", id, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal mengambil registrasi")
	}

	if err := auth.RequireOwnerOrAdmin(c, reg.RegistrationUserID, "registrasi"); err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.FromModel(reg))
}
