package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"racehub_backend/internals/features/races/payments/dto"
	"racehub_backend/internals/features/races/payments/service"
	helper "racehub_backend/internals/helpers"
	"racehub_backend/internals/middlewares/auth"
)

type SyncController struct {
	Reconciler  *service.Reconciler
	RequireAuth bool
}

func NewSyncController(rec *service.Reconciler, requireAuth bool) *SyncController {
	return &SyncController{Reconciler: rec, RequireAuth: requireAuth}
}

// GET /api/u/registrations/:id/payment-sync
func (ctrl *SyncController) Sync(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil || id == uuid.Nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "registration id tidak valid")
	}
	ctx := c.UserContext()

	if ctrl.RequireAuth {
		reg, err := ctrl.Reconciler.Registration(ctx, id)
		if err != nil {
			return ctrl.fail(c, id, err)
		}
		if err := auth.RequireOwnerOrAdmin(c, reg.RegistrationUserID, "payment sync"); err != nil {
			return err
		}
	}

	res, err := ctrl.Reconciler.Sync(ctx, id)
	if err != nil {
		return ctrl.fail(c, id, err)
	}
	return c.JSON(dto.SyncResponse{
		Success:    true,
		Status:     res.Status,
		RaceNumber: res.RaceNumber,
		QRCodeURL:  res.QRCodeURL,
	})
}

func (ctrl *SyncController) fail(c *fiber.Ctx, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Registrasi tidak ditemukan")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		// provider gagal/timeout: status tetap pending, tidak ada mutasi
		return c.JSON(dto.SyncResponse{Success: true, Status: "pending", ProviderUnavailable: true})
	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrConflict), helper.IsRetryablePG(err):
		return helper.JsonError(c, fiber.StatusConflict, "Registrasi sedang diproses, silakan ulangi")
	}
	log.Printf("[ERROR] payment sync registration=%s: %v", id, err)
	return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal sinkronisasi pembayaran")
}
