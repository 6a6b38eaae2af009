package controller

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"racehub_backend/internals/features/races/payments/scheduler"
	helper "racehub_backend/internals/helpers"
)

type Sweeper interface {
	RunOnce(ctx context.Context) (scheduler.SweepStats, error)
}

// SweepController menjalankan satu putaran sweeper di luar jadwal cron (admin).
type SweepController struct {
	Sweeper Sweeper
}

func NewSweepController(s Sweeper) *SweepController {
	return &SweepController{Sweeper: s}
}

// POST /api/a/payments/sweep
func (ctrl *SweepController) RunNow(c *fiber.Ctx) error {
	st, err := ctrl.Sweeper.RunOnce(c.UserContext())
	if err != nil {
		log.Printf("[ERROR] manual sweep: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal menjalankan sweeper")
	}
	log.Printf("[INFO] manual sweep: %s", st)
	return helper.JsonOK(c, "Sweep selesai", fiber.Map{
		"checked": st.Checked,
		"paid":    st.Paid,
		"pending": st.Pending,
		"stopped": st.Stopped,
		"skipped": st.Skipped,
		"failed":  st.Failed,
	})
}
