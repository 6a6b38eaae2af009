package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"racehub_backend/internals/features/races/ledger"
	"racehub_backend/internals/features/races/payments/gateway"
	"racehub_backend/internals/features/races/payments/service"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

// Syncer is the manual sync path; *service.Reconciler implements it.
type Syncer interface {
	Sync(ctx context.Context, id uuid.UUID) (*service.Result, error)
}

type SweepStats struct {
	Checked int
	Paid    int
	Pending int
	Stopped int
	Skipped int
	Failed  int
}

func (s SweepStats) String() string {
	return fmt.Sprintf("checked=%d paid=%d pending=%d stopped=%d skipped=%d failed=%d",
		s.Checked, s.Paid, s.Pending, s.Stopped, s.Skipped, s.Failed)
}

// PendingSweeper re-syncs pending registrations whose next_sync_at is due.
type PendingSweeper struct {
	Queue   ledger.SyncQueue
	Syncer  Syncer
	Batch   int
	Backoff BackoffConfig
	// MaxAttempts: setelah sekian percobaan registrasi dikeluarkan dari antrian (0 = tanpa batas).
	MaxAttempts int
	Timeout     time.Duration // batas satu putaran
	Now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPendingSweeper(q ledger.SyncQueue, s Syncer, batch int) *PendingSweeper {
	if batch <= 0 {
		batch = 50
	}
	return &PendingSweeper{
		Queue:   q,
		Syncer:  s,
		Batch:   batch,
		Backoff:     DefaultBackoff(),
		MaxAttempts: 50,
		Timeout:     4 * time.Minute,
		Now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RunOnce processes one batch. Error hanya untuk kegagalan membaca antrian.
func (s *PendingSweeper) RunOnce(ctx context.Context) (SweepStats, error) {
	var st SweepStats

	due, err := s.Queue.ListDueForSync(ctx, s.Now(), s.Batch)
	if err != nil {
		return st, err
	}

	for _, reg := range due {
		if ctx.Err() != nil {
			break
		}
		st.Checked++

		res, err := s.Syncer.Sync(ctx, reg.RegistrationID)
		switch {
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrBusy):
			// dihapus / sedang diproses instance lain
			st.Skipped++
			continue
		case err != nil:
			st.Failed++
			s.record(ctx, reg, err)
			continue
		case res.Status == string(regModel.StatusPaid):
			st.Paid++
			continue
		case gateway.IsFinalStatus(res.Status):
			st.Stopped++
			s.stop(ctx, reg, "provider status "+res.Status)
			continue
		}

		st.Pending++
		s.record(ctx, reg, nil)
	}
	return st, nil
}

func (s *PendingSweeper) record(ctx context.Context, reg regModel.Registration, syncErr error) {
	attempt := reg.RegistrationSyncAttempts + 1
	if s.MaxAttempts > 0 && attempt >= s.MaxAttempts {
		reason := fmt.Sprintf("gave up after %d attempts", attempt)
		if syncErr != nil {
			reason += ": " + syncErr.Error()
		}
		s.stop(ctx, reg, reason)
		return
	}
	next := s.nextAt(attempt)
	if err := s.Queue.RecordSyncAttempt(ctx, reg.RegistrationID, syncErr, &next); err != nil {
		log.Printf("[WARN] sweeper: record attempt registration=%s: %v", reg.RegistrationID, err)
	}
}

func (s *PendingSweeper) stop(ctx context.Context, reg regModel.Registration, reason string) {
	log.Printf("[INFO] sweeper: stop syncing registration=%s: %s", reg.RegistrationID, reason)
	if err := s.Queue.StopSync(ctx, reg.RegistrationID, reason, s.Now()); err != nil {
		log.Printf("[WARN] sweeper: stop registration=%s: %v", reg.RegistrationID, err)
	}
}

func (s *PendingSweeper) nextAt(attempt int) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextRetryAt(s.Now(), attempt, s.Backoff, s.rng)
}

// Start schedules RunOnce on a cron schedule (e.g. "@every 1m"). Putaran yang
// masih berjalan tidak ditumpuk.
func (s *PendingSweeper) Start(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()

		st, err := s.RunOnce(ctx)
		if err != nil {
			log.Printf("[PENDING-SWEEPER] error: %v", err)
			return
		}
		if st.Checked > 0 {
			log.Printf("[PENDING-SWEEPER] %s", st)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add sweeper cron %q: %w", spec, err)
	}

	log.Printf("[PENDING-SWEEPER] started schedule=%q batch=%d", spec, s.Batch)
	c.Start()
	return c, nil
}
