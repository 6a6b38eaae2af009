package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	database "racehub_backend/internals/databases"
	"racehub_backend/internals/features/races/ledger"
	paymentScheduler "racehub_backend/internals/features/races/payments/scheduler"
	paymentService "racehub_backend/internals/features/races/payments/service"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the reconcile tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db := connect()
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Println("migrate: ok")
			return nil
		},
	}
}

func backfillCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "backfill-counters",
		Short: "Seed bib_counters from paid non-vanity registrations",
		Long: `Seed bib_counters from historical paid non-vanity registrations.

Run once before switching BIB_COUNTER_MODE from recount to atomic.
Existing counters are never lowered, so the command is safe to repeat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db := connect()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rows, err := ledger.NewGormLedger(db).BackfillBibCounters(ctx)
			if err != nil {
				return fmt.Errorf("backfill: %w", err)
			}
			fmt.Printf("backfill-counters: %d counter rows upserted\n", rows)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [registration-id]",
		Short: "Run the manual payment sync for one registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := paymentService.ParseExternalID(args[0])
			if err != nil {
				return err
			}
			mod, cleanup, err := buildModule()
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := mod.Reconciler.Sync(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("sync %s: %w", id, err)
			}
			fmt.Printf("registration=%s status=%s race_number=%s already_paid=%v\n",
				res.RegistrationID, res.Status, res.RaceNumber, res.AlreadyPaid)
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one pass of the pending-payment sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, cleanup, err := buildModule()
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := paymentScheduler.NewPendingSweeper(mod.Ledger, mod.Reconciler, batch).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("sweep: %s\n", st)
			return nil
		},
	}
	cmd.Flags().IntVarP(&batch, "batch", "n", 50, "registrations per pass")
	return cmd
}
