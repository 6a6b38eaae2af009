// racectl is the operator CLI for the reconcile stack.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"racehub_backend/internals/configs"
	database "racehub_backend/internals/databases"
	paymentService "racehub_backend/internals/features/races/payments/service"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "racectl",
		Short:   "racectl - bib counter & payment reconcile tools",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configs.LoadEnv()
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens the database described by the environment.
func connect() (configs.Config, *gorm.DB) {
	cfg := configs.Load()
	return cfg, database.ConnectDB(cfg)
}

// buildModule wires the same reconcile stack the HTTP server uses (redis lock included).
func buildModule() (*paymentService.Module, func(), error) {
	cfg, db := connect()
	rdb := database.ConnectRedis(cfg)
	mod, err := paymentService.Build(cfg, db, rdb)
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return mod, cleanup, nil
}
