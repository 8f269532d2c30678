package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/careops/payledger/internal/exitcode"
	"github.com/careops/payledger/internal/ledger"
	"github.com/careops/payledger/internal/logging"
	"github.com/careops/payledger/internal/store"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the derived snapshot and all ledger tables",
	RunE:  runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.LoadAdmin(cfg.AdminPath); err != nil {
		log.Error().Err(err).Msg("admin config load failed")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.Admin.Validate(); err != nil {
		log.Error().Err(err).Msg("admin config incomplete")
		os.Exit(exitcode.PreconditionErr)
	}

	pool, err := store.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.StoreConnError)
	}
	defer pool.Close()
	tab := store.NewPostgres(pool)

	summary, err := ledger.Rebuild(ctx, tab, log, &cfg.Admin)
	if err != nil {
		log.Error().Err(err).Msg("rebuild failed")
		os.Exit(exitcode.BuildError)
	}

	fmt.Printf("Rebuild complete: %d derived rows, %d ledgers written (%.1fs)\n",
		summary.DerivedRows, summary.Ledgers, summary.Duration.Seconds())
	return nil
}
