package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/careops/payledger/internal/exitcode"
	"github.com/careops/payledger/internal/logging"
	"github.com/careops/payledger/internal/reconcile"
	"github.com/careops/payledger/internal/store"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run the audit battery against the derived snapshot and ledgers",
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&cfg.Strict, "strict", false, "Exit non-zero when any check fails")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
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

	pool, err := store.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.StoreConnError)
	}
	defer pool.Close()
	tab := store.NewPostgres(pool)

	checks, err := reconcile.Run(ctx, tab, cfg.Admin.Buckets)
	if err != nil {
		log.Error().Err(err).Msg("reconciliation failed")
		os.Exit(exitcode.BuildError)
	}
	if err := reconcile.WriteChecks(ctx, tab, checks); err != nil {
		log.Error().Err(err).Msg("writing audit checks failed")
		os.Exit(exitcode.BuildError)
	}

	failed := 0
	for _, c := range checks {
		status := "OK"
		if !c.Match {
			status = "MISMATCH"
			failed++
		}
		fmt.Printf("%-10s %-6s %-24s raw=%s derived=%s %s\n",
			c.Kind, c.Source, c.Target,
			c.Raw.StringFixed(2), c.Derived.StringFixed(2), status)
	}
	fmt.Printf("Reconciliation complete: %d checks, %d mismatches\n", len(checks), failed)

	if cfg.Strict && failed > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
