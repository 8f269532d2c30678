package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/careops/payledger/internal/exitcode"
	"github.com/careops/payledger/internal/logging"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all pipeline tables for a fresh pay period",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&cfg.Yes, "yes", false, "Confirm the reset (required)")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if !cfg.Yes {
		log.Error().Msg("reset clears every pipeline table; re-run with --yes to confirm")
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

	tables := []string{
		store.RawTable, store.DerivedTable,
		store.AuditChecksTable, store.ExportAuditTable,
		store.MailAuditTable, store.RunStateTable,
	}
	for _, bucket := range cfg.Admin.Buckets {
		for _, kind := range []model.Kind{model.Payroll, model.Invoice} {
			tables = append(tables, kind.TableName(bucket), kind.SummaryTableName(bucket))
		}
	}

	for _, table := range tables {
		if err := tab.Clear(ctx, table); err != nil {
			log.Error().Err(err).Str("table", table).Msg("clear failed")
			os.Exit(exitcode.BuildError)
		}
		log.Info().Str("table", table).Msg("table cleared")
	}

	fmt.Printf("Reset complete: %d tables cleared\n", len(tables))
	return nil
}
