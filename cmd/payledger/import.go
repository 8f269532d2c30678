package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/careops/payledger/internal/exitcode"
	"github.com/careops/payledger/internal/ingest"
	"github.com/careops/payledger/internal/logging"
	"github.com/careops/payledger/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a Parquet visit export into the raw table",
	RunE:  runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to the visit export Parquet file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
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

	summary, err := ingest.Run(ctx, tab, log, &cfg)
	if err != nil {
		if pe, ok := err.(*ingest.PipelineError); ok {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("import failed")
			switch pe.Phase {
			case "preflight":
				os.Exit(exitcode.PreconditionErr)
			default:
				os.Exit(exitcode.ImportError)
			}
		}
		log.Error().Err(err).Msg("import failed")
		os.Exit(exitcode.ImportError)
	}

	fmt.Printf("Import complete: %d rows read, %d kept, %d outside window or rejected (%.1fs)\n",
		summary.RowsRead, summary.RowsKept, summary.RowsRejected, summary.Duration.Seconds())
	return nil
}
