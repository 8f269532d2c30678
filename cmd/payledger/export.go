package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/careops/payledger/internal/exitcode"
	"github.com/careops/payledger/internal/export"
	"github.com/careops/payledger/internal/logging"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

var (
	exportRunID  string
	exportBucket string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one document per ledger entity to the document store",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportBucket, "bucket", "", "Bucket to export (required)")
	f.StringVar(&cfg.KindName, "kind", "payroll", "Ledger kind: payroll or invoice")
	f.StringVar(&cfg.DocRoot, "doc-root", "documents", "Document store root directory")
	f.IntVar(&cfg.MaxPerRun, "max-per-run", 0, "Entities per invocation before suspending (0 = unlimited)")
	f.StringVar(&exportRunID, "run-id", "", "Resume an earlier run instead of starting a new one")
	_ = exportCmd.MarkFlagRequired("bucket")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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
	kind, err := model.ParseKind(cfg.KindName)
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	pool, err := store.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.StoreConnError)
	}
	defer pool.Close()
	tab := store.NewPostgres(pool)

	runID := exportRunID
	if runID == "" {
		runID = uuid.New().String()
	}

	docs := store.NewFSDocuments(cfg.DocRoot)
	runner := export.NewRunner(tab, docs, store.NewRunState(tab), log, &cfg.Admin)
	runner.Quota = cfg.MaxPerRun

	summary, err := export.NewScheduler(log).Drive(ctx, runner, runID, exportBucket, kind)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("export failed")
		os.Exit(exitcode.ExportError)
	}

	fmt.Printf("Export complete: run %s, %d created, %d skipped, %d failed (%.1fs)\n",
		runID, summary.Created, summary.Skipped, summary.Failed, summary.Duration.Seconds())
	if summary.Failed > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
