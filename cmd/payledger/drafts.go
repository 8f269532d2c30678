package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/careops/payledger/internal/exitcode"
	"github.com/careops/payledger/internal/logging"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/notify"
	"github.com/careops/payledger/internal/store"
)

var (
	draftsRunID  string
	draftsBucket string
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Create mail drafts for a completed export run",
	RunE:  runDrafts,
}

func init() {
	f := draftsCmd.Flags()
	f.StringVar(&draftsRunID, "run-id", "", "Export run to draft mail for (required)")
	f.StringVar(&draftsBucket, "bucket", "", "Bucket the run exported (required)")
	f.StringVar(&cfg.KindName, "kind", "payroll", "Ledger kind: payroll or invoice")
	f.StringVar(&cfg.DocRoot, "doc-root", "documents", "Document store root directory")
	_ = draftsCmd.MarkFlagRequired("run-id")
	_ = draftsCmd.MarkFlagRequired("bucket")
	rootCmd.AddCommand(draftsCmd)
}

func runDrafts(cmd *cobra.Command, args []string) error {
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

	mailer := notify.NewFSMailer(cfg.DocRoot)
	drafter := notify.NewDrafter(tab, mailer, log, &cfg.Admin)

	summary, err := drafter.Run(ctx, draftsRunID, draftsBucket, kind)
	if err != nil {
		log.Error().Err(err).Str("run_id", draftsRunID).Msg("drafting failed")
		os.Exit(exitcode.ExportError)
	}

	fmt.Printf("Drafts complete: %d created, %d skipped, %d failed\n",
		summary.Created, summary.Skipped, summary.Failed)
	if len(summary.Report.Missing) > 0 {
		fmt.Printf("Missing entities: %s\n", strings.Join(summary.Report.Missing, ", "))
	}
	if summary.Failed > 0 || len(summary.Report.Missing) > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
