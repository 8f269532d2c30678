package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/careops/payledger/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "payledger",
	Short: "Payroll and invoice ledger pipeline",
	Long:  "Imports agency visit exports, derives payroll and invoice ledgers, reconciles them against the raw snapshot, and exports per-entity documents with mail drafts.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("PAYLEDGER_DB_URL"), "Postgres connection string (or set PAYLEDGER_DB_URL)")
	pf.StringVar(&cfg.AdminPath, "config", "payledger.yaml", "Path to the admin YAML config")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
}
