package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/careops/payledger/internal/normalize"
)

// Config holds all runtime configuration for a payledger run.
type Config struct {
	DSN       string
	AdminPath string
	LogFormat string // "text" or "json"
	DocRoot   string // Document Store root directory

	FilePath  string // import: path to the visit export Parquet file
	KindName  string // export/drafts: "payroll" or "invoice"
	MaxPerRun int    // export: per-run entity quota, 0 = unlimited
	Strict    bool   // reconcile: non-zero exit on any failed check
	Yes       bool   // reset: confirmation flag

	Admin Admin
}

// Admin is the label→value admin configuration the workbook owner
// maintains: pay period boundaries, approval window, storage
// identifiers, classification membership and mail templates.
type Admin struct {
	PayPeriodStart *time.Time
	PayPeriodEnd   *time.Time
	ApprovedFrom   *time.Time
	ApprovedTo     *time.Time

	OutputRoot string
	Buckets    []string

	SpecialAgencyPrefix string
	SpecialRateFactor   decimal.Decimal
	SpecialRateCap      decimal.Decimal

	W2Clinicians []string

	Mail MailTemplates
}

// MailTemplates configures draft generation per ledger kind.
type MailTemplates struct {
	PayrollSubject string `yaml:"payroll_subject"`
	PayrollBody    string `yaml:"payroll_body"`
	PayrollReplyTo string `yaml:"payroll_reply_to"`
	PayrollCC      string `yaml:"payroll_cc"`
	InvoiceSubject string `yaml:"invoice_subject"`
	InvoiceBody    string `yaml:"invoice_body"`
	InvoiceReplyTo string `yaml:"invoice_reply_to"`
	InvoiceCC      string `yaml:"invoice_cc"`
}

// yamlAdmin is the on-disk YAML structure. Dates are strings so the
// admin file accepts the same formats the raw export uses.
type yamlAdmin struct {
	PayPeriodStart      string        `yaml:"pay_period_start"`
	PayPeriodEnd        string        `yaml:"pay_period_end"`
	ApprovedFrom        string        `yaml:"approved_from"`
	ApprovedTo          string        `yaml:"approved_to"`
	OutputRoot          string        `yaml:"output_root"`
	Buckets             []string      `yaml:"buckets"`
	SpecialAgencyPrefix string        `yaml:"special_agency_prefix"`
	SpecialRateFactor   string        `yaml:"special_rate_factor"`
	SpecialRateCap      string        `yaml:"special_rate_cap"`
	W2Clinicians        []string      `yaml:"w2_clinicians"`
	Mail                MailTemplates `yaml:"mail"`
}

// LoadAdmin reads the YAML admin file and merges its values over the
// defaults. Parse failures are fatal; missing required labels are
// reported by Validate so callers decide when absence matters.
func (c *Config) LoadAdmin(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read admin config: %w", err)
	}
	var ya yamlAdmin
	if err := yaml.Unmarshal(data, &ya); err != nil {
		return fmt.Errorf("parse admin config: %w", err)
	}

	a := defaultAdmin()
	a.PayPeriodStart = normalize.ParseDate(ya.PayPeriodStart)
	a.PayPeriodEnd = normalize.ParseDate(ya.PayPeriodEnd)
	a.ApprovedFrom = normalize.ParseDate(ya.ApprovedFrom)
	a.ApprovedTo = normalize.ParseDate(ya.ApprovedTo)
	if ya.OutputRoot != "" {
		a.OutputRoot = ya.OutputRoot
	}
	if len(ya.Buckets) > 0 {
		a.Buckets = ya.Buckets
	}
	if ya.SpecialAgencyPrefix != "" {
		a.SpecialAgencyPrefix = ya.SpecialAgencyPrefix
	}
	if ya.SpecialRateFactor != "" {
		f, err := decimal.NewFromString(ya.SpecialRateFactor)
		if err != nil {
			return fmt.Errorf("parse special_rate_factor: %w", err)
		}
		a.SpecialRateFactor = f
	}
	if ya.SpecialRateCap != "" {
		rateCap, err := decimal.NewFromString(ya.SpecialRateCap)
		if err != nil {
			return fmt.Errorf("parse special_rate_cap: %w", err)
		}
		a.SpecialRateCap = rateCap
	}
	if len(ya.W2Clinicians) > 0 {
		a.W2Clinicians = ya.W2Clinicians
	}
	a.Mail = ya.Mail

	c.Admin = a
	return nil
}

func defaultAdmin() Admin {
	return Admin{
		Buckets:             []string{"D9", "D10"},
		SpecialAgencyPrefix: "D9 ALL ABOUT YOU",
		SpecialRateFactor:   decimal.RequireFromString("1.2"),
		SpecialRateCap:      decimal.NewFromInt(89),
		W2Clinicians: []string{
			"Grayson Lambert",
			"Adriana Murrill",
			"Emily Steinman",
			"Cameron Lombardi",
			"Glenda Kiziltan",
			"Sheila Wilson",
		},
	}
}

// MissingLabels returns every required admin label that is absent or
// blank. All labels are checked so the operator sees the full list in
// one failure instead of one per run.
func (a *Admin) MissingLabels() []string {
	var missing []string
	if a.ApprovedFrom == nil {
		missing = append(missing, "approved_from")
	}
	if a.ApprovedTo == nil {
		missing = append(missing, "approved_to")
	}
	if a.PayPeriodStart == nil {
		missing = append(missing, "pay_period_start")
	}
	if a.PayPeriodEnd == nil {
		missing = append(missing, "pay_period_end")
	}
	if a.OutputRoot == "" {
		missing = append(missing, "output_root")
	}
	return missing
}

// Validate is the precondition gate run before any mutation: every
// required admin label must be present.
func (a *Admin) Validate() error {
	if missing := a.MissingLabels(); len(missing) > 0 {
		return fmt.Errorf("admin config missing required labels: %s",
			strings.Join(missing, ", "))
	}
	return nil
}

// PeriodLabel renders the pay period the way folders and document
// headers show it.
func (a *Admin) PeriodLabel() string {
	return fmt.Sprintf("%s - %s",
		normalize.FormatDate(a.PayPeriodStart),
		normalize.FormatDate(a.PayPeriodEnd))
}

// PeriodFolder renders the pay period as a path-safe folder name.
func (a *Admin) PeriodFolder() string {
	return fmt.Sprintf("%s to %s",
		a.PayPeriodStart.Format("01-02-2006"),
		a.PayPeriodEnd.Format("01-02-2006"))
}

// ApprovalWindow returns the inclusive approval window, with the end
// extended to end-of-day.
func (a *Admin) ApprovalWindow() (time.Time, time.Time) {
	return *a.ApprovedFrom, normalize.EndOfDay(*a.ApprovedTo)
}

// ValidateWithDSN checks the flags needed for store-backed commands.
func (c *Config) ValidateWithDSN() error {
	if c.DSN == "" {
		return fmt.Errorf("--dsn or PAYLEDGER_DB_URL is required")
	}
	return nil
}
