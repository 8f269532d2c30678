package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/ledger"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

func TestMatch_CentsEquality(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"12.00", "12.00", true},
		{"12.004", "12.00", true},
		{"12.004", "12.006", false},
		{"12.005", "12.00", false},
		{"0", "0.001", true},
	}
	for _, c := range cases {
		a := decimal.RequireFromString(c.a)
		b := decimal.RequireFromString(c.b)
		if got := Match(a, b); got != c.want {
			t.Errorf("Match(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCompletion(t *testing.T) {
	expected := []string{"A", "B", "C"}
	attempts := []Attempt{
		{Key: "A", Completed: true},
		{Key: "B", Completed: false},
		{Key: "A", Completed: true}, // duplicate counts once
	}
	r := Completion(expected, attempts)
	if r.Expected != 3 || r.Attempted != 2 || r.Completed != 1 {
		t.Errorf("report = %+v", r)
	}
	if len(r.Missing) != 1 || r.Missing[0] != "C" {
		t.Errorf("Missing = %v, want [C]", r.Missing)
	}
}

func TestCompletion_AllAttempted(t *testing.T) {
	r := Completion([]string{"A"}, []Attempt{{Key: "A", Completed: true}})
	if r.Missing != nil {
		t.Errorf("Missing = %v, want none", r.Missing)
	}
}

func seedLedgers(t *testing.T, tab store.Tabular, admin *config.Admin, visits []model.Visit) {
	t.Helper()
	ctx := context.Background()
	if err := ledger.WriteVisits(ctx, tab, store.RawTable, visits); err != nil {
		t.Fatalf("seed raw: %v", err)
	}
	if _, err := ledger.Rebuild(ctx, tab, zerolog.Nop(), admin); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
}

func testVisit(patient, agency string, pay, rate int64) model.Visit {
	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return model.Visit{
		First: "A", Last: "B", Patient: patient, VisitType: "RN",
		Date: &d, Agency: agency,
		Pay:  decimal.NewFromInt(pay),
		Rate: decimal.NewFromInt(rate),
	}
}

func testAdmin() *config.Admin {
	return &config.Admin{
		Buckets:             []string{"D9", "D10"},
		SpecialAgencyPrefix: "D9 ALL ABOUT YOU",
		SpecialRateFactor:   decimal.RequireFromString("1.2"),
		SpecialRateCap:      decimal.NewFromInt(89),
	}
}

func TestRun_AllChecksMatchAfterRebuild(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	admin := testAdmin()
	seedLedgers(t, tab, admin, []model.Visit{
		testVisit("P1", "D9 HOMECARE", 50, 75),
		testVisit("P2", "D9 HOMECARE", 30, 45),
		testVisit("P3", "D10 CARE", 40, 60),
		testVisit("P4", "UNRELATED LLC", 99, 99),
	})

	checks, err := Run(ctx, tab, admin.Buckets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 2 buckets: per-bucket + combined payroll counts, per-bucket +
	// combined invoice counts, then per-bucket dollar checks per side.
	if len(checks) != 10 {
		t.Fatalf("checks = %d, want 10", len(checks))
	}
	for _, c := range checks {
		if !c.Match {
			t.Errorf("unexpected mismatch: %+v", c)
		}
	}
}

func TestRun_DetectsTamperedLedger(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	admin := testAdmin()
	seedLedgers(t, tab, admin, []model.Visit{
		testVisit("P1", "D9 HOMECARE", 50, 75),
		testVisit("P2", "D9 HOMECARE", 30, 45),
	})

	// Drop one data row from the D9 payroll ledger.
	table := model.Payroll.TableName("D9")
	lt, err := tab.ReadAll(ctx, table)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	lt.Rows = lt.Rows[1:]
	if err := tab.WriteAll(ctx, table, lt); err != nil {
		t.Fatalf("tamper ledger: %v", err)
	}

	checks, err := Run(ctx, tab, admin.Buckets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	mismatches := 0
	for _, c := range checks {
		if !c.Match {
			mismatches++
		}
	}
	if mismatches == 0 {
		t.Fatal("tampered ledger should fail at least one check")
	}
}

func TestWriteChecks(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	checks := []Check{
		{Kind: "Payroll", Source: "Raw", Target: "D9 Payroll",
			Raw: decimal.NewFromInt(2), Derived: decimal.NewFromInt(2), Match: true},
		{Kind: "Invoice $", Source: "Raw", Target: "D9 Invoice",
			Raw: decimal.NewFromInt(100), Derived: decimal.NewFromInt(90), Match: false},
	}
	if err := WriteChecks(ctx, tab, checks); err != nil {
		t.Fatalf("WriteChecks: %v", err)
	}
	tbl, err := tab.ReadAll(ctx, store.AuditChecksTable)
	if err != nil {
		t.Fatalf("read checks: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl.Rows))
	}
	if tbl.Rows[0][5] != "YES" || tbl.Rows[1][5] != "NO" {
		t.Errorf("match column wrong: %v", tbl.Rows)
	}
}
