package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

// ReadVisits loads a visit table from the Tabular Store. Fully blank
// rows are excluded; a missing required column is fatal before any
// ledger is built.
func ReadVisits(ctx context.Context, tab store.Tabular, table string) ([]model.Visit, error) {
	t, err := tab.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("%s missing or empty", table)
	}
	idx, err := model.IndexColumns(t.Header,
		model.ColFirst, model.ColLast, model.ColPatient, model.ColVisitType,
		model.ColVisitDate, model.ColAgency, model.ColPay, model.ColRate,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table, err)
	}

	var visits []model.Visit
	for _, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		visits = append(visits, model.VisitFromRecord(idx, row))
	}
	return visits, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// ReadGroups rebuilds the name-sorted entity groups from a bucket's
// itemized ledger table as written to the store. This is the entity set
// document export walks and draft completion reconciles against.
func ReadGroups(ctx context.Context, tab store.Tabular, bucket string, kind model.Kind) ([]model.EntityGroup, error) {
	table := kind.TableName(bucket)
	t, err := tab.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("%s missing or empty", table)
	}
	idx, err := model.IndexColumns(t.Header, kind.Columns()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table, err)
	}

	l := &model.Ledger{Bucket: bucket, Kind: kind}
	for _, row := range t.Rows {
		if totalsOrBlankRow(row) {
			continue
		}
		l.Entries = append(l.Entries, model.Entry{Visit: kind.LedgerVisit(idx, row)})
	}
	return Groups(l), nil
}

func totalsOrBlankRow(row []string) bool {
	blank := true
	for _, c := range row {
		if c == "TOTALS" || c == "TOTAL" {
			return true
		}
		if c != "" {
			blank = false
		}
	}
	return blank
}

// WriteVisits rewrites a visit table wholesale.
func WriteVisits(ctx context.Context, tab store.Tabular, table string, visits []model.Visit) error {
	t := store.Table{Header: model.VisitHeader()}
	for _, v := range visits {
		t.Rows = append(t.Rows, v.Record())
	}
	if err := tab.WriteAll(ctx, table, t); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

// WriteLedger rewrites the itemized ledger table: header, data rows,
// then one synthetic TOTALS row whose currency cells are the
// precomputed column sums.
func WriteLedger(ctx context.Context, tab store.Tabular, l *model.Ledger) error {
	t := store.Table{Header: l.Kind.Columns()}
	for _, e := range l.Entries {
		t.Rows = append(t.Rows, l.Kind.Row(e.Visit))
	}
	t.Rows = append(t.Rows, totalsRow(l))

	table := l.Kind.TableName(l.Bucket)
	if err := tab.WriteAll(ctx, table, t); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

func totalsRow(l *model.Ledger) []string {
	if l.Kind == model.Invoice {
		// Patient, Visit Type, Visit Date, First, Last, Rate, HA Name
		return []string{"", "", "", "", "TOTALS", l.RateTotal.StringFixed(2), ""}
	}
	// First, Last, Patient, Visit Type, Visit Date, Pay, HA Name, Rate
	return []string{"", "", "", "", "TOTALS",
		l.PayTotal.StringFixed(2), "", l.RateTotal.StringFixed(2)}
}

// WriteClinicianSummary rewrites a payroll summary table with its
// TOTALS row.
func WriteClinicianSummary(ctx context.Context, tab store.Tabular, bucket string, rows []model.ClinicianSummary) error {
	t := store.Table{Header: []string{
		"First Name", "Last Name", "Total Visits", "1099", "W2", "Total Pay",
	}}
	var visits int
	var total1099, totalW2, totalPay decimal.Decimal
	for _, r := range rows {
		pay1099, payW2 := "", ""
		if !r.Pay1099.IsZero() {
			pay1099 = r.Pay1099.StringFixed(2)
		}
		if !r.PayW2.IsZero() {
			payW2 = r.PayW2.StringFixed(2)
		}
		t.Rows = append(t.Rows, []string{
			r.First, r.Last, fmt.Sprintf("%d", r.Visits),
			pay1099, payW2, r.TotalPay.StringFixed(2),
		})
		visits += r.Visits
		total1099 = total1099.Add(r.Pay1099)
		totalW2 = totalW2.Add(r.PayW2)
		totalPay = totalPay.Add(r.TotalPay)
	}
	t.Rows = append(t.Rows, []string{
		"", "TOTALS", fmt.Sprintf("%d", visits),
		total1099.StringFixed(2), totalW2.StringFixed(2), totalPay.StringFixed(2),
	})

	table := model.Payroll.SummaryTableName(bucket)
	if err := tab.WriteAll(ctx, table, t); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

// WriteAgencySummary rewrites an invoice summary table with its TOTAL row.
func WriteAgencySummary(ctx context.Context, tab store.Tabular, bucket string, rows []model.AgencySummary) error {
	t := store.Table{Header: []string{"HA Name", "Total Visits", "Invoice Total"}}
	var total decimal.Decimal
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Agency, fmt.Sprintf("%d", r.Visits), r.Total.StringFixed(2),
		})
		total = total.Add(r.Total)
	}
	t.Rows = append(t.Rows, []string{"TOTALS", "", total.StringFixed(2)})

	table := model.Invoice.SummaryTableName(bucket)
	if err := tab.WriteAll(ctx, table, t); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}
