package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/normalize"
)

// Kind selects which ledger variant is being built. Each kind carries
// its own column schema, sort comparator, amount selector and entity
// key, so callers never infer behavior from table name strings.
type Kind int

const (
	Payroll Kind = iota
	Invoice
)

func (k Kind) String() string {
	if k == Invoice {
		return "Invoice"
	}
	return "Payroll"
}

// ParseKind maps a CLI flag value onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch normalize.HeaderKey(s) {
	case "payroll":
		return Payroll, nil
	case "invoice":
		return Invoice, nil
	}
	return Payroll, fmt.Errorf("unknown ledger kind %q (want payroll or invoice)", s)
}

// Columns returns the ledger column schema for this kind.
func (k Kind) Columns() []string {
	if k == Invoice {
		return []string{
			"Patient Name", "Visit Type", "Visit Date",
			"Clinician First Name", "Clinician Last Name", "Rate", "HA Name",
		}
	}
	return []string{
		"First Name", "Last Name", "Patient Name", "Visit Type",
		"Visit Date", "Pay", "HA Name", "Rate",
	}
}

// Row projects a visit into this kind's column order.
func (k Kind) Row(v Visit) []string {
	date := normalize.FormatDate(v.Date)
	if k == Invoice {
		return []string{
			v.Patient, v.VisitType, date,
			v.First, v.Last, v.Rate.StringFixed(2), v.Agency,
		}
	}
	return []string{
		v.First, v.Last, v.Patient, v.VisitType, date,
		v.Pay.StringFixed(2), v.Agency, v.Rate.StringFixed(2),
	}
}

// Amount selects the currency column this kind reconciles and exports:
// negotiated pay for payroll, invoice rate for invoices.
func (k Kind) Amount(v Visit) decimal.Decimal {
	if k == Invoice {
		return v.Rate
	}
	return v.Pay
}

// EntityKey selects the grouping key for per-entity documents:
// clinician full name for payroll, agency name for invoices.
func (k Kind) EntityKey(v Visit) string {
	if k == Invoice {
		return v.Agency
	}
	return v.ClinicianName()
}

// Compare orders two visits for this kind's itemized ledger. Ties
// return 0 so a stable sort preserves input order as the final key.
func (k Kind) Compare(a, b Visit) int {
	if k == Invoice {
		return compareKeys(
			keyPair{normalize.Key(a.Patient), normalize.Key(b.Patient)},
			datePair{a.Date, b.Date},
			keyPair{normalize.Key(a.Last), normalize.Key(b.Last)},
			keyPair{normalize.Key(a.First), normalize.Key(b.First)},
			keyPair{normalize.Key(a.VisitType), normalize.Key(b.VisitType)},
		)
	}
	return compareKeys(
		datePair{a.Date, b.Date},
		keyPair{normalize.Key(a.Patient), normalize.Key(b.Patient)},
		keyPair{normalize.Key(a.Last), normalize.Key(b.Last)},
		keyPair{normalize.Key(a.First), normalize.Key(b.First)},
		keyPair{normalize.Key(a.VisitType), normalize.Key(b.VisitType)},
	)
}

type comparer interface{ cmp() int }

type keyPair struct{ a, b string }

func (p keyPair) cmp() int {
	switch {
	case p.a < p.b:
		return -1
	case p.a > p.b:
		return 1
	}
	return 0
}

type datePair struct{ a, b *time.Time }

func (p datePair) cmp() int {
	at := normalize.SortTime(p.a)
	bt := normalize.SortTime(p.b)
	switch {
	case at.Before(bt):
		return -1
	case at.After(bt):
		return 1
	}
	return 0
}

func compareKeys(keys ...comparer) int {
	for _, k := range keys {
		if c := k.cmp(); c != 0 {
			return c
		}
	}
	return 0
}

// LedgerVisit rebuilds a Visit from one of this kind's ledger rows,
// using a column index over Columns(). Columns the kind does not carry
// stay at their zero values.
func (k Kind) LedgerVisit(idx map[string]int, row []string) Visit {
	get := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	if k == Invoice {
		return Visit{
			Patient:   get("Patient Name"),
			VisitType: get("Visit Type"),
			Date:      normalize.ParseDate(get("Visit Date")),
			First:     get("Clinician First Name"),
			Last:      get("Clinician Last Name"),
			Rate:      normalize.ParseMoney(get("Rate")),
			Agency:    get("HA Name"),
		}
	}
	return Visit{
		First:     get("First Name"),
		Last:      get("Last Name"),
		Patient:   get("Patient Name"),
		VisitType: get("Visit Type"),
		Date:      normalize.ParseDate(get("Visit Date")),
		Pay:       normalize.ParseMoney(get("Pay")),
		Agency:    get("HA Name"),
		Rate:      normalize.ParseMoney(get("Rate")),
	}
}

// TableName is the Tabular Store table for a bucket's itemized ledger.
func (k Kind) TableName(bucket string) string {
	return fmt.Sprintf("%s_%s", bucket, k)
}

// SummaryTableName is the Tabular Store table for a bucket's entity summary.
func (k Kind) SummaryTableName(bucket string) string {
	return fmt.Sprintf("%s_%s_Summary", bucket, k)
}

// DocFolder is the Document Store subfolder documents of this kind land in.
func (k Kind) DocFolder() string {
	return k.String()
}

// PeriodLabel is the header line label on exported documents.
func (k Kind) PeriodLabel() string {
	if k == Invoice {
		return "Invoice Period"
	}
	return "Pay Period"
}
