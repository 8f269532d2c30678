package model

import (
	"github.com/shopspring/decimal"
)

// Entry is one ledger row: a derived visit plus its advisory duplicate
// flag. The flag never removes data.
type Entry struct {
	Visit     Visit
	Duplicate bool
}

// Ledger is the ordered, totaled row set for one bucket and kind. It is
// rebuilt wholesale on every recalculation, never patched in place.
type Ledger struct {
	Bucket  string
	Kind    Kind
	Entries []Entry

	// PayTotal and RateTotal are the sums of the corresponding currency
	// columns over all entries. Payroll ledgers carry both; invoice
	// ledgers only use RateTotal.
	PayTotal  decimal.Decimal
	RateTotal decimal.Decimal
}

// RowCount is the number of data rows, excluding the synthetic TOTALS row.
func (l *Ledger) RowCount() int {
	return len(l.Entries)
}

// Total is the sum of this kind's reconciled currency column.
func (l *Ledger) Total() decimal.Decimal {
	if l.Kind == Invoice {
		return l.RateTotal
	}
	return l.PayTotal
}

// ClinicianSummary aggregates payroll rows for one clinician. Pay1099
// and PayW2 are mutually exclusive; TotalPay is always populated.
type ClinicianSummary struct {
	First    string
	Last     string
	Visits   int
	Pay1099  decimal.Decimal
	PayW2    decimal.Decimal
	IsW2     bool
	TotalPay decimal.Decimal
}

// AgencySummary aggregates invoice rows for one payer agency. Only rows
// with a non-zero rate contribute to either column.
type AgencySummary struct {
	Agency string
	Visits int
	Total  decimal.Decimal
}

// EntityGroup is the per-entity slice of a ledger used for document
// export. Entries keep the order established by the ledger sort.
type EntityGroup struct {
	Name    string
	Entries []Entry
}
