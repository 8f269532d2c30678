package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/normalize"
)

// Document is the payload rendered for one entity: a header block plus
// a fixed-column tabular body. Only the data, its order and its totals
// are contractual; visual layout belongs to downstream formatting.
type Document struct {
	Entity      string
	PeriodLabel string
	TotalVisits int
	TotalAmount decimal.Decimal
	Columns     []string
	Rows        [][]string
}

// BuildDocument assembles the document for one entity group. Payroll
// documents keep the ledger's row order; invoice documents re-sort by
// (patient, date) before totals, matching how agencies audit them.
func BuildDocument(kind model.Kind, period string, g model.EntityGroup) *Document {
	entries := g.Entries
	if kind == model.Invoice {
		entries = append([]model.Entry(nil), entries...)
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i].Visit, entries[j].Visit
			pa, pb := strings.ToUpper(a.Patient), strings.ToUpper(b.Patient)
			if pa != pb {
				return pa < pb
			}
			return normalize.SortTime(a.Date).Before(normalize.SortTime(b.Date))
		})
	}

	doc := &Document{
		Entity:      g.Name,
		PeriodLabel: fmt.Sprintf("%s: %s", kind.PeriodLabel(), period),
		TotalVisits: len(entries),
		Columns:     docColumns(kind),
	}
	for _, e := range entries {
		doc.TotalAmount = doc.TotalAmount.Add(kind.Amount(e.Visit))
		doc.Rows = append(doc.Rows, docRow(kind, e.Visit))
	}
	return doc
}

func docColumns(kind model.Kind) []string {
	if kind == model.Invoice {
		return []string{"Patient Name", "Visit Type", "Visit Date",
			"First Name", "Last Name", "Rate"}
	}
	return []string{"Patient Name", "Visit Type", "Visit Date", "HA Name", "Pay"}
}

func docRow(kind model.Kind, v model.Visit) []string {
	date := normalize.FormatDate(v.Date)
	if kind == model.Invoice {
		return []string{v.Patient, v.VisitType, date, v.First, v.Last,
			v.Rate.StringFixed(2)}
	}
	return []string{v.Patient, v.VisitType, date, v.Agency, v.Pay.StringFixed(2)}
}

func amountLabel(kind model.Kind) string {
	if kind == model.Invoice {
		return "Total Amount"
	}
	return "Total Pay"
}

// Render serializes the document payload deterministically.
func Render(kind model.Kind, doc *Document) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", doc.Entity, doc.PeriodLabel)
	fmt.Fprintf(&b, "Total Visits: %d\n", doc.TotalVisits)
	fmt.Fprintf(&b, "%s: %s\n\n", amountLabel(kind), normalize.FormatMoney(doc.TotalAmount))
	b.WriteString(strings.Join(doc.Columns, "\t"))
	b.WriteByte('\n')
	for _, row := range doc.Rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// DocName derives the deterministic Document Store name for an entity.
func DocName(entity string) string {
	return normalize.SafeFileName(entity) + ".pdf"
}
