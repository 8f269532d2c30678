// Package ledger builds the itemized ledgers and entity summaries for
// one bucket. Ledgers are deterministic: same raw snapshot in, same
// sorted, totaled, duplicate-flagged rows out.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/classify"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/normalize"
)

// Build assembles the itemized ledger for one bucket and kind from the
// derived visit set: filter on bucket membership, stable multi-key
// sort, duplicate flagging, currency totals.
func Build(bucket string, kind model.Kind, visits []model.Visit) *model.Ledger {
	l := &model.Ledger{Bucket: bucket, Kind: kind}

	var selected []model.Visit
	for _, v := range visits {
		if classify.InBucket(v, bucket) {
			selected = append(selected, v)
		}
	}

	// SliceStable keeps input order as the final tie-break.
	sort.SliceStable(selected, func(i, j int) bool {
		return kind.Compare(selected[i], selected[j]) < 0
	})

	seen := make(map[string]bool, len(selected))
	for _, v := range selected {
		// %q quotes each cell, so no cell content can collide with the
		// tuple delimiters.
		key := fmt.Sprintf("%q", kind.Row(v))
		l.Entries = append(l.Entries, model.Entry{Visit: v, Duplicate: seen[key]})
		seen[key] = true
		l.PayTotal = l.PayTotal.Add(v.Pay)
		l.RateTotal = l.RateTotal.Add(v.Rate)
	}
	return l
}

// ClinicianSummaries groups a payroll ledger by (first, last) in first
// appearance order. Visits only count rows whose pay is non-zero; pay
// lands in exactly one of the 1099/W2 columns; the raw total is always
// populated.
func ClinicianSummaries(l *model.Ledger, w2 map[string]bool) []model.ClinicianSummary {
	type slot struct{ idx int }
	index := make(map[string]slot)
	var out []model.ClinicianSummary

	for _, e := range l.Entries {
		v := e.Visit
		key := v.First + "||" + v.Last
		s, ok := index[key]
		if !ok {
			s = slot{idx: len(out)}
			index[key] = s
			out = append(out, model.ClinicianSummary{First: v.First, Last: v.Last})
		}
		cs := &out[s.idx]
		if !v.Pay.IsZero() {
			cs.Visits++
		}
		cs.TotalPay = cs.TotalPay.Add(v.Pay)
	}

	for i := range out {
		cs := &out[i]
		cs.IsW2 = classify.IsW2(w2, cs.First, cs.Last)
		if cs.TotalPay.IsZero() {
			continue
		}
		if cs.IsW2 {
			cs.PayW2 = cs.TotalPay
		} else {
			cs.Pay1099 = cs.TotalPay
		}
	}
	return out
}

// AgencySummaries groups an invoice ledger by agency name in first
// appearance order. Zero-rate rows contribute to neither the count nor
// the sum.
func AgencySummaries(l *model.Ledger) []model.AgencySummary {
	index := make(map[string]int)
	var out []model.AgencySummary

	for _, e := range l.Entries {
		v := e.Visit
		if v.Rate.IsZero() {
			continue
		}
		i, ok := index[v.Agency]
		if !ok {
			i = len(out)
			index[v.Agency] = i
			out = append(out, model.AgencySummary{Agency: v.Agency})
		}
		out[i].Visits++
		out[i].Total = out[i].Total.Add(v.Rate)
	}
	return out
}

// Groups splits an itemized ledger into per-entity document groups,
// name-sorted for stable run-over-run export order. Invoice groups
// only admit rows whose rate is strictly positive; those visits stay in
// the ledger but never reach a document.
func Groups(l *model.Ledger) []model.EntityGroup {
	index := make(map[string]int)
	var out []model.EntityGroup

	for _, e := range l.Entries {
		if l.Kind == model.Invoice && !e.Visit.Rate.GreaterThan(decimal.Zero) {
			continue
		}
		name := strings.TrimSpace(l.Kind.EntityKey(e.Visit))
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, model.EntityGroup{Name: name})
		}
		out[i].Entries = append(out[i].Entries, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return normalize.Key(out[i].Name) < normalize.Key(out[j].Name)
	})
	return out
}
