package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/normalize"
)

// Raw table column headers, exactly as the agency export names them.
const (
	ColFirst      = "Assigned Clinician First Name"
	ColLast       = "Assigned Clinician Last Name"
	ColPatient    = "Patient name"
	ColVisitType  = "Visit type"
	ColVisitDate  = "Visit scheduled date"
	ColAgency     = "HA Name"
	ColPay        = "Price agreed between HA & Clinician"
	ColRate       = "HA Initial price"
	ColStatus     = "Visit status"
	ColApprovedAt = "Date when HA approved the Visit"
)

// Visit is one service visit from the raw table. Pay is the amount
// negotiated between the agency and the clinician; Rate is the agency's
// initial price, which the derive step may override.
type Visit struct {
	First      string
	Last       string
	Patient    string
	VisitType  string
	Date       *time.Time
	Agency     string
	Pay        decimal.Decimal
	Rate       decimal.Decimal
	Status     string
	ApprovedAt *time.Time
}

// VisitHeader returns the raw/derived table header in canonical order.
func VisitHeader() []string {
	return []string{
		ColFirst, ColLast, ColPatient, ColVisitType, ColVisitDate,
		ColAgency, ColPay, ColRate, ColStatus, ColApprovedAt,
	}
}

// IndexColumns resolves required column headers to indices,
// case-insensitively and tolerant of stray whitespace. A missing column
// is a fatal precondition error naming the column.
func IndexColumns(header []string, required ...string) (map[string]int, error) {
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		byKey[normalize.HeaderKey(h)] = i
	}
	idx := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := byKey[normalize.HeaderKey(name)]
		if !ok {
			return nil, fmt.Errorf("missing column: %s", name)
		}
		idx[name] = i
	}
	return idx, nil
}

// VisitFromRecord builds a Visit from one raw table row using a column
// index from IndexColumns.
func VisitFromRecord(idx map[string]int, row []string) Visit {
	get := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return Visit{
		First:      get(ColFirst),
		Last:       get(ColLast),
		Patient:    get(ColPatient),
		VisitType:  get(ColVisitType),
		Date:       normalize.ParseDate(get(ColVisitDate)),
		Agency:     get(ColAgency),
		Pay:        normalize.ParseMoney(get(ColPay)),
		Rate:       normalize.ParseMoney(get(ColRate)),
		Status:     get(ColStatus),
		ApprovedAt: normalize.ParseDate(get(ColApprovedAt)),
	}
}

// Record projects the Visit back into raw table column order.
func (v Visit) Record() []string {
	return []string{
		v.First, v.Last, v.Patient, v.VisitType,
		normalize.FormatDate(v.Date),
		v.Agency,
		v.Pay.StringFixed(2),
		v.Rate.StringFixed(2),
		v.Status,
		normalize.FormatDate(v.ApprovedAt),
	}
}

// ClinicianName is the entity key for payroll grouping.
func (v Visit) ClinicianName() string {
	return strings.TrimSpace(v.First + " " + v.Last)
}
