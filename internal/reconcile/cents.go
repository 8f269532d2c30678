// Package reconcile cross-checks independently derived views of the
// same visit data and reports match/mismatch per check. A failed match
// is a data outcome, never an error.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/normalize"
)

// Match compares two currency values as integer cents. Both sides are
// rounded to the nearest cent first; equality is exact only after that
// rounding.
func Match(a, b decimal.Decimal) bool {
	return normalize.Cents(a) == normalize.Cents(b)
}
