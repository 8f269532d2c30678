// Package classify partitions raw visits into buckets and applies
// bucket-specific value overrides. Everything here is a pure function
// of its inputs; the derived snapshot is persisted once and never
// silently recomputed downstream.
package classify

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/normalize"
)

// InBucket reports whether a visit belongs to the bucket. Membership is
// a case-insensitive prefix match on the trimmed agency name, and the
// prefix includes the trailing separator so D9 never matches D90.
func InBucket(v model.Visit, bucket string) bool {
	agency := normalize.Key(v.Agency)
	return strings.HasPrefix(agency, normalize.Key(bucket)+" ")
}

// BucketOf returns the first bucket the visit belongs to, or ok=false
// when the visit is excluded from every bucket.
func BucketOf(v model.Visit, buckets []string) (string, bool) {
	for _, b := range buckets {
		if InBucket(v, b) {
			return b, true
		}
	}
	return "", false
}

// Derive applies the special-agency override: when the agency name
// begins with the configured prefix, the invoice rate becomes
// min(pay × factor, cap). The override reads only the untouched pay
// column, so reapplying it to an already-derived visit is a no-op.
func Derive(v model.Visit, a *config.Admin) model.Visit {
	if !strings.HasPrefix(normalize.Key(v.Agency), normalize.Key(a.SpecialAgencyPrefix)) {
		return v
	}
	scaled := v.Pay.Mul(a.SpecialRateFactor)
	v.Rate = decimal.Min(scaled, a.SpecialRateCap)
	return v
}

// DeriveAll builds the derived snapshot for a raw visit set.
func DeriveAll(visits []model.Visit, a *config.Admin) []model.Visit {
	out := make([]model.Visit, len(visits))
	for i, v := range visits {
		out[i] = Derive(v, a)
	}
	return out
}

// W2Set builds the classification membership set from the configured
// clinician names, keyed by normalized full name.
func W2Set(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[normalize.MatchKey(n)] = true
	}
	return set
}

// IsW2 reports classification membership for a clinician.
func IsW2(set map[string]bool, first, last string) bool {
	return set[normalize.MatchKey(first+" "+last)]
}
