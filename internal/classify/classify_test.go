package classify

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/model"
)

func testAdmin() *config.Admin {
	return &config.Admin{
		Buckets:             []string{"D9", "D10"},
		SpecialAgencyPrefix: "D9 ALL ABOUT YOU",
		SpecialRateFactor:   decimal.RequireFromString("1.2"),
		SpecialRateCap:      decimal.NewFromInt(89),
	}
}

func TestInBucket_PrefixWithSeparator(t *testing.T) {
	cases := []struct {
		agency string
		bucket string
		want   bool
	}{
		{"D9 ALL ABOUT YOU", "D9", true},
		{"d9 all about you", "D9", true},
		{"  D9 HOMECARE ", "D9", true},
		{"D90 HOMECARE", "D9", false},
		{"D9", "D9", false},
		{"D10 CARE", "D10", true},
		{"D10 CARE", "D9", false},
	}
	for _, c := range cases {
		v := model.Visit{Agency: c.agency}
		if got := InBucket(v, c.bucket); got != c.want {
			t.Errorf("InBucket(%q, %q) = %v, want %v", c.agency, c.bucket, got, c.want)
		}
	}
}

func TestBucketOf(t *testing.T) {
	admin := testAdmin()
	v := model.Visit{Agency: "D10 CARE PARTNERS"}
	b, ok := BucketOf(v, admin.Buckets)
	if !ok || b != "D10" {
		t.Fatalf("BucketOf = %q, %v", b, ok)
	}
	if _, ok := BucketOf(model.Visit{Agency: "UNRELATED LLC"}, admin.Buckets); ok {
		t.Error("excluded agency should match no bucket")
	}
}

func TestDerive_OverrideCapsAndScales(t *testing.T) {
	admin := testAdmin()

	low := model.Visit{Agency: "D9 ALL ABOUT YOU", Pay: decimal.NewFromInt(50), Rate: decimal.NewFromInt(100)}
	got := Derive(low, admin)
	if got.Rate.String() != "60" {
		t.Errorf("Rate = %s, want 60", got.Rate)
	}

	high := model.Visit{Agency: "D9 ALL ABOUT YOU LLC", Pay: decimal.NewFromInt(120), Rate: decimal.NewFromInt(200)}
	got = Derive(high, admin)
	if got.Rate.String() != "89" {
		t.Errorf("Rate = %s, want 89", got.Rate)
	}
}

func TestDerive_OtherAgenciesUntouched(t *testing.T) {
	admin := testAdmin()
	v := model.Visit{Agency: "D9 HOMECARE", Pay: decimal.NewFromInt(50), Rate: decimal.NewFromInt(75)}
	got := Derive(v, admin)
	if got.Rate.String() != "75" {
		t.Errorf("Rate = %s, want 75", got.Rate)
	}
}

func TestDerive_Idempotent(t *testing.T) {
	admin := testAdmin()
	v := model.Visit{Agency: "D9 ALL ABOUT YOU", Pay: decimal.NewFromInt(50), Rate: decimal.NewFromInt(100)}
	once := Derive(v, admin)
	twice := Derive(once, admin)
	if !once.Rate.Equal(twice.Rate) || !once.Pay.Equal(twice.Pay) {
		t.Errorf("second derivation changed the visit: %v vs %v", once, twice)
	}
}

func TestW2Set_MatchesNameVariants(t *testing.T) {
	set := W2Set([]string{"Grayson Lambert", "Sheila Wilson"})
	if !IsW2(set, "grayson", "LAMBERT") {
		t.Error("case variant should match")
	}
	if !IsW2(set, " Sheila ", "Wilson") {
		t.Error("spacing variant should match")
	}
	if IsW2(set, "Grayson", "Wilson") {
		t.Error("mixed names should not match")
	}
}
