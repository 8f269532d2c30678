package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var moneyStripper = strings.NewReplacer("$", "", ",", "")

// ParseMoney converts a raw cell value ("$1,234.50", "89", "") into a
// decimal amount. Blank or unparseable values coerce to zero, matching
// how the ledgers treat missing pay.
func ParseMoney(s string) decimal.Decimal {
	s = strings.TrimSpace(moneyStripper.Replace(s))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Cents converts a dollar amount to integer cents, rounding half away
// from zero. All reconciliation equality runs on this representation.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FormatMoney renders an amount as "$#,##0.00".
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.Index(s, ".")
	whole, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
