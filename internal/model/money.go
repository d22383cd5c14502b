package model

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// moneyContext is used for every amount computation. Twenty digits is far
// beyond any price the store can hold (NUMERIC(6,2)).
var moneyContext = apd.BaseContext.WithPrecision(20)

// UnassignedAmount is what a booker owes when categories exist but none
// matches them. It flags a mis-configured event rather than a real charge.
func UnassignedAmount() apd.Decimal {
	return *apd.New(999999, -2)
}

// ZeroAmount returns 0.00.
func ZeroAmount() apd.Decimal {
	return *apd.New(0, -2)
}

// maxPrice is the first amount a price column (NUMERIC(6,2)) cannot hold.
var maxPrice = apd.New(10000, 0)

// validatePrice accepts finite, non-negative amounts below maxPrice with at
// most two decimals.
func validatePrice(name string, d *apd.Decimal) error {
	if d.Form != apd.Finite {
		return invalidf("category %q has an invalid price", name)
	}
	if d.Sign() < 0 {
		return invalidf("category %q has a negative price", name)
	}
	if d.Cmp(maxPrice) >= 0 {
		return invalidf("category %q price must be below %s", name, maxPrice.Text('f'))
	}
	var q apd.Decimal
	if _, err := moneyContext.Quantize(&q, d, -2); err != nil || q.Cmp(d) != 0 {
		return invalidf("category %q price has more than two decimals", name)
	}
	return nil
}

// ParseAmount parses a decimal string such as "15" or "12.50".
func ParseAmount(s string) (apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return apd.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return *d, nil
}

// MustParseAmount is ParseAmount for literals known to be valid.
func MustParseAmount(s string) apd.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatAmount renders d with exactly two decimals.
func FormatAmount(d *apd.Decimal) string {
	var q apd.Decimal
	if _, err := moneyContext.Quantize(&q, d, -2); err != nil {
		return d.Text('f')
	}
	return q.Text('f')
}

// addAmount sets dst to dst + x.
func addAmount(dst, x *apd.Decimal) {
	// Addition is exact at this precision; the condition carries nothing useful.
	_, _ = moneyContext.Add(dst, dst, x)
}

func copyAmount(x *apd.Decimal) apd.Decimal {
	var d apd.Decimal
	d.Set(x)
	return d
}
