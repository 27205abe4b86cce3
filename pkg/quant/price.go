package quant

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Prices are quoted as real numbers at the external boundary, but every
// balance movement is computed in whole base-asset units. PriceUnits is the
// single conversion point between the two: any drift here would break
// bit-exact agreement between independent re-executions, so the rounding
// rule is fixed once and applied everywhere.

// PriceUnits converts a quoted price into whole base-asset units.
// Rounding rule: round half up (half away from zero). 2.5 -> 3, 2.4 -> 2.
// Callers must only pass non-negative prices; order validation rejects
// the rest before any conversion happens.
func PriceUnits(price float64) uint64 {
	units := decimal.NewFromFloat(price).Round(0).IntPart()
	if units < 0 {
		return 0
	}
	return uint64(units)
}

// ParsePrice parses a quoted price string. It goes through decimal rather
// than strconv.ParseFloat so that CLI input like "5.00" and "5" produce the
// same value byte-for-byte downstream.
func ParsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// ParseQuantity parses an order quantity string into whole units.
func ParseQuantity(s string) (uint64, error) {
	q, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return q, nil
}

// FormatPrice renders a price the way the matching engine compares it.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).String()
}
