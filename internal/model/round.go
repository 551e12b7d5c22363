package model

import "github.com/shopspring/decimal"

// Round rounds v half away from zero to the given number of decimal places.
// Used only for presentation values; aggregates are always kept unrounded.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatFixed renders v with exactly places decimals, like a fixed-point display.
func FormatFixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
