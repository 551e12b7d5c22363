// Package indicator provides technical indicator calculations over price series.
//
// Every function is a pure computation over a full, oldest-first price window:
// nothing is retained between calls, and inputs are never modified. The kernel
// recurrences (EMA, Wilder smoothing, rolling window) are small unexported
// state machines fed one price at a time; the exported functions replay the
// whole window through them and return the complete output sequence.
package indicator

import "math"

// Default periods used by the composite signal and the HTTP layer.
const (
	DefaultEMAPeriod       = 12
	DefaultRSIPeriod       = 14
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
)

// RSI zone thresholds.
const (
	OverboughtLevel = 70.0
	OversoldLevel   = 30.0
)

// Series is a plain indicator output: the full ordered sequence plus its last value.
type Series struct {
	Current float64   `json:"current"`
	Values  []float64 `json:"values"`
}

func newSeries(values []float64) Series {
	return Series{Current: values[len(values)-1], Values: values}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
