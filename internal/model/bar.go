package model

import (
	"encoding/json"
	"time"
)

// Bar represents one OHLCV observation for a single symbol and interval.
// Bars are produced oldest-first by the data-fetching collaborator and are
// never mutated afterwards.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// JSON returns the JSON-encoded bar (ignoring errors, a Bar always encodes).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// Closes extracts the closing-price series from bars, index 0 = oldest.
// The returned slice is freshly allocated so callers never alias bar storage.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// SeriesKey identifies a bar series: "symbol:interval".
func SeriesKey(symbol, interval string) string {
	return symbol + ":" + interval
}
