package indicator

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec names a single-series indicator and its period, e.g. {"EMA", 9}.
type Spec struct {
	Type   string `json:"type"` // "SMA", "EMA", "RSI"
	Period int    `json:"period"`
}

// Name returns the display name, e.g. "EMA_9".
func (s Spec) Name() string {
	return s.Type + "_" + strconv.Itoa(s.Period)
}

// DefaultSpecs is the indicator set used when none is configured.
func DefaultSpecs() []Spec {
	return []Spec{
		{Type: "SMA", Period: 20},
		{Type: "SMA", Period: 50},
		{Type: "EMA", Period: 9},
		{Type: "EMA", Period: 21},
		{Type: "RSI", Period: 14},
	}
}

// ParseSpecs parses "TYPE:PERIOD,..." (e.g. "SMA:20,EMA:9,RSI:14").
// Malformed entries are skipped; an empty string yields DefaultSpecs.
func ParseSpecs(s string) []Spec {
	if strings.TrimSpace(s) == "" {
		return DefaultSpecs()
	}
	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		tokens := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(tokens) != 2 {
			continue
		}
		period, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil || period <= 0 {
			continue
		}
		specs = append(specs, Spec{
			Type:   strings.ToUpper(strings.TrimSpace(tokens[0])),
			Period: period,
		})
	}
	return specs
}

// Compute evaluates spec over prices and returns its plain series.
func Compute(spec Spec, prices []float64) (Series, error) {
	switch spec.Type {
	case "SMA":
		return SMA(prices, spec.Period)
	case "EMA":
		return EMA(prices, spec.Period)
	case "RSI":
		r, err := RSI(prices, spec.Period)
		if err != nil {
			return Series{}, err
		}
		return Series{Current: r.Current, Values: r.Values}, nil
	default:
		return Series{}, fmt.Errorf("%w: unknown indicator type %q", ErrInvalidInput, spec.Type)
	}
}
