package indicator

import (
	"fmt"

	"trading-signalsv1/internal/model"
)

// RSIResult is the RSI output: full history, latest value and its zone.
type RSIResult struct {
	Period  int        `json:"period"`
	Current float64    `json:"current"`
	Signal  model.Zone `json:"signal"`
	Values  []float64  `json:"values"`
}

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
//
// Requires len(prices) >= period+1. The initial average gain/loss is the plain
// mean of the first period price changes; each later change is folded in with
// avg = (avg*(period-1) + x) / period. One value is produced per change from the
// seed onwards, so the output has len(prices)-period values.
//
// An average loss of exactly zero yields RSI 100, or 50 when the average gain is
// zero as well (a perfectly flat window).
func RSI(prices []float64, period int) (RSIResult, error) {
	name := fmt.Sprintf("RSI(%d)", period)
	if err := validatePeriod(name, period); err != nil {
		return RSIResult{}, err
	}
	if len(prices) < period+1 {
		return RSIResult{}, insufficient(name, period+1, len(prices))
	}
	if err := validatePrices(name, prices); err != nil {
		return RSIResult{}, err
	}

	avgGain := newSMMA(period)
	avgLoss := newSMMA(period)
	values := make([]float64, 0, len(prices)-period)

	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain.update(gain)
		avgLoss.update(loss)

		if avgGain.ready() {
			values = append(values, rsiFrom(avgGain.current, avgLoss.current))
		}
	}

	if err := checkFinite(name, values); err != nil {
		return RSIResult{}, err
	}
	current := values[len(values)-1]
	return RSIResult{
		Period:  period,
		Current: current,
		Signal:  RSIZone(current),
		Values:  values,
	}, nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// RSIZone classifies an RSI reading: >70 Overbought, <30 Oversold.
func RSIZone(rsi float64) model.Zone {
	switch {
	case rsi > OverboughtLevel:
		return model.ZoneOverbought
	case rsi < OversoldLevel:
		return model.ZoneOversold
	default:
		return model.ZoneNeutral
	}
}
