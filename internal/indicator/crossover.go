package indicator

import "trading-signalsv1/internal/model"

// DetectCrossover compares the last two tail-aligned points of two series.
// A move of (a-b) from strictly negative to strictly positive is a bullish
// crossover, the reverse is bearish. Fewer than two points yields None.
func DetectCrossover(a, b []float64) model.Crossover {
	if len(a) < 2 || len(b) < 2 {
		return model.CrossoverNone
	}

	prevDiff := a[len(a)-2] - b[len(b)-2]
	currDiff := a[len(a)-1] - b[len(b)-1]

	switch {
	case prevDiff < 0 && currDiff > 0:
		return model.CrossoverBullish
	case prevDiff > 0 && currDiff < 0:
		return model.CrossoverBearish
	default:
		return model.CrossoverNone
	}
}
