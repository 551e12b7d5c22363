package indicator

import (
	"fmt"

	"trading-signalsv1/internal/model"
)

// BollingerResult holds the latest envelope, the latest price position and
// the full rolling band sequences (one entry per full window).
type BollingerResult struct {
	Period int                `json:"period"`
	StdDev float64            `json:"stdDev"`
	Upper  float64            `json:"upper"`
	Middle float64            `json:"middle"`
	Lower  float64            `json:"lower"`
	Signal model.BandPosition `json:"signal"`

	UpperBand  []float64 `json:"upperBand"`
	MiddleBand []float64 `json:"middleBand"`
	LowerBand  []float64 `json:"lowerBand"`
}

// BollingerBands computes mean ± stdDev·σ over every window of period
// consecutive prices, with σ the population standard deviation.
// Requires len(prices) >= period.
func BollingerBands(prices []float64, period int, stdDev float64) (BollingerResult, error) {
	name := fmt.Sprintf("BollingerBands(%d,%g)", period, stdDev)
	if err := validatePeriod(name, period); err != nil {
		return BollingerResult{}, err
	}
	if !isFinite(stdDev) || stdDev < 0 {
		return BollingerResult{}, fmt.Errorf("%w: %s multiplier must be finite and non-negative", ErrInvalidInput, name)
	}
	if len(prices) < period {
		return BollingerResult{}, insufficient(name, period, len(prices))
	}
	if err := validatePrices(name, prices); err != nil {
		return BollingerResult{}, err
	}

	n := len(prices) - period + 1
	upper := make([]float64, 0, n)
	middle := make([]float64, 0, n)
	lower := make([]float64, 0, n)

	w := newWindow(period)
	for _, p := range prices {
		w.push(p)
		if !w.full() {
			continue
		}
		mean, std := w.stats()
		middle = append(middle, mean)
		upper = append(upper, mean+stdDev*std)
		lower = append(lower, mean-stdDev*std)
	}

	if err := checkFinite(name, upper, middle, lower); err != nil {
		return BollingerResult{}, err
	}

	last := len(middle) - 1
	res := BollingerResult{
		Period:     period,
		StdDev:     stdDev,
		Upper:      upper[last],
		Middle:     middle[last],
		Lower:      lower[last],
		UpperBand:  upper,
		MiddleBand: middle,
		LowerBand:  lower,
	}
	res.Signal = BandSignal(prices[len(prices)-1], res.Upper, res.Lower)
	return res, nil
}

// BandSignal locates price relative to the envelope; touching a band is Normal.
func BandSignal(price, upper, lower float64) model.BandPosition {
	switch {
	case price > upper:
		return model.BandOverbought
	case price < lower:
		return model.BandOversold
	default:
		return model.BandNormal
	}
}
