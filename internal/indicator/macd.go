package indicator

import (
	"fmt"

	"trading-signalsv1/internal/model"
)

// MACDResult holds the latest MACD reading plus the full aligned sequences.
// SignalLine and Histogram are tail-aligned with MACDLine (they are shorter
// by signalPeriod-1 samples at the start).
type MACDResult struct {
	MACD      float64         `json:"macd"`
	Signal    float64         `json:"signal"`
	Histogram float64         `json:"histogram"`
	Trend     model.Trend     `json:"trend"`
	Crossover model.Crossover `json:"crossover"`

	MACDLine      []float64 `json:"macdLine"`
	SignalLine    []float64 `json:"signalLine"`
	HistogramLine []float64 `json:"histogramLine"`
}

// DefaultMACD runs MACD with the conventional 12/26/9 periods.
func DefaultMACD(prices []float64) (MACDResult, error) {
	return MACD(prices, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
}

// MACD computes the difference of a fast and a slow EMA, its signal-line EMA
// and the histogram between the two.
//
// The fast EMA series is longer than the slow one by slow-fast samples at its
// start, so macd[i] = fast[i+(slow-fast)] - slow[i]. Errors from the
// underlying EMAs are returned wrapped, unchanged in kind.
func MACD(prices []float64, fast, slow, signalPeriod int) (MACDResult, error) {
	name := fmt.Sprintf("MACD(%d,%d,%d)", fast, slow, signalPeriod)
	for _, p := range []int{fast, slow, signalPeriod} {
		if err := validatePeriod(name, p); err != nil {
			return MACDResult{}, err
		}
	}
	if fast >= slow {
		return MACDResult{}, fmt.Errorf("%w: %s fast period must be shorter than slow", ErrInvalidInput, name)
	}

	fastEMA, err := EMA(prices, fast)
	if err != nil {
		return MACDResult{}, fmt.Errorf("%s fast line: %w", name, err)
	}
	slowEMA, err := EMA(prices, slow)
	if err != nil {
		return MACDResult{}, fmt.Errorf("%s slow line: %w", name, err)
	}

	offset := slow - fast
	macdLine := make([]float64, len(slowEMA.Values))
	for i := range macdLine {
		macdLine[i] = fastEMA.Values[i+offset] - slowEMA.Values[i]
	}

	signal, err := EMA(macdLine, signalPeriod)
	if err != nil {
		return MACDResult{}, fmt.Errorf("%s signal line: %w", name, err)
	}

	lag := len(macdLine) - len(signal.Values)
	histogram := make([]float64, len(signal.Values))
	for i := range histogram {
		histogram[i] = macdLine[i+lag] - signal.Values[i]
	}

	if err := checkFinite(name, macdLine, histogram); err != nil {
		return MACDResult{}, err
	}

	res := MACDResult{
		MACD:          macdLine[len(macdLine)-1],
		Signal:        signal.Current,
		Histogram:     histogram[len(histogram)-1],
		Crossover:     DetectCrossover(macdLine, signal.Values),
		MACDLine:      macdLine,
		SignalLine:    signal.Values,
		HistogramLine: histogram,
	}
	res.Trend = model.TrendBearish
	if res.Histogram > 0 {
		res.Trend = model.TrendBullish
	}
	return res, nil
}
