package analysis

import (
	"fmt"

	"trading-signalsv1/internal/indicator"
)

// Report is the full analysis of one price window.
type Report struct {
	RSI            indicator.RSIResult       `json:"rsi"`
	MACD           indicator.MACDResult      `json:"macd"`
	BollingerBands indicator.BollingerResult `json:"bollingerBands"`
	Signal         Signal                    `json:"signal"`
	CurrentPrice   float64                   `json:"currentPrice"`
}

// Analyze computes every indicator once and derives the composite signal from
// the same readings.
func Analyze(prices []float64) (Report, error) {
	in, err := Compute(prices)
	if err != nil {
		return Report{}, fmt.Errorf("analyze: %w", err)
	}
	return Report{
		RSI:            in.RSI,
		MACD:           in.MACD,
		BollingerBands: in.Bollinger,
		Signal:         Vote(in),
		CurrentPrice:   prices[len(prices)-1],
	}, nil
}
