// Package analysis fuses indicator readings into a directional call.
package analysis

import (
	"fmt"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

// Vote weights.
const (
	weightRSI       = 1
	weightTrend     = 1
	weightCrossover = 2
	weightBands     = 1
)

// Snapshot is the presentation view of the indicators behind a Signal.
type Snapshot struct {
	RSI            float64            `json:"rsi"`
	RSISignal      model.Zone         `json:"rsiSignal"`
	MACD           float64            `json:"macd"`
	MACDSignal     model.Trend        `json:"macdSignal"`
	MACDCrossover  model.Crossover    `json:"macdCrossover"`
	BollingerBands model.BandPosition `json:"bollingerBands"`
}

// Tally holds the raw vote counts.
type Tally struct {
	BullishSignals int `json:"bullishSignals"`
	BearishSignals int `json:"bearishSignals"`
}

// Signal is the composite directional call. Confidence is a percentage in
// [0,100] rounded to one decimal.
type Signal struct {
	Signal     model.Action `json:"signal"`
	Confidence float64      `json:"confidence"`
	Indicators Snapshot     `json:"indicators"`
	Analysis   Tally        `json:"analysis"`
}

// Inputs are the three readings the vote is taken over.
type Inputs struct {
	RSI       indicator.RSIResult
	MACD      indicator.MACDResult
	Bollinger indicator.BollingerResult
}

// Compute runs RSI(14), MACD(12,26,9) and Bollinger(20,2) over prices.
// The first failing indicator aborts the call.
func Compute(prices []float64) (Inputs, error) {
	rsi, err := indicator.RSI(prices, indicator.DefaultRSIPeriod)
	if err != nil {
		return Inputs{}, fmt.Errorf("signal: %w", err)
	}
	macd, err := indicator.DefaultMACD(prices)
	if err != nil {
		return Inputs{}, fmt.Errorf("signal: %w", err)
	}
	bb, err := indicator.BollingerBands(prices, indicator.DefaultBollingerPeriod, indicator.DefaultBollingerStdDev)
	if err != nil {
		return Inputs{}, fmt.Errorf("signal: %w", err)
	}
	return Inputs{RSI: rsi, MACD: macd, Bollinger: bb}, nil
}

// GenerateSignal computes the indicators over prices and votes on them.
func GenerateSignal(prices []float64) (Signal, error) {
	in, err := Compute(prices)
	if err != nil {
		return Signal{}, err
	}
	return Vote(in), nil
}

// Vote tallies the readings. Each source adds to exactly one side or none;
// the crossover vote is additive with the trend vote.
func Vote(in Inputs) Signal {
	t := tally(votes(in))
	action, confidence := decide(t)
	return Signal{
		Signal:     action,
		Confidence: model.Round(confidence, 1),
		Indicators: Snapshot{
			RSI:            model.Round(in.RSI.Current, 2),
			RSISignal:      in.RSI.Signal,
			MACD:           model.Round(in.MACD.MACD, 4),
			MACDSignal:     in.MACD.Trend,
			MACDCrossover:  in.MACD.Crossover,
			BollingerBands: in.Bollinger.Signal,
		},
		Analysis: t,
	}
}

// votes returns one signed weight per source: positive is bullish.
func votes(in Inputs) []int {
	return []int{
		zoneVote(in.RSI.Signal),
		trendVote(in.MACD.Trend),
		crossoverVote(in.MACD.Crossover),
		bandVote(in.Bollinger.Signal),
	}
}

func tally(vs []int) Tally {
	var t Tally
	for _, v := range vs {
		switch {
		case v > 0:
			t.BullishSignals += v
		case v < 0:
			t.BearishSignals -= v
		}
	}
	return t
}

func zoneVote(z model.Zone) int {
	switch z {
	case model.ZoneOversold:
		return weightRSI
	case model.ZoneOverbought:
		return -weightRSI
	}
	return 0
}

func trendVote(tr model.Trend) int {
	switch tr {
	case model.TrendBullish:
		return weightTrend
	case model.TrendBearish:
		return -weightTrend
	}
	return 0
}

func crossoverVote(c model.Crossover) int {
	switch c {
	case model.CrossoverBullish:
		return weightCrossover
	case model.CrossoverBearish:
		return -weightCrossover
	}
	return 0
}

func bandVote(b model.BandPosition) int {
	switch b {
	case model.BandOversold:
		return weightBands
	case model.BandOverbought:
		return -weightBands
	}
	return 0
}

func decide(t Tally) (model.Action, float64) {
	total := float64(t.BullishSignals + t.BearishSignals)
	switch {
	case t.BullishSignals > t.BearishSignals:
		return model.ActionBuy, float64(t.BullishSignals) / total * 100
	case t.BearishSignals > t.BullishSignals:
		return model.ActionSell, float64(t.BearishSignals) / total * 100
	default:
		return model.ActionHold, 0
	}
}
