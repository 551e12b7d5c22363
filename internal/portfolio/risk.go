package portfolio

import (
	"fmt"
	"math"
	"strconv"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

// RiskReport sizes a position so that hitting the stop loses exactly the
// risk budget.
type RiskReport struct {
	AccountBalance float64 `json:"accountBalance"`
	RiskPercentage float64 `json:"riskPercentage"`
	RiskAmount     float64 `json:"riskAmount"`
	EntryPrice     float64 `json:"entryPrice"`
	StopLoss       float64 `json:"stopLoss"`
	PriceRisk      float64 `json:"priceRisk"`
	PositionSize   float64 `json:"positionSize"`
	PotentialLoss  float64 `json:"potentialLoss"`
	Recommendation string  `json:"recommendation"`
}

// RiskManagement computes the position size that risks riskPct percent of
// balance between entry and stop.
//
//	riskAmount    = balance * riskPct / 100
//	priceRisk     = |entry - stop|
//	positionSize  = riskAmount / priceRisk
//	potentialLoss = positionSize * priceRisk
func RiskManagement(balance, riskPct, entry, stop float64) (RiskReport, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"account balance", balance},
		{"entry price", entry},
		{"stop loss", stop},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return RiskReport{}, fmt.Errorf("%w: %s must be positive and finite, got %v", indicator.ErrInvalidInput, f.name, f.v)
		}
	}
	if math.IsNaN(riskPct) || riskPct <= 0 || riskPct > 100 {
		return RiskReport{}, fmt.Errorf("%w: risk percentage must be in (0,100], got %v", indicator.ErrInvalidInput, riskPct)
	}

	priceRisk := math.Abs(entry - stop)
	if priceRisk == 0 {
		return RiskReport{}, fmt.Errorf("%w: entry price equals stop loss", indicator.ErrInvalidInput)
	}

	riskAmount := balance * riskPct / 100
	positionSize := riskAmount / priceRisk

	return RiskReport{
		AccountBalance: balance,
		RiskPercentage: riskPct,
		RiskAmount:     riskAmount,
		EntryPrice:     entry,
		StopLoss:       stop,
		PriceRisk:      priceRisk,
		PositionSize:   positionSize,
		PotentialLoss:  positionSize * priceRisk,
		Recommendation: fmt.Sprintf("Risk %s (%s%% of account) with position size of %s units",
			model.FormatFixed(riskAmount, 2),
			strconv.FormatFloat(riskPct, 'f', -1, 64),
			model.FormatFixed(positionSize, 4)),
	}, nil
}
