// Package backtest replays a strategy bar by bar over historical data with a
// single position slot and reports the realized performance.
package backtest

import (
	"fmt"
	"math"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/portfolio"
	"trading-signalsv1/internal/strategy"
)

const (
	// Warmup is the index of the first bar a decision is taken on.
	Warmup = 50

	// InitialCapital is the starting cash of every run.
	InitialCapital = 10000.0

	// ReportTrades is how many of the most recent trades a Report carries.
	ReportTrades = 10
)

// Report summarizes one run. Aggregates cover every trade; Trades holds only
// the most recent ReportTrades of them.
type Report struct {
	Strategy       string            `json:"strategy"`
	Bars           int               `json:"bars"`
	InitialCapital float64           `json:"initialCapital"`
	FinalCapital   float64           `json:"finalCapital"`
	TotalProfit    float64           `json:"totalProfit"`
	ProfitPercent  float64           `json:"profitPercent"`
	TotalTrades    int               `json:"totalTrades"`
	WinningTrades  int               `json:"winningTrades"`
	LosingTrades   int               `json:"losingTrades"`
	WinRate        float64           `json:"winRate"`
	MaxDrawdownPct float64           `json:"maxDrawdownPct"`
	Trades         []portfolio.Trade `json:"trades"`
	EquityCurve    []float64         `json:"equityCurve"`
}

// Run backtests the named strategy ("" selects combined) over bars.
func Run(bars []model.Bar, strategyName string) (Report, error) {
	s, err := strategy.Lookup(strategyName)
	if err != nil {
		return Report{}, fmt.Errorf("backtest: %w", err)
	}
	return RunStrategy(bars, s)
}

// RunStrategy backtests s over bars.
func RunStrategy(bars []model.Bar, s strategy.Strategy) (Report, error) {
	res, err := simulate(bars, s)
	if err != nil {
		return Report{}, err
	}
	return res.report(s.Name(), len(bars)), nil
}

type result struct {
	account *portfolio.Account
	curve   *portfolio.EquityCurve
}

// simulate walks bars[Warmup:], feeding the strategy the closes up to and
// including the current bar. A position still open after the last bar is
// closed at that bar's close.
func simulate(bars []model.Bar, s strategy.Strategy) (result, error) {
	if err := validateBars(bars); err != nil {
		return result{}, err
	}

	closes := model.Closes(bars)
	acct := portfolio.NewAccount(InitialCapital)
	curve := portfolio.NewEquityCurve(max(len(bars)-Warmup, 0))

	for i := Warmup; i < len(bars); i++ {
		price := closes[i]
		action, err := s.Decide(closes[:i+1])
		if err != nil {
			return result{}, fmt.Errorf("backtest %s at bar %d: %w", s.Name(), i, err)
		}

		switch {
		case action == model.ActionBuy && acct.State() == portfolio.Flat:
			acct.Open(price, bars[i].Timestamp)
		case action == model.ActionSell && acct.State() == portfolio.Long:
			acct.Close(price, bars[i].Timestamp, false)
		}
		curve.Record(acct.Equity(price))
	}

	if acct.State() == portfolio.Long {
		last := bars[len(bars)-1]
		acct.Close(last.Close, last.Timestamp, true)
	}
	return result{account: acct, curve: curve}, nil
}

func (r result) report(name string, nBars int) Report {
	trades := r.account.Trades()
	stats := portfolio.Summarize(trades)

	initial := r.account.InitialCapital()
	final := r.account.Capital()
	profit := final - initial

	recent := trades
	if len(recent) > ReportTrades {
		recent = recent[len(recent)-ReportTrades:]
	}

	return Report{
		Strategy:       name,
		Bars:           nBars,
		InitialCapital: initial,
		FinalCapital:   final,
		TotalProfit:    profit,
		ProfitPercent:  profit / initial * 100,
		TotalTrades:    stats.TotalTrades,
		WinningTrades:  stats.WinningTrades,
		LosingTrades:   stats.LosingTrades,
		WinRate:        stats.WinRate,
		MaxDrawdownPct: r.curve.MaxDrawdownPct(),
		Trades:         recent,
		EquityCurve:    r.curve.Points(),
	}
}

func validateBars(bars []model.Bar) error {
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return fmt.Errorf("%w: backtest bar %d close must be positive and finite, got %v",
				indicator.ErrInvalidInput, i, b.Close)
		}
	}
	return nil
}
