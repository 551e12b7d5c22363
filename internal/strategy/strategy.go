// Package strategy provides the backtest strategies and the engine that runs
// them over incoming price windows.
//
// A Strategy maps an oldest-first window of closing prices to BUY, SELL or
// HOLD. Strategies keep no state between calls; the caller owns position
// bookkeeping.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"trading-signalsv1/internal/analysis"
	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

// Registered strategy names.
const (
	NameRSI      = "rsi"
	NameMACD     = "macd"
	NameCombined = "combined"
)

// ErrUnknownStrategy is returned by Lookup for an unregistered name.
var ErrUnknownStrategy = fmt.Errorf("%w: unknown strategy", indicator.ErrInvalidInput)

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Decide returns the action for the last bar of prices.
	Decide(prices []float64) (model.Action, error)
}

var registry = map[string]Strategy{
	NameRSI:      RSI{Period: indicator.DefaultRSIPeriod},
	NameMACD:     MACD{},
	NameCombined: Combined{},
}

// Lookup resolves a strategy by name, case-insensitively. An empty name
// selects the combined strategy.
func Lookup(name string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = NameCombined
	}
	s, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names lists the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RSI buys when RSI is Oversold and sells when it is Overbought.
type RSI struct {
	Period int
}

func (RSI) Name() string { return NameRSI }

func (s RSI) Decide(prices []float64) (model.Action, error) {
	r, err := indicator.RSI(prices, s.Period)
	if err != nil {
		return model.ActionHold, err
	}
	switch r.Signal {
	case model.ZoneOversold:
		return model.ActionBuy, nil
	case model.ZoneOverbought:
		return model.ActionSell, nil
	default:
		return model.ActionHold, nil
	}
}

// MACD trades MACD/signal-line crossovers only; the trend alone never acts.
type MACD struct{}

func (MACD) Name() string { return NameMACD }

func (MACD) Decide(prices []float64) (model.Action, error) {
	m, err := indicator.DefaultMACD(prices)
	if err != nil {
		return model.ActionHold, err
	}
	switch m.Crossover {
	case model.CrossoverBullish:
		return model.ActionBuy, nil
	case model.CrossoverBearish:
		return model.ActionSell, nil
	default:
		return model.ActionHold, nil
	}
}

// Combined follows the composite signal.
type Combined struct{}

func (Combined) Name() string { return NameCombined }

func (Combined) Decide(prices []float64) (model.Action, error) {
	sig, err := analysis.GenerateSignal(prices)
	if err != nil {
		return model.ActionHold, err
	}
	return sig.Signal, nil
}
