package portfolio

import (
	"time"

	"trading-signalsv1/internal/model"
)

// Trade is a closed position.
type Trade struct {
	EntryPrice     float64   `json:"entryPrice"`
	ExitPrice      float64   `json:"exitPrice"`
	Shares         int64     `json:"shares"`
	Profit         float64   `json:"profit"`
	ProfitPercent  float64   `json:"profitPercent"`
	EntryTimestamp time.Time `json:"entryTimestamp"`
	ExitTimestamp  time.Time `json:"exitTimestamp"`
	Forced         bool      `json:"forced,omitempty"` // closed at end of data
}

func newTrade(p Position, exit float64, ts time.Time, forced bool) Trade {
	return Trade{
		EntryPrice:     p.EntryPrice,
		ExitPrice:      exit,
		Shares:         p.Shares,
		Profit:         (exit - p.EntryPrice) * float64(p.Shares),
		ProfitPercent:  model.Round((exit-p.EntryPrice)/p.EntryPrice*100, 2),
		EntryTimestamp: p.EntryTimestamp,
		ExitTimestamp:  ts,
		Forced:         forced,
	}
}

// Stats aggregates a trade log. A trade with zero profit is neither a win
// nor a loss.
type Stats struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"` // percent, 0 without trades
	RealizedPnL   float64 `json:"realizedPnL"`
}

// Summarize computes Stats over every trade.
func Summarize(trades []Trade) Stats {
	s := Stats{TotalTrades: len(trades)}
	for _, t := range trades {
		s.RealizedPnL += t.Profit
		switch {
		case t.Profit > 0:
			s.WinningTrades++
		case t.Profit < 0:
			s.LosingTrades++
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	}
	return s
}

// EquityCurve records equity samples and tracks the deepest peak-to-trough
// decline.
type EquityCurve struct {
	points []float64
	peak   float64
	maxDD  float64
}

// NewEquityCurve creates an empty curve with room for n samples.
func NewEquityCurve(n int) *EquityCurve {
	return &EquityCurve{points: make([]float64, 0, n)}
}

// Record appends an equity sample.
func (c *EquityCurve) Record(equity float64) {
	c.points = append(c.points, equity)
	if equity > c.peak {
		c.peak = equity
	}
	if c.peak > 0 {
		if dd := (c.peak - equity) / c.peak * 100; dd > c.maxDD {
			c.maxDD = dd
		}
	}
}

// MaxDrawdownPct returns the largest decline from a running peak, in percent.
func (c *EquityCurve) MaxDrawdownPct() float64 { return c.maxDD }

// Points returns a copy of the samples.
func (c *EquityCurve) Points() []float64 {
	cp := make([]float64, len(c.points))
	copy(cp, c.points)
	return cp
}
