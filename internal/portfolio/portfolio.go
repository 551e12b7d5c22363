// Package portfolio tracks the single simulated position of a backtest run,
// its realized trades and equity, and sizes positions against a risk budget.
//
// An Account is scoped to one run and is not safe for concurrent use.
package portfolio

import (
	"math"
	"time"
)

// State is the position slot of an Account.
type State int

const (
	Flat State = iota
	Long
)

func (s State) String() string {
	switch s {
	case Flat:
		return "FLAT"
	case Long:
		return "LONG"
	default:
		return "UNKNOWN"
	}
}

// Position is an open long holding of whole shares.
type Position struct {
	EntryPrice     float64   `json:"entryPrice"`
	Shares         int64     `json:"shares"`
	EntryTimestamp time.Time `json:"entryTimestamp"`
}

// MarketValue returns the position value at price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Shares) * price
}

// Account holds cash, at most one open Position and the closed-trade log.
type Account struct {
	initial float64
	capital float64
	state   State
	pos     Position // valid only when state == Long
	trades  []Trade
}

// NewAccount creates a Flat account with the given starting cash.
func NewAccount(capital float64) *Account {
	return &Account{
		initial: capital,
		capital: capital,
		trades:  make([]Trade, 0, 32),
	}
}

// InitialCapital returns the starting cash.
func (a *Account) InitialCapital() float64 { return a.initial }

// Capital returns the cash not tied up in the open position.
func (a *Account) Capital() float64 { return a.capital }

// State returns Flat or Long.
func (a *Account) State() State { return a.state }

// Position returns the open position, if any.
func (a *Account) Position() (Position, bool) {
	if a.state != Long {
		return Position{}, false
	}
	return a.pos, true
}

// Equity values cash plus the open position at price.
func (a *Account) Equity(price float64) float64 {
	if a.state != Long {
		return a.capital
	}
	return a.capital + a.pos.MarketValue(price)
}

// Open moves Flat → Long with floor(capital/price) shares bought at price.
// It reports false, leaving the account unchanged, when already Long or when
// the cash does not cover a single share.
func (a *Account) Open(price float64, ts time.Time) bool {
	if a.state != Flat || price <= 0 {
		return false
	}
	shares := int64(math.Floor(a.capital / price))
	if shares <= 0 {
		return false
	}
	a.pos = Position{EntryPrice: price, Shares: shares, EntryTimestamp: ts}
	a.capital -= float64(shares) * price
	a.state = Long
	return true
}

// Close moves Long → Flat, selling the whole position at price and appending
// the resulting Trade. It reports false when already Flat.
func (a *Account) Close(price float64, ts time.Time, forced bool) (Trade, bool) {
	if a.state != Long {
		return Trade{}, false
	}
	t := newTrade(a.pos, price, ts, forced)
	a.capital += a.pos.MarketValue(price)
	a.trades = append(a.trades, t)
	a.pos = Position{}
	a.state = Flat
	return t, true
}

// Trades returns a copy of every closed trade, oldest first.
func (a *Account) Trades() []Trade {
	cp := make([]Trade, len(a.trades))
	copy(cp, a.trades)
	return cp
}
