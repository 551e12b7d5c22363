package strategy

import (
	"context"

	"trading-signalsv1/internal/model"
)

// Window is the latest bar history for one symbol.
type Window struct {
	Symbol   string
	Interval string
	Bars     []model.Bar
}

// Signal is a non-HOLD decision emitted by a strategy for a window.
type Signal struct {
	StrategyName string       `json:"strategy_name"`
	Action       model.Action `json:"action"`
	Symbol       string       `json:"symbol"`
	Interval     string       `json:"interval"`
	Price        float64      `json:"price"`
	Timestamp    int64        `json:"timestamp"`
	Err          error        `json:"-"`
}

// Engine manages registered strategies and routes price windows to them.
type Engine struct {
	strategies []Strategy
	signalCh   chan Signal
}

// NewEngine creates a new strategy engine.
func NewEngine(signalBufferSize int) *Engine {
	return &Engine{
		signalCh: make(chan Signal, signalBufferSize),
	}
}

// Register adds a strategy to the engine.
func (e *Engine) Register(s Strategy) {
	e.strategies = append(e.strategies, s)
}

// Signals returns the channel of signals emitted by strategies.
// It is closed when Run returns.
func (e *Engine) Signals() <-chan Signal {
	return e.signalCh
}

// Evaluate runs every registered strategy over w and returns their
// decisions, HOLD included. A strategy error is reported in Signal.Err.
func (e *Engine) Evaluate(w Window) []Signal {
	if len(w.Bars) == 0 {
		return nil
	}
	last := w.Bars[len(w.Bars)-1]
	prices := model.Closes(w.Bars)

	out := make([]Signal, 0, len(e.strategies))
	for _, s := range e.strategies {
		action, err := s.Decide(prices)
		out = append(out, Signal{
			StrategyName: s.Name(),
			Action:       action,
			Symbol:       w.Symbol,
			Interval:     w.Interval,
			Price:        last.Close,
			Timestamp:    last.Timestamp.Unix(),
			Err:          err,
		})
	}
	return out
}

// Run consumes windows and forwards every non-HOLD decision and every error.
// Blocks until ctx is cancelled or windowCh is closed.
func (e *Engine) Run(ctx context.Context, windowCh <-chan Window) {
	defer close(e.signalCh)
	for {
		select {
		case <-ctx.Done():
			return
		case w, ok := <-windowCh:
			if !ok {
				return
			}
			for _, sig := range e.Evaluate(w) {
				if sig.Err == nil && sig.Action == model.ActionHold {
					continue
				}
				select {
				case e.signalCh <- sig:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
