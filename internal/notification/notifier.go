// Package notification delivers alerts to external channels when a
// scanned symbol's composite signal changes.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"trading-signalsv1/internal/analysis"
	"trading-signalsv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level    AlertLevel `json:"level"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Symbol   string     `json:"symbol,omitempty"`
	Interval string     `json:"interval,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts. Used when no remote channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every backend and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SignalChange builds the alert for a transition from prev to next.
// ok is false when the action did not change.
//
// A first observation (prev empty) alerts only for BUY or SELL.
func SignalChange(symbol, interval string, prev model.Action, next analysis.Signal, price float64) (Alert, bool) {
	if prev == next.Signal {
		return Alert{}, false
	}
	if prev == "" && next.Signal == model.ActionHold {
		return Alert{}, false
	}

	level := AlertInfo
	if next.Signal != model.ActionHold && next.Confidence >= 75 {
		level = AlertWarning
	}

	from := string(prev)
	if from == "" {
		from = "none"
	}
	msg := fmt.Sprintf("price %s, confidence %s%%, bullish %d / bearish %d, RSI %s (%s), MACD %s, bands %s",
		model.FormatFixed(price, 2), model.FormatFixed(next.Confidence, 1),
		next.Analysis.BullishSignals, next.Analysis.BearishSignals,
		model.FormatFixed(next.Indicators.RSI, 2), next.Indicators.RSISignal,
		next.Indicators.MACDSignal, next.Indicators.BollingerBands)

	return Alert{
		Level:    level,
		Title:    fmt.Sprintf("%s %s: %s -> %s", symbol, interval, from, next.Signal),
		Message:  msg,
		Symbol:   symbol,
		Interval: interval,
	}, true
}
