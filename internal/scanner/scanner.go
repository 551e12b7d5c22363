// Package scanner recomputes composite signals for a watch list on a cron
// schedule, remembers the last action per symbol and alerts on changes.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"trading-signalsv1/internal/analysis"
	"trading-signalsv1/internal/metrics"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/notification"
	"trading-signalsv1/internal/strategy"
)

// SignalsChannel is the PubSub channel strategy decisions are published on.
const SignalsChannel = "signals"

// LatestStore remembers the last action per key. SwapLatest returns the
// previous value, "" when none.
type LatestStore interface {
	SwapLatest(ctx context.Context, key, value string, ttl time.Duration) (string, error)
}

// Publisher broadcasts a payload on a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Config configures a Scanner. Bars and Notifier are required.
type Config struct {
	Bars     model.BarReader
	Latest   LatestStore // nil keeps state in memory
	Pub      Publisher   // nil disables publishing
	Notifier notification.Notifier
	Metrics  *metrics.Metrics

	Symbols    []string
	Interval   string
	Limit      int
	Strategies []strategy.Strategy
	StateTTL   time.Duration
}

// Result summarises one scan.
type Result struct {
	Scanned int
	Alerts  int
	Errors  int
}

// Scanner evaluates the watch list.
type Scanner struct {
	cfg    Config
	engine *strategy.Engine
	cron   *cron.Cron

	mu       sync.Mutex
	windowCh chan strategy.Window
	done     chan struct{}
}

// New creates a Scanner with the given strategies registered on its engine.
func New(cfg Config) *Scanner {
	if cfg.Latest == nil {
		cfg.Latest = newMemLatest()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 7 * 24 * time.Hour
	}
	engine := strategy.NewEngine(64)
	for _, s := range cfg.Strategies {
		engine.Register(s)
	}
	return &Scanner{
		cfg:    cfg,
		engine: engine,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start launches the strategy engine and the publisher goroutine. Windows
// scanned afterwards are also routed through the engine. Stops with ctx.
func (s *Scanner) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.windowCh != nil {
		return
	}
	s.windowCh = make(chan strategy.Window, len(s.cfg.Symbols)+1)
	s.done = make(chan struct{})
	go s.engine.Run(ctx, s.windowCh)
	go s.forward(ctx)
}

// Done is closed once the publisher goroutine exits. Nil before Start.
func (s *Scanner) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Schedule registers ScanOnce under spec (six fields, seconds first) and
// starts the cron scheduler.
func (s *Scanner) Schedule(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		r := s.ScanOnce(ctx)
		log.Printf("[scanner] scan done: %d symbols, %d alerts, %d errors", r.Scanned, r.Alerts, r.Errors)
	}); err != nil {
		return fmt.Errorf("register scan: %w", err)
	}
	s.cron.Start()
	log.Printf("[scanner] scheduled %q for %d symbols", spec, len(s.cfg.Symbols))
	return nil
}

// Stop halts the scheduler and waits for a running scan to finish.
func (s *Scanner) Stop() {
	<-s.cron.Stop().Done()
}

// ScanOnce evaluates every symbol once. Per-symbol failures are logged and
// counted, never fatal.
func (s *Scanner) ScanOnce(ctx context.Context) Result {
	start := time.Now()
	var r Result
	for _, sym := range s.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		alerted, err := s.scanSymbol(ctx, sym)
		r.Scanned++
		if err != nil {
			r.Errors++
			log.Printf("[scanner] %s: %v", sym, err)
			continue
		}
		if alerted {
			r.Alerts++
		}
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ScannerRunsDur.Observe(time.Since(start).Seconds())
	}
	return r
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) (bool, error) {
	bars, err := s.cfg.Bars.ReadBars(ctx, symbol, s.cfg.Interval, s.cfg.Limit)
	if err != nil {
		return false, fmt.Errorf("read bars: %w", err)
	}
	s.route(ctx, strategy.Window{Symbol: symbol, Interval: s.cfg.Interval, Bars: bars})

	start := time.Now()
	sig, err := analysis.GenerateSignal(model.Closes(bars))
	s.cfg.Metrics.Observe("scan", start, err)
	if err != nil {
		return false, err
	}
	s.cfg.Metrics.SignalEmitted(string(sig.Signal))

	key := "latest:" + model.SeriesKey(symbol, s.cfg.Interval)
	prev, err := s.cfg.Latest.SwapLatest(ctx, key, string(sig.Signal), s.cfg.StateTTL)
	if err != nil {
		return false, fmt.Errorf("swap latest: %w", err)
	}

	alert, ok := notification.SignalChange(symbol, s.cfg.Interval, model.Action(prev), sig, bars[len(bars)-1].Close)
	if !ok {
		return false, nil
	}
	if err := s.cfg.Notifier.Send(ctx, alert); err != nil {
		s.recordAlert("error")
		return false, fmt.Errorf("send alert: %w", err)
	}
	s.recordAlert("ok")
	return true, nil
}

func (s *Scanner) recordAlert(result string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.AlertsSentTotal.WithLabelValues(result).Inc()
	}
}

// route hands w to the engine when it is running.
func (s *Scanner) route(ctx context.Context, w strategy.Window) {
	s.mu.Lock()
	ch := s.windowCh
	s.mu.Unlock()
	if ch == nil || len(w.Bars) == 0 {
		return
	}
	select {
	case ch <- w:
	case <-ctx.Done():
	}
}

// forward publishes engine decisions until the engine stops.
func (s *Scanner) forward(ctx context.Context) {
	defer close(s.done)
	for sig := range s.engine.Signals() {
		if sig.Err != nil {
			log.Printf("[scanner] %s %s: %v", sig.StrategyName, sig.Symbol, sig.Err)
			continue
		}
		log.Printf("[scanner] %s %s %s @ %.4f", sig.StrategyName, sig.Symbol, sig.Action, sig.Price)
		if s.cfg.Pub == nil {
			continue
		}
		payload, err := json.Marshal(sig)
		if err != nil {
			continue
		}
		if err := s.cfg.Pub.Publish(ctx, SignalsChannel, payload); err != nil {
			log.Printf("[scanner] publish failed: %v", err)
		}
	}
}

// memLatest is the in-process LatestStore. Entries do not expire.
type memLatest struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemLatest() *memLatest {
	return &memLatest{values: make(map[string]string)}
}

func (m *memLatest) SwapLatest(_ context.Context, key, value string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.values[key]
	m.values[key] = value
	return prev, nil
}
