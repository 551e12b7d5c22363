// Package metrics exposes Prometheus collectors for the analysis service and
// the /healthz and /metrics endpoints.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trading-signalsv1/internal/indicator"
)

const namespace = "signals"

// Metrics holds all Prometheus metrics for the analysis service.
type Metrics struct {
	// Per-operation latency and failures (operation = analysis, rsi, macd, ...)
	OperationDur    *prometheus.HistogramVec
	OperationErrors *prometheus.CounterVec // labels: operation, kind

	// Composite signals produced, by action
	SignalsTotal *prometheus.CounterVec

	// Backtests
	BacktestRuns   *prometheus.CounterVec // labels: strategy
	BacktestTrades *prometheus.CounterVec // labels: strategy
	BacktestDur    prometheus.Histogram

	// Analysis cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Storage
	BarsIngested    prometheus.Counter
	SQLiteQueryDur  prometheus.Histogram
	ScannerRunsDur  prometheus.Histogram
	AlertsSentTotal *prometheus.CounterVec // labels: result
}

// NewMetrics creates all collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of analysis operations",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed analysis operations by error kind",
		}, []string{"operation", "kind"}),

		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "composite_signals_total",
			Help:      "Composite signals produced by action",
		}, []string{"action"}),

		BacktestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_runs_total",
			Help:      "Completed backtest runs by strategy",
		}, []string{"strategy"}),
		BacktestTrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_trades_total",
			Help:      "Trades closed across backtest runs by strategy",
		}, []string{"strategy"}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_duration_seconds",
			Help:      "Backtest run latency",
			Buckets:   prometheus.DefBuckets,
		}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Analysis cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Analysis cache misses",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Analysis cache read/write failures (including open breaker)",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_circuit_breaker_state",
			Help:      "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_circuit_breaker_trips_total",
			Help:      "Times the Redis circuit breaker tripped open",
		}),

		BarsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bars_ingested_total",
			Help:      "Bars committed to SQLite",
		}),
		SQLiteQueryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sqlite_query_duration_seconds",
			Help:      "SQLite bar query latency",
			Buckets:   prometheus.DefBuckets,
		}),
		ScannerRunsDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scanner_run_duration_seconds",
			Help:      "Duration of one scheduled scan over all symbols",
			Buckets:   prometheus.DefBuckets,
		}),
		AlertsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "Signal-change alerts by delivery result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.OperationDur,
		m.OperationErrors,
		m.SignalsTotal,
		m.BacktestRuns,
		m.BacktestTrades,
		m.BacktestDur,
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.BarsIngested,
		m.SQLiteQueryDur,
		m.ScannerRunsDur,
		m.AlertsSentTotal,
	)

	return m
}

// ErrorKind maps an error onto the indicator taxonomy for the kind label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, indicator.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, indicator.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, indicator.ErrDegenerateComputation):
		return "degenerate"
	default:
		return "internal"
	}
}

// Observe records the latency of operation since start and, on failure, its
// error kind. Safe on a nil receiver.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationDur.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.OperationErrors.WithLabelValues(operation, ErrorKind(err)).Inc()
	}
}

// BreakerStateChanged records a circuit breaker transition. state uses the
// gauge encoding 0=closed, 1=open, 2=half-open.
func (m *Metrics) BreakerStateChanged(state int) {
	if m == nil {
		return
	}
	m.RedisCircuitBreakerState.Set(float64(state))
	if state == 1 {
		m.RedisCircuitBreakerTrips.Inc()
	}
}

// CacheLookup records the outcome of one cache read. Safe on a nil receiver.
func (m *Metrics) CacheLookup(hit bool, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.CacheErrors.Inc()
	case hit:
		m.CacheHits.Inc()
	default:
		m.CacheMisses.Inc()
	}
}

// CacheWriteFailed counts a failed cache write. Safe on a nil receiver.
func (m *Metrics) CacheWriteFailed() {
	if m == nil {
		return
	}
	m.CacheErrors.Inc()
}

// SignalEmitted counts one composite signal. Safe on a nil receiver.
func (m *Metrics) SignalEmitted(action string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(action).Inc()
}

// BacktestDone records a completed run. Safe on a nil receiver.
func (m *Metrics) BacktestDone(strategy string, trades int, d time.Duration) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues(strategy).Inc()
	m.BacktestTrades.WithLabelValues(strategy).Add(float64(trades))
	m.BacktestDur.Observe(d.Seconds())
}
