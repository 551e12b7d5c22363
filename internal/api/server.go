// Package api serves the analysis core over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trading-signalsv1/internal/backtest"
	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/metrics"
	"trading-signalsv1/internal/model"
)

const (
	defaultInterval      = "1h"
	defaultLimit         = 100
	defaultBacktestLimit = 500
	maxLimit             = 5000
	maxBodyBytes         = 8 << 20
)

// errNoData marks a symbol/interval with no stored bars.
var errNoData = errors.New("no bars")

// RunStore persists backtest reports and returns the run id.
type RunStore interface {
	SaveBacktest(ctx context.Context, symbol, interval string, r backtest.Report) (string, error)
}

// Options configures a Server. Bars is required; the rest are optional.
type Options struct {
	Bars     model.BarReader
	Cache    model.Cache
	CacheTTL time.Duration
	Runs     RunStore
	Metrics  *metrics.Metrics

	DefaultInterval string
	DefaultLimit    int
	BacktestLimit   int
}

// Server holds the handler dependencies.
type Server struct {
	bars     model.BarReader
	cache    model.Cache
	cacheTTL time.Duration
	runs     RunStore
	metrics  *metrics.Metrics

	interval      string
	limit         int
	backtestLimit int
}

// NewServer applies defaults to opts.
func NewServer(opts Options) *Server {
	s := &Server{
		bars:          opts.Bars,
		cache:         opts.Cache,
		cacheTTL:      opts.CacheTTL,
		runs:          opts.Runs,
		metrics:       opts.Metrics,
		interval:      opts.DefaultInterval,
		limit:         opts.DefaultLimit,
		backtestLimit: opts.BacktestLimit,
	}
	if s.interval == "" {
		s.interval = defaultInterval
	}
	if s.limit <= 0 {
		s.limit = defaultLimit
	}
	if s.backtestLimit <= 0 {
		s.backtestLimit = defaultBacktestLimit
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = time.Minute
	}
	return s
}

// Routes returns the API handler with request-id, CORS and access-log middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/v1/strategies", s.handleStrategies)

	mux.HandleFunc("GET /api/v1/analysis/{symbol}", s.handleAnalysis)
	mux.HandleFunc("GET /api/v1/indicators/rsi/{symbol}", s.handleRSI)
	mux.HandleFunc("GET /api/v1/indicators/macd/{symbol}", s.handleMACD)
	mux.HandleFunc("GET /api/v1/indicators/ema/{symbol}", s.handleEMA)
	mux.HandleFunc("GET /api/v1/indicators/custom/{symbol}", s.handleCustom)
	mux.HandleFunc("GET /api/v1/signal/{symbol}", s.handleSignal)
	mux.HandleFunc("GET /api/v1/backtest/{symbol}", s.handleBacktest)
	mux.HandleFunc("POST /api/v1/risk-management", s.handleRisk)

	mux.HandleFunc("POST /api/v1/analysis", s.handleAnalysisInline)
	mux.HandleFunc("POST /api/v1/signal", s.handleSignalInline)
	mux.HandleFunc("POST /api/v1/backtest", s.handleBacktestInline)

	return s.middleware(mux)
}

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logger.NewRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		setCORS(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		attrs := append(logger.Attrs(ctx),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
		slog.InfoContext(ctx, "request", attrs...)
	})
}

// ── Responses ──

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, fmt.Errorf("encode response: %w", err))
		return
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoData):
		return http.StatusNotFound
	case errors.Is(err, indicator.ErrInsufficientData), errors.Is(err, indicator.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, indicator.ErrDegenerateComputation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "error", err)
		msg = "internal error"
	}
	body, _ := json.Marshal(errorResponse{Success: false, Error: msg})
	writeBody(w, status, body)
}

// ── Request parsing ──

// query identifies the bar window a GET request reads.
type query struct {
	symbol   string
	interval string
	limit    int
}

func (q query) key(op string, extra ...string) string {
	parts := append([]string{op, q.symbol, q.interval, strconv.Itoa(q.limit)}, extra...)
	return strings.Join(parts, ":")
}

func (s *Server) parseQuery(r *http.Request, defLimit int) (query, error) {
	q := query{
		symbol:   strings.TrimSpace(r.PathValue("symbol")),
		interval: r.URL.Query().Get("interval"),
		limit:    defLimit,
	}
	if q.symbol == "" {
		return q, fmt.Errorf("%w: symbol is required", indicator.ErrInvalidInput)
	}
	if q.interval == "" {
		q.interval = s.interval
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxLimit {
			return q, fmt.Errorf("%w: limit must be an integer in [1,%d], got %q", indicator.ErrInvalidInput, maxLimit, v)
		}
		q.limit = n
	}
	return q, nil
}

// intParam parses an optional positive integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", indicator.ErrInvalidInput, name, v)
	}
	return n, nil
}

func (s *Server) loadBars(ctx context.Context, q query) ([]model.Bar, error) {
	start := time.Now()
	bars, err := s.bars.ReadBars(ctx, q.symbol, q.interval, q.limit)
	if s.metrics != nil {
		s.metrics.SQLiteQueryDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("read bars %s: %w", model.SeriesKey(q.symbol, q.interval), err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", errNoData, model.SeriesKey(q.symbol, q.interval))
	}
	return bars, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", indicator.ErrInvalidInput, err)
	}
	return nil
}

// ── Caching ──

// serve writes the JSON of compute's result. With a non-empty key the body is
// read from and stored in the cache; cache failures fall through to compute.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, op, key string, compute func(ctx context.Context) (any, error)) {
	ctx := r.Context()
	start := time.Now()

	if key != "" && s.cache != nil {
		body, ok, err := s.cache.Get(ctx, key)
		s.metrics.CacheLookup(ok, err)
		if err != nil {
			slog.WarnContext(ctx, "cache read failed", append(logger.Attrs(ctx), "key", key, "error", err)...)
		}
		if ok {
			s.metrics.Observe(op, start, nil)
			writeBody(w, http.StatusOK, body)
			return
		}
	}

	v, err := compute(ctx)
	s.metrics.Observe(op, start, err)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, fmt.Errorf("encode %s: %w", op, err))
		return
	}
	if key != "" && s.cache != nil {
		if err := s.cache.Set(ctx, key, body, s.cacheTTL); err != nil {
			s.metrics.CacheWriteFailed()
			slog.WarnContext(ctx, "cache write failed", append(logger.Attrs(ctx), "key", key, "error", err)...)
		}
	}
	writeBody(w, http.StatusOK, body)
}
