package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-signalsv1/internal/backtest"
	"trading-signalsv1/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Reader provides read-only access to stored bars and backtest runs.
type Reader struct {
	db *sql.DB
}

// RunSummary is one stored backtest run without its full report.
type RunSummary struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Interval       string    `json:"interval"`
	Strategy       string    `json:"strategy"`
	Bars           int       `json:"bars"`
	FinalCapital   float64   `json:"finalCapital"`
	TotalTrades    int       `json:"totalTrades"`
	WinRate        float64   `json:"winRate"`
	MaxDrawdownPct float64   `json:"maxDrawdownPct"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadBars returns the most recent limit bars of a series, oldest first.
// limit <= 0 returns the whole series.
func (r *Reader) ReadBars(ctx context.Context, symbol, interval string, limit int) ([]model.Bar, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		var volume sql.NullFloat64
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.Timestamp = time.Unix(tsUnix, 0).UTC()
		b.Volume = volume.Float64
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; callers expect chronological order.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// Symbols lists the distinct symbols with stored bars for interval.
func (r *Reader) Symbols(ctx context.Context, interval string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM bars WHERE interval = ? ORDER BY symbol`, interval)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReadBacktest loads a stored report by run id.
func (r *Reader) ReadBacktest(ctx context.Context, id string) (backtest.Report, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT report FROM backtest_runs WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backtest.Report{}, fmt.Errorf("backtest run %s: %w", id, ErrNotFound)
		}
		return backtest.Report{}, fmt.Errorf("sqlite read backtest run: %w", err)
	}

	var rep backtest.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return backtest.Report{}, fmt.Errorf("unmarshal backtest report: %w", err)
	}
	return rep, nil
}

// ListBacktests returns the latest runs for symbol, newest first.
func (r *Reader) ListBacktests(ctx context.Context, symbol string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, interval, strategy, bars, final_capital, total_trades, win_rate, max_drawdown_pct, created_at
		FROM backtest_runs
		WHERE symbol = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query backtest runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var created int64
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Interval, &s.Strategy, &s.Bars, &s.FinalCapital,
			&s.TotalTrades, &s.WinRate, &s.MaxDrawdownPct, &created); err != nil {
			return nil, fmt.Errorf("sqlite scan backtest runs: %w", err)
		}
		s.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
