package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"trading-signalsv1/internal/backtest"
	"trading-signalsv1/internal/model"
)

const (
	defaultBatchSize  = 500
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath    string // path to SQLite database file, e.g. "data/bars.db"
	BatchSize int    // bars per transaction in Run (default 500)
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db        *sql.DB
	batchSize int
}

// SeriesBar is one bar tagged with its series, as streamed into Run.
type SeriesBar struct {
	Symbol   string
	Interval string
	Bar      model.Bar
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, batchSize: batch}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	return db, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL,
			PRIMARY KEY (symbol, interval, ts)
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id               TEXT    PRIMARY KEY,
			symbol           TEXT    NOT NULL,
			interval         TEXT    NOT NULL,
			strategy         TEXT    NOT NULL,
			bars             INTEGER NOT NULL,
			initial_capital  REAL    NOT NULL,
			final_capital    REAL    NOT NULL,
			total_trades     INTEGER NOT NULL,
			win_rate         REAL    NOT NULL,
			max_drawdown_pct REAL    NOT NULL,
			report           TEXT    NOT NULL,
			created_at       INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_backtest_runs_symbol
			ON backtest_runs (symbol, created_at);

		CREATE TABLE IF NOT EXISTS backtest_trades (
			run_id      TEXT    NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			seq         INTEGER NOT NULL,
			entry_ts    INTEGER NOT NULL,
			exit_ts     INTEGER NOT NULL,
			entry_price REAL    NOT NULL,
			exit_price  REAL    NOT NULL,
			shares      INTEGER NOT NULL,
			profit      REAL    NOT NULL,
			forced      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}

// WriteBars upserts bars for one series in a single transaction.
func (w *Writer) WriteBars(ctx context.Context, symbol, interval string, bars []model.Bar) error {
	batch := make([]SeriesBar, len(bars))
	for i, b := range bars {
		batch[i] = SeriesBar{Symbol: symbol, Interval: interval, Bar: b}
	}
	return w.insertBatch(ctx, batch)
}

// Run reads bars from barCh and inserts them in batched transactions.
// Flushes every BatchSize bars OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or barCh is closed; returns the number of
// bars committed.
func (w *Writer) Run(ctx context.Context, barCh <-chan SeriesBar) int {
	batch := make([]SeriesBar, 0, w.batchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()
	committed := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		// Use a fresh context so a cancelled run still commits its tail.
		if err := w.insertBatch(context.Background(), batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else {
			committed += len(batch)
			log.Printf("[sqlite] committed %d bars in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return committed

		case b, ok := <-barCh:
			if !ok {
				flush()
				return committed
			}
			batch = append(batch, b)
			if len(batch) >= w.batchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of bars in a single transaction.
func (w *Writer) insertBatch(ctx context.Context, bars []SeriesBar) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, sb := range bars {
		b := sb.Bar
		_, err := stmt.ExecContext(ctx, sb.Symbol, sb.Interval, b.Timestamp.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetLastTimestamp returns the last stored bar timestamp for a series.
// Returns the zero time if no bars exist.
func (w *Writer) GetLastTimestamp(ctx context.Context, symbol, interval string) (time.Time, error) {
	var ts sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM bars WHERE symbol = ? AND interval = ?`,
		symbol, interval,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// SaveBacktest stores a report and its reported trades under a new run id.
func (w *Writer) SaveBacktest(ctx context.Context, symbol, interval string, r backtest.Report) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal backtest report: %w", err)
	}
	id := uuid.NewString()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, symbol, interval, strategy, bars, initial_capital, final_capital,
			total_trades, win_rate, max_drawdown_pct, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, symbol, interval, r.Strategy, r.Bars, r.InitialCapital, r.FinalCapital,
		r.TotalTrades, r.WinRate, r.MaxDrawdownPct, string(data), time.Now().Unix())
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("sqlite insert backtest run: %w", err)
	}

	for i, t := range r.Trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_trades (run_id, seq, entry_ts, exit_ts, entry_price, exit_price, shares, profit, forced)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, t.EntryTimestamp.Unix(), t.ExitTimestamp.Unix(), t.EntryPrice, t.ExitPrice, t.Shares, t.Profit, t.Forced)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("sqlite insert backtest trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
