// cmd/ingest loads OHLCV bars from a CSV file into the SQLite bar store,
// optionally resampling them to a coarser interval first.
//
// Usage:
//
//	go run ./cmd/ingest --csv=btc_1m.csv --symbol=BTCUSDT --interval=1m
//	go run ./cmd/ingest --csv=btc_1m.csv --symbol=BTCUSDT --interval=1m --resample=5m,1h,1d
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-signalsv1/config"
	"trading-signalsv1/internal/ingest"
	"trading-signalsv1/internal/model"
	sqlitestore "trading-signalsv1/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	dbPath := flag.String("db", "", "SQLite database path (default from config)")
	csvPath := flag.String("csv", "", "CSV file with timestamp,open,high,low,close[,volume] rows")
	symbol := flag.String("symbol", "", "Symbol to store the bars under")
	interval := flag.String("interval", "1m", "Interval of the bars in the file")
	resample := flag.String("resample", "", "Comma-separated coarser intervals to derive, e.g. 5m,1h")
	full := flag.Bool("full", false, "Rewrite bars already stored instead of appending newer ones")
	flag.Parse()

	if *csvPath == "" || *symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest --csv=FILE --symbol=SYM [--interval=1m] [--resample=5m,1h]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[ingest] config: %v", err)
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.SQLitePath
	}

	base, err := ingest.ParseInterval(*interval)
	if err != nil {
		log.Fatalf("[ingest] %v", err)
	}
	targets := []string{*interval}
	for _, iv := range config.ParseList(*resample) {
		d, err := ingest.ParseInterval(iv)
		if err != nil {
			log.Fatalf("[ingest] %v", err)
		}
		if d <= base || d%base != 0 {
			log.Fatalf("[ingest] resample interval %s must be a multiple of %s", iv, *interval)
		}
		targets = append(targets, iv)
	}

	bars, err := ingest.ReadCSVFile(*csvPath)
	if err != nil {
		log.Fatalf("[ingest] %v", err)
	}
	log.Printf("[ingest] parsed %d bars from %s (%s .. %s)", len(bars), *csvPath,
		bars[0].Timestamp.Format(time.RFC3339), bars[len(bars)-1].Timestamp.Format(time.RFC3339))

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[ingest] sqlite: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[ingest] interrupted, flushing")
		cancel()
	}()

	barCh := make(chan sqlitestore.SeriesBar, 1000)
	done := make(chan int, 1)
	go func() { done <- writer.Run(ctx, barCh) }()

	sent := 0
	for _, iv := range targets {
		series := bars
		if iv != *interval {
			d, _ := ingest.ParseInterval(iv)
			if series, err = ingest.Resample(bars, d); err != nil {
				log.Fatalf("[ingest] resample %s: %v", iv, err)
			}
		}
		sent += feed(ctx, writer, series, *symbol, iv, *full, barCh)
	}
	close(barCh)
	committed := <-done

	log.Printf("[ingest] done: %d bars queued, %d committed", sent, committed)
	if committed < sent {
		os.Exit(1)
	}
}

// feed queues one series. Unless full is set, only bars newer than the last
// stored one are sent; the last stored bucket itself is rewritten since it
// may have been partial.
func feed(ctx context.Context, w *sqlitestore.Writer, bars []model.Bar, symbol, interval string, full bool, out chan<- sqlitestore.SeriesBar) int {
	var after time.Time
	if !full {
		last, err := w.GetLastTimestamp(ctx, symbol, interval)
		if err != nil {
			log.Printf("[ingest] %s: last timestamp: %v", model.SeriesKey(symbol, interval), err)
		} else if !last.IsZero() {
			after = last.Add(-time.Second)
		}
	}
	n := ingest.Feed(ctx, bars, symbol, interval, after, out)
	log.Printf("[ingest] %s: queued %d of %d bars", model.SeriesKey(symbol, interval), n, len(bars))
	return n
}
