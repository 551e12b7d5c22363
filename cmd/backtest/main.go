// cmd/backtest runs the single-position simulator over bars stored in SQLite
// (or a CSV file) and prints a summary per strategy.
//
// Usage:
//
//	go run ./cmd/backtest --symbol=AAPL --interval=1h --strategy=rsi,macd,combined
//	go run ./cmd/backtest --csv=bars.csv --strategy=combined
//	go run ./cmd/backtest --symbol=AAPL --replay --speed=100
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"trading-signalsv1/internal/backtest"
	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/ingest"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/replay"
	sqlitestore "trading-signalsv1/internal/store/sqlite"
	"trading-signalsv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	csvPath := flag.String("csv", "", "Read bars from this CSV file instead of SQLite")
	symbol := flag.String("symbol", "", "Symbol to backtest")
	interval := flag.String("interval", "1h", "Bar interval")
	limit := flag.Int("limit", 500, "Latest bars to load (0 = all)")
	strategies := flag.String("strategy", "combined", "Comma-separated strategies, or \"all\"")
	indicatorCfg := flag.String("indicators", "", "Also print indicators: TYPE:PERIOD,... (e.g. SMA:20,EMA:9,RSI:14)")
	save := flag.Bool("save", false, "Persist each report to SQLite")
	history := flag.Int("history", 0, "List this many recent stored runs and exit")
	replayMode := flag.Bool("replay", false, "Walk bars forward through the strategy engine and print signals")
	speed := flag.Float64("speed", 0, "Replay speed multiplier (0=max, 1=realtime, 100=100x)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	names := parseStrategies(*strategies)
	if len(names) == 0 {
		log.Fatal("[backtest] no valid strategies specified")
	}

	var reader model.BarReader
	if *csvPath != "" {
		bars, err := ingest.ReadCSVFile(*csvPath)
		if err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		reader = ingest.StaticReader(bars)
		if *symbol == "" {
			*symbol = strings.TrimSuffix(filepath.Base(*csvPath), ".csv")
		}
	} else {
		r, err := sqlitestore.NewReader(*dbPath)
		if err != nil {
			log.Fatalf("[backtest] sqlite open failed: %v", err)
		}
		defer r.Close()
		reader = r

		if *history > 0 {
			printHistory(ctx, r, *symbol, *history)
			return
		}
	}
	if *symbol == "" {
		log.Fatal("[backtest] --symbol is required")
	}

	if *replayMode {
		runReplay(ctx, reader, *symbol, *interval, *limit, *speed, names)
		return
	}

	bars, err := reader.ReadBars(ctx, *symbol, *interval, *limit)
	if err != nil {
		log.Fatalf("[backtest] read bars: %v", err)
	}
	log.Printf("[backtest] %s: %d bars", model.SeriesKey(*symbol, *interval), len(bars))

	if *indicatorCfg != "" {
		printIndicators(model.Closes(bars), indicator.ParseSpecs(*indicatorCfg))
	}

	var writer *sqlitestore.Writer
	if *save && *csvPath == "" {
		writer, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
		if err != nil {
			log.Fatalf("[backtest] sqlite writer: %v", err)
		}
		defer writer.Close()
	}

	for _, name := range names {
		start := time.Now()
		r, err := backtest.Run(bars, name)
		if err != nil {
			log.Printf("[backtest] %s: %v", name, err)
			continue
		}
		printReport(*symbol, *interval, r, time.Since(start))

		if writer != nil {
			id, err := writer.SaveBacktest(ctx, *symbol, *interval, r)
			if err != nil {
				log.Printf("[backtest] save %s: %v", name, err)
				continue
			}
			fmt.Printf("  saved as %s\n", id)
		}
	}
}

func runReplay(ctx context.Context, reader model.BarReader, symbol, interval string, limit int, speed float64, names []string) {
	engine := strategy.NewEngine(256)
	for _, name := range names {
		s, err := strategy.Lookup(name)
		if err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		engine.Register(s)
	}

	windowCh := make(chan strategy.Window, 64)
	go engine.Run(ctx, windowCh)
	go func() {
		opts := replay.Options{Symbol: symbol, Interval: interval, Limit: limit, Warmup: backtest.Warmup + 1, Speed: speed}
		if _, err := replay.New(reader).Run(ctx, opts, windowCh); err != nil {
			log.Printf("[backtest] replay error: %v", err)
		}
		close(windowCh)
	}()

	counts := make(map[string]int)
	for sig := range engine.Signals() {
		if sig.Err != nil {
			log.Printf("[backtest] %s: %v", sig.StrategyName, sig.Err)
			continue
		}
		counts[sig.StrategyName+" "+string(sig.Action)]++
		fmt.Printf("  [%s] %-8s %-4s @ %.4f\n",
			time.Unix(sig.Timestamp, 0).UTC().Format("2006-01-02 15:04"), sig.StrategyName, sig.Action, sig.Price)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        REPLAY COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════╣")
	for _, name := range names {
		fmt.Printf("║  %-10s BUY %-6d SELL %-7d ║\n", name, counts[name+" BUY"], counts[name+" SELL"])
	}
	fmt.Println("╚══════════════════════════════════════╝")
}

func printReport(symbol, interval string, r backtest.Report, took time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Series:            %-16s ║\n", model.SeriesKey(symbol, interval))
	fmt.Printf("║  Strategy:          %-16s ║\n", r.Strategy)
	fmt.Printf("║  Bars:              %-16d ║\n", r.Bars)
	fmt.Printf("║  Final capital:     %-16.2f ║\n", r.FinalCapital)
	fmt.Printf("║  Profit:            %-16s ║\n", fmt.Sprintf("%.2f (%.2f%%)", r.TotalProfit, r.ProfitPercent))
	fmt.Printf("║  Trades:            %-16d ║\n", r.TotalTrades)
	fmt.Printf("║  Win rate:          %-16s ║\n", fmt.Sprintf("%.1f%%", r.WinRate))
	fmt.Printf("║  Max drawdown:      %-16s ║\n", fmt.Sprintf("%.2f%%", r.MaxDrawdownPct))
	fmt.Printf("║  Took:              %-16s ║\n", took.Round(time.Microsecond))
	fmt.Println("╚══════════════════════════════════════╝")

	for _, t := range r.Trades {
		forced := ""
		if t.Forced {
			forced = " (forced)"
		}
		fmt.Printf("  %s -> %s  %d @ %.4f -> %.4f  %+.2f (%+.2f%%)%s\n",
			t.EntryTimestamp.Format("2006-01-02 15:04"), t.ExitTimestamp.Format("2006-01-02 15:04"),
			t.Shares, t.EntryPrice, t.ExitPrice, t.Profit, t.ProfitPercent, forced)
	}
}

func printIndicators(prices []float64, specs []indicator.Spec) {
	for _, spec := range specs {
		s, err := indicator.Compute(spec, prices)
		if err != nil {
			fmt.Printf("  %-8s error: %v\n", spec.Name(), err)
			continue
		}
		fmt.Printf("  %-8s = %.4f\n", spec.Name(), s.Current)
	}
}

func printHistory(ctx context.Context, r *sqlitestore.Reader, symbol string, n int) {
	runs, err := r.ListBacktests(ctx, symbol, n)
	if err != nil {
		log.Fatalf("[backtest] list runs: %v", err)
	}
	for _, run := range runs {
		fmt.Printf("  %s  %s %-4s %-9s bars=%-5d final=%.2f trades=%d win=%.1f%% dd=%.2f%%  %s\n",
			run.ID, run.Symbol, run.Interval, run.Strategy, run.Bars, run.FinalCapital,
			run.TotalTrades, run.WinRate, run.MaxDrawdownPct, run.CreatedAt.Format(time.RFC3339))
	}
}

// parseStrategies splits a comma list, expanding "all".
func parseStrategies(s string) []string {
	var names []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		switch {
		case p == "":
		case p == "all":
			return strategy.Names()
		default:
			names = append(names, p)
		}
	}
	return names
}
