// cmd/scanner recomputes signals for a watch list on a cron schedule and
// alerts when a symbol's action changes.
//
// Usage:
//
//	go run ./cmd/scanner --config=config.yaml
//	go run ./cmd/scanner --once
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"trading-signalsv1/config"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/metrics"
	"trading-signalsv1/internal/notification"
	"trading-signalsv1/internal/scanner"
	rediscache "trading-signalsv1/internal/store/redis"
	sqlitestore "trading-signalsv1/internal/store/sqlite"
	"trading-signalsv1/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	once := flag.Bool("once", false, "Scan once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[scanner] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[scanner] config: %v", err)
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("[scanner] %v", err)
	}
	logger.Init("signals-scanner", level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := sqlitestore.NewReader(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[scanner] sqlite reader: %v", err)
	}
	defer reader.Close()

	symbols := cfg.Scanner.Symbols
	if len(symbols) == 0 {
		symbols, err = reader.Symbols(ctx, cfg.Scanner.Interval)
		if err != nil {
			log.Fatalf("[scanner] list symbols: %v", err)
		}
	}
	if len(symbols) == 0 {
		log.Fatalf("[scanner] no symbols configured or stored for interval %s", cfg.Scanner.Interval)
	}

	var strategies []strategy.Strategy
	for _, name := range cfg.Scanner.Strategies {
		s, err := strategy.Lookup(name)
		if err != nil {
			log.Fatalf("[scanner] %v", err)
		}
		strategies = append(strategies, s)
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	scfg := scanner.Config{
		Bars:       reader,
		Notifier:   notifiers(cfg),
		Metrics:    m,
		Symbols:    symbols,
		Interval:   cfg.Scanner.Interval,
		Limit:      cfg.Analysis.DefaultLimit,
		Strategies: strategies,
	}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		c, err := rediscache.New(rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			OnStateChange: func(_, to rediscache.State) {
				m.BreakerStateChanged(int(to))
			},
		})
		if err != nil {
			slog.Warn("redis unavailable, keeping scanner state in memory", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer c.Close()
			scfg.Latest = c
			scfg.Pub = c
			rdb = c.Client()
		}
	}

	sc := scanner.New(scfg)

	if *once {
		r := sc.ScanOnce(ctx)
		slog.Info("scan complete", "scanned", r.Scanned, "alerts", r.Alerts, "errors", r.Errors)
		if r.Errors > 0 {
			os.Exit(1)
		}
		return
	}

	health := metrics.NewHealthStatus(rdb != nil)
	health.StartLivenessChecker(ctx, rdb, reader.DB(), 10*time.Second)
	metricsSrv := metrics.NewServer(cfg.HTTP.MetricsAddr, health, prometheus.DefaultGatherer)
	metricsSrv.Start()

	sc.Start(ctx)
	if err := sc.Schedule(ctx, cfg.Scanner.Cron); err != nil {
		log.Fatalf("[scanner] %v", err)
	}
	slog.Info("scanner running",
		"symbols", len(symbols),
		"interval", cfg.Scanner.Interval,
		"cron", cfg.Scanner.Cron,
		"strategies", cfg.Scanner.Strategies,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutdown signal received")

	sc.Stop()
	cancel()
	select {
	case <-sc.Done():
	case <-time.After(5 * time.Second):
		slog.Warn("publisher did not drain in time")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	metricsSrv.Stop(shutdownCtx)
}

// notifiers always logs, and additionally posts to every configured sink.
func notifiers(cfg *config.Config) notification.Notifier {
	out := notification.Multi{notification.NewLogNotifier()}
	if cfg.Scanner.WebhookURL != "" {
		out = append(out, notification.NewWebhookNotifier(cfg.Scanner.WebhookURL))
	}
	if cfg.Scanner.TelegramToken != "" {
		out = append(out, notification.NewTelegramNotifier(cfg.Scanner.TelegramToken, cfg.Scanner.TelegramChatID))
	}
	return out
}
