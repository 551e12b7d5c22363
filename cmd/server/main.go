// cmd/server serves the analysis API over the bars stored in SQLite.
//
// Usage:
//
//	go run ./cmd/server --config=config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"trading-signalsv1/config"
	"trading-signalsv1/internal/api"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/metrics"
	"trading-signalsv1/internal/model"
	rediscache "trading-signalsv1/internal/store/redis"
	sqlitestore "trading-signalsv1/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[server] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] config: %v", err)
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}
	logger.Init("signals-api", level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := sqlitestore.NewReader(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[server] sqlite reader: %v", err)
	}
	defer reader.Close()

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.Database.SQLitePath})
	if err != nil {
		log.Fatalf("[server] sqlite writer: %v", err)
	}
	defer writer.Close()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	var (
		cache model.Cache
		rdb   *goredis.Client
	)
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
			slog.Warn("redis unavailable, serving without cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer c.Close()
			cache = c
			rdb = c.Client()
		}
	}

	health := metrics.NewHealthStatus(cfg.Redis.Addr != "")
	health.StartLivenessChecker(ctx, rdb, reader.DB(), 10*time.Second)
	metricsSrv := metrics.NewServer(cfg.HTTP.MetricsAddr, health, prometheus.DefaultGatherer)
	metricsSrv.Start()

	srv := api.NewServer(api.Options{
		Bars:            reader,
		Cache:           cache,
		CacheTTL:        cfg.Redis.CacheTTL,
		Runs:            writer,
		Metrics:         m,
		DefaultInterval: cfg.Analysis.DefaultInterval,
		DefaultLimit:    cfg.Analysis.DefaultLimit,
		BacktestLimit:   cfg.Analysis.BacktestLimit,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("api listening", "addr", cfg.HTTP.Addr, "cache", cache != nil)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	metricsSrv.Stop(shutdownCtx)
	cancel()
}
