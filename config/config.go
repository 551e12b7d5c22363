package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
//
// Sources, lowest precedence first: built-in defaults, the YAML file, the
// process environment (a .env file in the working directory is loaded into
// the environment first, without overriding variables already set).
type Config struct {
	HTTP struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"http"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`

	Redis struct {
		Addr     string        `yaml:"addr"` // empty disables the cache
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Analysis struct {
		DefaultInterval string `yaml:"default_interval"`
		DefaultLimit    int    `yaml:"default_limit"`
		BacktestLimit   int    `yaml:"backtest_limit"`
	} `yaml:"analysis"`

	Scanner struct {
		Symbols  []string `yaml:"symbols"`
		Interval string   `yaml:"interval"`
		// Cron has six fields, seconds first.
		Cron string `yaml:"cron"`
		// Strategies are evaluated per scan and published on the signals channel.
		Strategies []string `yaml:"strategies"`
		WebhookURL string   `yaml:"webhook_url"`

		TelegramToken  string `yaml:"telegram_token"`
		TelegramChatID string `yaml:"telegram_chat_id"`
	} `yaml:"scanner"`
}

// Load reads path (a missing file is not an error), applies environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.MetricsAddr = getEnv("METRICS_ADDR", c.HTTP.MetricsAddr)
	c.Database.SQLitePath = getEnv("SQLITE_PATH", c.Database.SQLitePath)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Analysis.DefaultInterval = getEnv("DEFAULT_INTERVAL", c.Analysis.DefaultInterval)
	c.Scanner.Interval = getEnv("SCANNER_INTERVAL", c.Scanner.Interval)
	c.Scanner.Cron = getEnv("SCANNER_CRON", c.Scanner.Cron)
	c.Scanner.WebhookURL = getEnv("WEBHOOK_URL", c.Scanner.WebhookURL)
	c.Scanner.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.Scanner.TelegramToken)
	c.Scanner.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.Scanner.TelegramChatID)

	if v := os.Getenv("SCANNER_SYMBOLS"); v != "" {
		c.Scanner.Symbols = ParseList(v)
	}
	if v := os.Getenv("SCANNER_STRATEGIES"); v != "" {
		c.Scanner.Strategies = ParseList(v)
	}

	var err error
	if c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Analysis.DefaultLimit, err = getEnvInt("DEFAULT_LIMIT", c.Analysis.DefaultLimit); err != nil {
		return err
	}
	if c.Analysis.BacktestLimit, err = getEnvInt("BACKTEST_LIMIT", c.Analysis.BacktestLimit); err != nil {
		return err
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("[config] CACHE_TTL: %w", err)
		}
		c.Redis.CacheTTL = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MetricsAddr == "" {
		c.HTTP.MetricsAddr = ":9090"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/bars.db"
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Analysis.DefaultInterval == "" {
		c.Analysis.DefaultInterval = "1h"
	}
	if c.Analysis.DefaultLimit == 0 {
		c.Analysis.DefaultLimit = 100
	}
	if c.Analysis.BacktestLimit == 0 {
		c.Analysis.BacktestLimit = 500
	}
	if c.Scanner.Interval == "" {
		c.Scanner.Interval = c.Analysis.DefaultInterval
	}
	if c.Scanner.Cron == "" {
		c.Scanner.Cron = "0 */15 * * * *"
	}
	if len(c.Scanner.Strategies) == 0 {
		c.Scanner.Strategies = []string{"combined"}
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Analysis.DefaultLimit <= 0 || c.Analysis.BacktestLimit <= 0 {
		return fmt.Errorf("analysis limits must be positive")
	}
	if c.Redis.CacheTTL < 0 {
		return fmt.Errorf("redis.cache_ttl must not be negative")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}
	if (c.Scanner.TelegramToken == "") != (c.Scanner.TelegramChatID == "") {
		return fmt.Errorf("scanner.telegram_token and scanner.telegram_chat_id must be set together")
	}
	if len(strings.Fields(c.Scanner.Cron)) != 6 {
		return fmt.Errorf("scanner.cron must have six fields (seconds first), got %q", c.Scanner.Cron)
	}
	return nil
}

// ParseList splits a comma-separated list, trimming blanks.
func ParseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q", key, v)
		return 0, fmt.Errorf("[config] %s: %w", key, err)
	}
	return n, nil
}
