// Package redis caches computed analyses in Redis behind a circuit breaker.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultKeyPrefix    = "ts:"
	defaultMaxFailures  = 5
	defaultResetTimeout = 10 * time.Second
)

// Config configures the Redis cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	KeyPrefix    string        // prepended to every key (default "ts:")
	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // open interval before a half-open probe

	// OnStateChange, if set, is called after each breaker transition is logged.
	OnStateChange func(from, to State)
}

// Cache is a TTL cache of JSON payloads. It satisfies model.Cache.
type Cache struct {
	client *goredis.Client
	cb     *CircuitBreaker
	prefix string
}

// New creates a Cache and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client, cfg Config) *Cache {
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	reset := cfg.ResetTimeout
	if reset <= 0 {
		reset = defaultResetTimeout
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	cb := NewCircuitBreaker(maxFailures, reset)
	cb.IsFailure = func(err error) bool { return !errors.Is(err, goredis.Nil) }
	cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s → %s", from, to)
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(from, to)
		}
	}
	return &Cache{client: client, cb: cb, prefix: prefix}
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker returns the circuit breaker guarding the client.
func (c *Cache) Breaker() *CircuitBreaker { return c.cb }

// Key returns the namespaced key.
func (c *Cache) Key(key string) string { return c.prefix + key }

// Get returns the cached payload for key. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.cb.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, c.Key(key)).Bytes()
		return err
	})
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores data under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.cb.Execute(func() error {
		return c.client.Set(ctx, c.Key(key), data, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// SwapLatest stores value as the latest value of key and returns the value
// it replaced ("" if none). The key expires after ttl.
func (c *Cache) SwapLatest(ctx context.Context, key, value string, ttl time.Duration) (string, error) {
	var prev string
	err := c.cb.Execute(func() error {
		pipe := c.client.TxPipeline()
		getset := pipe.GetSet(ctx, c.Key(key), value)
		pipe.Expire(ctx, c.Key(key), ttl)
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		v, err := getset.Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		prev = v
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis GETSET %s: %w", key, err)
	}
	return prev, nil
}

// Publish sends payload on a PubSub channel.
func (c *Cache) Publish(ctx context.Context, channel string, payload []byte) error {
	err := c.cb.Execute(func() error {
		return c.client.Publish(ctx, c.Key(channel), payload).Err()
	})
	if err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", channel, err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
