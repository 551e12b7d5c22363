package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the serving layer from concrete storage
// implementations (SQLite, Redis). The analytic core never touches them.

// BarReader reads chronologically ordered bars for a symbol and interval.
type BarReader interface {
	// ReadBars returns the most recent limit bars, oldest first.
	ReadBars(ctx context.Context, symbol, interval string, limit int) ([]Bar, error)

	// Close releases underlying resources.
	Close() error
}

// BarWriter persists bars, replacing any existing bar at the same timestamp.
type BarWriter interface {
	WriteBars(ctx context.Context, symbol, interval string, bars []Bar) error

	// Close releases underlying resources.
	Close() error
}

// Cache stores JSON-encoded computed results with a TTL.
type Cache interface {
	// Get returns the cached payload. ok is false on a miss.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores the payload for ttl.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}
