package ingest

import (
	"context"
	"time"

	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/store/sqlite"
)

// Feed sends bars newer than after to out, tagged with symbol and interval.
// It stops early when ctx is cancelled and returns the number sent. out is
// left open.
func Feed(ctx context.Context, bars []model.Bar, symbol, interval string, after time.Time, out chan<- sqlite.SeriesBar) int {
	sent := 0
	for _, b := range bars {
		if !after.IsZero() && !b.Timestamp.After(after) {
			continue
		}
		select {
		case out <- sqlite.SeriesBar{Symbol: symbol, Interval: interval, Bar: b}:
			sent++
		case <-ctx.Done():
			return sent
		}
	}
	return sent
}
