package ingest

import (
	"context"

	"trading-signalsv1/internal/model"
)

// StaticReader serves one in-memory series for any symbol and interval.
type StaticReader []model.Bar

// ReadBars returns the latest limit bars (all when limit <= 0).
func (s StaticReader) ReadBars(_ context.Context, _, _ string, limit int) ([]model.Bar, error) {
	bars := []model.Bar(s)
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return append([]model.Bar(nil), bars...), nil
}

func (StaticReader) Close() error { return nil }
