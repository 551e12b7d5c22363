// Package replay walks stored bar history forward and emits the growing
// window at each bar, the way a live feed would have revealed it.
package replay

import (
	"context"
	"fmt"
	"log"
	"time"

	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/strategy"
)

// maxGap caps the sleep between two emitted windows.
const maxGap = 5 * time.Second

// Replayer reads bars from a BarReader and replays them as windows.
type Replayer struct {
	reader model.BarReader
}

// New creates a Replayer backed by reader.
func New(reader model.BarReader) *Replayer {
	return &Replayer{reader: reader}
}

// Options selects the series and the playback.
type Options struct {
	Symbol   string
	Interval string
	Limit    int       // latest bars to load; <= 0 loads all
	Warmup   int       // windows shorter than this are skipped
	From     time.Time // first bar to emit a window for; zero emits all
	Speed    float64   // 1 = real time, 100 = 100x, 0 = as fast as possible
}

// Run emits bars[:i+1] for every i past the warm-up into outCh. It returns
// the number of windows emitted. outCh is not closed.
func (r *Replayer) Run(ctx context.Context, opts Options, outCh chan<- strategy.Window) (int, error) {
	bars, err := r.reader.ReadBars(ctx, opts.Symbol, opts.Interval, opts.Limit)
	if err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}
	if len(bars) == 0 {
		log.Printf("[replay] no bars for %s", model.SeriesKey(opts.Symbol, opts.Interval))
		return 0, nil
	}

	log.Printf("[replay] loaded %d bars for %s, speed=%.1fx",
		len(bars), model.SeriesKey(opts.Symbol, opts.Interval), opts.Speed)

	var prevTS time.Time
	emitted := 0
	for i := max(opts.Warmup, 1) - 1; i < len(bars); i++ {
		b := bars[i]
		if !opts.From.IsZero() && b.Timestamp.Before(opts.From) {
			continue
		}

		if opts.Speed > 0 && !prevTS.IsZero() {
			if gap := b.Timestamp.Sub(prevTS); gap > 0 {
				scaled := min(time.Duration(float64(gap)/opts.Speed), maxGap)
				select {
				case <-ctx.Done():
					return emitted, ctx.Err()
				case <-time.After(scaled):
				}
			}
		}
		prevTS = b.Timestamp

		w := strategy.Window{Symbol: opts.Symbol, Interval: opts.Interval, Bars: bars[:i+1]}
		select {
		case outCh <- w:
			emitted++
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d windows", emitted)
			return emitted, ctx.Err()
		}
	}

	log.Printf("[replay] completed: %d windows replayed", emitted)
	return emitted, nil
}
