package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/strategy"
)

type staticReader struct {
	bars []model.Bar
	err  error
}

func (s staticReader) ReadBars(context.Context, string, string, int) ([]model.Bar, error) {
	return s.bars, s.err
}

func (staticReader) Close() error { return nil }

var t0 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func series(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{Timestamp: t0.Add(time.Duration(i) * time.Minute), Close: 100 + float64(i)}
	}
	return bars
}

func collect(t *testing.T, r *Replayer, opts Options) ([]strategy.Window, int) {
	t.Helper()
	out := make(chan strategy.Window, 100)
	n, err := r.Run(context.Background(), opts, out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)
	var got []strategy.Window
	for w := range out {
		got = append(got, w)
	}
	return got, n
}

func TestRun_GrowingWindows(t *testing.T) {
	r := New(staticReader{bars: series(10)})
	got, n := collect(t, r, Options{Symbol: "X", Interval: "1m", Warmup: 4})
	// Windows of length 4..10.
	if n != 7 || len(got) != 7 {
		t.Fatalf("emitted %d windows (%d received), want 7", n, len(got))
	}
	for i, w := range got {
		if len(w.Bars) != 4+i || w.Symbol != "X" || w.Interval != "1m" {
			t.Errorf("window %d: len %d %s/%s", i, len(w.Bars), w.Symbol, w.Interval)
		}
	}
	if last := got[len(got)-1].Bars; last[len(last)-1].Close != 109 {
		t.Errorf("last window ends at %v", last[len(last)-1].Close)
	}
}

func TestRun_From(t *testing.T) {
	r := New(staticReader{bars: series(10)})
	got, _ := collect(t, r, Options{From: t0.Add(8 * time.Minute)})
	if len(got) != 2 || len(got[0].Bars) != 9 {
		t.Fatalf("got %d windows", len(got))
	}
}

func TestRun_EmptyAndError(t *testing.T) {
	if _, n := collect(t, New(staticReader{}), Options{}); n != 0 {
		t.Errorf("empty series emitted %d", n)
	}
	boom := errors.New("locked")
	_, err := New(staticReader{err: boom}).Run(context.Background(), Options{}, make(chan strategy.Window))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestRun_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := New(staticReader{bars: series(5)}).Run(ctx, Options{}, make(chan strategy.Window))
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Errorf("n=%d err=%v", n, err)
	}
}

func TestRun_FeedsEngine(t *testing.T) {
	bars := make([]model.Bar, 40)
	for i := range bars {
		bars[i] = model.Bar{Timestamp: t0.Add(time.Duration(i) * time.Hour), Close: 200 - float64(i)}
	}
	e := strategy.NewEngine(64)
	e.Register(strategy.RSI{Period: 14})

	windows := make(chan strategy.Window)
	go e.Run(context.Background(), windows)
	go func() {
		New(staticReader{bars: bars}).Run(context.Background(), Options{Warmup: 15}, windows)
		close(windows)
	}()

	count := 0
	for sig := range e.Signals() {
		if sig.Err != nil || sig.Action != model.ActionBuy {
			t.Fatalf("signal = %+v", sig)
		}
		count++
	}
	// Windows of length 15..40, RSI pinned at 0 on each.
	if count != 26 {
		t.Errorf("signals = %d, want 26", count)
	}
}
