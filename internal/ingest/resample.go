package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trading-signalsv1/internal/model"
)

// ParseInterval converts "30s", "5m", "1h", "4h", "1d" or "1w" to a duration.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	unit := map[byte]time.Duration{
		's': time.Second,
		'm': time.Minute,
		'h': time.Hour,
		'd': 24 * time.Hour,
		'w': 7 * 24 * time.Hour,
	}[s[len(s)-1]]
	if unit == 0 {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	return time.Duration(n) * unit, nil
}

// Resample merges chronologically ordered bars into step-wide buckets aligned
// to the Unix epoch (UTC). Open is the first bar's, close the last's, high and
// low the extremes, volume the sum. A bucket is stamped with its start time.
func Resample(bars []model.Bar, step time.Duration) ([]model.Bar, error) {
	if step <= 0 || step%time.Second != 0 {
		return nil, fmt.Errorf("resample step must be a positive whole number of seconds, got %v", step)
	}
	stepS := int64(step / time.Second)

	var out []model.Bar
	bucket := int64(-1)
	for _, b := range bars {
		ts := b.Timestamp.Unix()
		start := ts - ts%stepS
		if ts < 0 && ts%stepS != 0 {
			start -= stepS
		}
		if len(out) > 0 && start < bucket {
			return nil, fmt.Errorf("bars out of order at %s", b.Timestamp.Format(time.RFC3339))
		}

		if len(out) == 0 || start != bucket {
			bucket = start
			nb := b
			nb.Timestamp = time.Unix(start, 0).UTC()
			out = append(out, nb)
			continue
		}

		agg := &out[len(out)-1]
		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Close = b.Close
		agg.Volume += b.Volume
	}
	return out, nil
}
