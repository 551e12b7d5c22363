// Package ingest parses bar files and resamples them into coarser intervals.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"trading-signalsv1/internal/model"
)

// ErrNoBars is returned when a file yields no parsable bar.
var ErrNoBars = errors.New("no bars parsed")

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// column positions; volume is optional (-1).
type columns struct {
	ts, open, high, low, close, volume int
}

var defaultColumns = columns{ts: 0, open: 1, high: 2, low: 3, close: 4, volume: 5}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV parses timestamp,open,high,low,close[,volume] rows. A header row,
// if present, may name the columns in any order. UTF-8 and UTF-16 byte order
// marks are honoured. Timestamps are Unix seconds, Unix milliseconds or one
// of the layouts in timeLayouts (UTC when no zone is given).
//
// The result is sorted oldest first; a repeated timestamp keeps the last row.
func ReadCSV(r io.Reader) ([]model.Bar, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols := defaultColumns
	var bars []model.Bar
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 {
			if c, ok := headerColumns(rec); ok {
				cols = c
				continue
			}
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		b, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func headerColumns(rec []string) (columns, bool) {
	c := columns{ts: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range rec {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp", "timestamp_ms", "time", "date", "datetime", "ts":
			c.ts = i
		case "open", "o":
			c.open = i
		case "high", "h":
			c.high = i
		case "low", "l":
			c.low = i
		case "close", "c", "adj close":
			if c.close < 0 {
				c.close = i
			}
		case "volume", "vol", "v":
			c.volume = i
		}
	}
	if c.ts < 0 || c.open < 0 || c.high < 0 || c.low < 0 || c.close < 0 {
		return columns{}, false
	}
	return c, true
}

func parseRow(rec []string, c columns) (model.Bar, error) {
	need := max(c.ts, c.open, c.high, c.low, c.close)
	if len(rec) <= need {
		return model.Bar{}, fmt.Errorf("want at least %d fields, got %d", need+1, len(rec))
	}
	ts, err := parseTime(rec[c.ts])
	if err != nil {
		return model.Bar{}, err
	}

	var b model.Bar
	b.Timestamp = ts
	fields := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"open", c.open, &b.Open},
		{"high", c.high, &b.High},
		{"low", c.low, &b.Low},
		{"close", c.close, &b.Close},
		{"volume", c.volume, &b.Volume},
	}
	for _, f := range fields {
		if f.idx < 0 || f.idx >= len(rec) {
			continue
		}
		s := strings.Trim(strings.TrimSpace(rec[f.idx]), `"`)
		if s == "" && f.name == "volume" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("%s %q: %w", f.name, s, err)
		}
		*f.dst = v
	}
	return b, nil
}

// Unix timestamps from 1e11 on are taken as milliseconds.
const msThreshold = 100_000_000_000

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n >= msThreshold {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
