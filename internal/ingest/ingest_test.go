package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/unicode"

	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/store/sqlite"
)

func TestReadCSV_HeaderAnyOrder(t *testing.T) {
	in := "Date,Close,Open,High,Low,Volume\n" +
		"2024-01-02,11,10,12,9,500\n" +
		"2024-01-01,10,9,10.5,8.5,400\n"
	bars, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("len = %d, want 2", len(bars))
	}
	want := model.Bar{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Open:      9, High: 10.5, Low: 8.5, Close: 10, Volume: 400,
	}
	if bars[0] != want {
		t.Errorf("bars[0] = %+v, want %+v (sorted oldest first)", bars[0], want)
	}
	if bars[1].Close != 11 || bars[1].Open != 10 {
		t.Errorf("bars[1] = %+v", bars[1])
	}
}

func TestReadCSV_NoHeader(t *testing.T) {
	// seconds, milliseconds and RFC3339 in one file
	in := "1704067200,1,2,0.5,1.5,10\n" +
		"1704070800000,1.5,2.5,1,2,20\n" +
		"2024-01-01T02:00:00Z,2,3,1.5,2.5\n"
	bars, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("len = %d, want 3", len(bars))
	}
	for i, b := range bars {
		want := time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC)
		if !b.Timestamp.Equal(want) {
			t.Errorf("bars[%d].Timestamp = %v, want %v", i, b.Timestamp, want)
		}
	}
	if bars[2].Volume != 0 {
		t.Errorf("missing volume = %v, want 0", bars[2].Volume)
	}
}

func TestReadCSV_DuplicateKeepsLast(t *testing.T) {
	in := "ts,open,high,low,close\n" +
		"1704067200,1,1,1,1\n" +
		"1704067200,2,2,2,2\n"
	bars, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 2 {
		t.Errorf("bars = %+v, want one bar closing at 2", bars)
	}
}

func TestReadCSV_UTF16(t *testing.T) {
	src := "timestamp,open,high,low,close,volume\n1704067200,1,2,0.5,1.5,10\n"
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, err := enc.Bytes([]byte(src))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bars, err := ReadCSV(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 1.5 {
		t.Errorf("bars = %+v", bars)
	}

	// UTF-8 BOM must not leak into the first header name.
	bars, err = ReadCSV(strings.NewReader("\ufeff" + src))
	if err != nil || len(bars) != 1 {
		t.Errorf("utf-8 bom: bars=%v err=%v", bars, err)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bad price", "1704067200,1,x,1,1\n"},
		{"bad timestamp", "yesterday,1,1,1,1\n"},
		{"short row", "1704067200,1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), "line 1") {
				t.Errorf("err = %v, want line 1 error", err)
			}
		})
	}

	if _, err := ReadCSV(strings.NewReader("timestamp,open,high,low,close\n")); !errors.Is(err, ErrNoBars) {
		t.Errorf("header only: err = %v, want ErrNoBars", err)
	}
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte("1704067200,1,2,0.5,1.5,10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bars, err := ReadCSVFile(path)
	if err != nil || len(bars) != 1 {
		t.Fatalf("ReadCSVFile: bars=%v err=%v", bars, err)
	}
	if _, err := ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("missing file: want error")
	}
}

func minuteBars(n int) []model.Bar {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = model.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      p, High: p + 2, Low: p - 1, Close: p + 1, Volume: 10,
		}
	}
	return bars
}

func TestResample(t *testing.T) {
	out, err := Resample(minuteBars(12), 5*time.Minute)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	// 09:00-09:04, 09:05-09:09, 09:10-09:11
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	first := model.Bar{
		Timestamp: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Open:      100, High: 106, Low: 99, Close: 105, Volume: 50,
	}
	if out[0] != first {
		t.Errorf("out[0] = %+v, want %+v", out[0], first)
	}
	if out[2].Open != 110 || out[2].Close != 112 || out[2].Volume != 20 {
		t.Errorf("partial bucket = %+v", out[2])
	}
}

func TestResample_Errors(t *testing.T) {
	if _, err := Resample(minuteBars(3), 0); err == nil {
		t.Error("zero step: want error")
	}
	if _, err := Resample(minuteBars(3), 1500*time.Millisecond); err == nil {
		t.Error("fractional step: want error")
	}
	bars := minuteBars(10)
	bars[0], bars[9] = bars[9], bars[0]
	if _, err := Resample(bars, 5*time.Minute); err == nil {
		t.Error("unordered bars: want error")
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1m", time.Minute},
		{"15m", 15 * time.Minute},
		{"4H", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"30s", 30 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseInterval(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"", "m", "0m", "5y", "-1h"} {
		if _, err := ParseInterval(bad); err == nil {
			t.Errorf("ParseInterval(%q): want error", bad)
		}
	}
}

func TestStaticReader(t *testing.T) {
	r := StaticReader(minuteBars(10))
	got, err := r.ReadBars(context.Background(), "ANY", "1m", 3)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 || got[0].Open != 107 {
		t.Errorf("got %d bars starting %v, want last 3", len(got), got[0].Open)
	}
	got[0].Open = -1
	if r[7].Open != 107 {
		t.Error("ReadBars exposed backing slice")
	}
	all, _ := r.ReadBars(context.Background(), "", "", 0)
	if len(all) != 10 {
		t.Errorf("limit 0: %d bars, want 10", len(all))
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestFeed_SkipsStored(t *testing.T) {
	bars := minuteBars(5)
	out := make(chan sqlite.SeriesBar, 5)
	n := Feed(context.Background(), bars, "BTC", "1m", bars[1].Timestamp, out)
	close(out)
	if n != 3 {
		t.Fatalf("sent = %d, want 3", n)
	}
	sb := <-out
	if sb.Symbol != "BTC" || sb.Interval != "1m" || !sb.Bar.Timestamp.Equal(bars[2].Timestamp) {
		t.Errorf("first = %+v", sb)
	}
}

func TestFeed_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := Feed(ctx, minuteBars(5), "BTC", "1m", time.Time{}, make(chan sqlite.SeriesBar)); n != 0 {
		t.Errorf("sent = %d after cancel, want 0", n)
	}
}
