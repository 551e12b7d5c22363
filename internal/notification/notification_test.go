package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trading-signalsv1/internal/analysis"
	"trading-signalsv1/internal/model"
)

func signal(action model.Action, conf float64) analysis.Signal {
	return analysis.Signal{
		Signal:     action,
		Confidence: conf,
		Indicators: analysis.Snapshot{
			RSI:            28.4,
			RSISignal:      model.ZoneOversold,
			MACDSignal:     model.TrendBullish,
			MACDCrossover:  model.CrossoverNone,
			BollingerBands: model.BandNormal,
		},
		Analysis: analysis.Tally{BullishSignals: 3, BearishSignals: 1},
	}
}

func TestSignalChange(t *testing.T) {
	tests := []struct {
		name  string
		prev  model.Action
		next  model.Action
		conf  float64
		ok    bool
		level AlertLevel
	}{
		{"unchanged", model.ActionBuy, model.ActionBuy, 80, false, ""},
		{"first hold is silent", "", model.ActionHold, 0, false, ""},
		{"first buy", "", model.ActionBuy, 60, true, AlertInfo},
		{"strong flip", model.ActionSell, model.ActionBuy, 75, true, AlertWarning},
		{"back to hold", model.ActionBuy, model.ActionHold, 0, true, AlertInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := SignalChange("AAPL", "1h", tt.prev, signal(tt.next, tt.conf), 187.456)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if a.Level != tt.level {
				t.Errorf("level = %s, want %s", a.Level, tt.level)
			}
			if a.Symbol != "AAPL" || a.Interval != "1h" {
				t.Errorf("alert = %+v", a)
			}
			if !strings.Contains(a.Message, "price 187.46") {
				t.Errorf("message = %q", a.Message)
			}
		})
	}

	a, _ := SignalChange("BTC", "4h", "", signal(model.ActionSell, 66.7), 1)
	if a.Title != "BTC 4h: none -> SELL" {
		t.Errorf("title = %q", a.Title)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("method %s content-type %q", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	n.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "t", Message: "m", Symbol: "ETH"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["level"] != "WARNING" || got["symbol"] != "ETH" || got["ts"] != "2024-05-01T12:00:00Z" {
		t.Errorf("payload = %v", got)
	}
}

func TestWebhookNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want status 502", err)
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var path string
	var msg telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &msg)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "42")
	n.apiBase = srv.URL
	if err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "BTC 1h", Message: "price 1.5"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if msg.ChatID != "42" || msg.ParseMode != "MarkdownV2" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Text != "\\[\\!\\!\\] *BTC 1h*\n\nprice 1\\.5" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b (c) 1.5!"); got != `a\_b \(c\) 1\.5\!` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}

type failing struct{ err error }

func (f failing) Send(context.Context, Alert) error { return f.err }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	m := Multi{NewLogNotifier(), failing{boom}, NewLogNotifier()}
	if err := m.Send(context.Background(), Alert{Title: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if err := (Multi{NewLogNotifier()}).Send(context.Background(), Alert{}); err != nil {
		t.Fatalf("err = %v", err)
	}
}
