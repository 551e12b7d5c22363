package indicator

import (
	"errors"
	"math"
	"testing"

	"trading-signalsv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertSeries(t *testing.T, label string, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len=%d, want %d", label, len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("%s[%d]: got %.6f, want %.6f", label, i, got[i], want[i])
		}
	}
}

func rising(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// (100+102+104)/3 = 102
	// (102+104+103)/3 = 103
	// (104+103+105)/3 = 104
	s, err := SMA([]float64{100, 102, 104, 103, 105}, 3)
	if err != nil {
		t.Fatalf("SMA: %v", err)
	}
	assertSeries(t, "SMA(3)", s.Values, []float64{102, 103, 104}, 1e-9)
	assertClose(t, "SMA(3) current", s.Current, 104, 1e-9)
}

func TestSMA_Correctness_Period5(t *testing.T) {
	s, err := SMA([]float64{10, 11, 12, 13, 14, 15, 16}, 5)
	if err != nil {
		t.Fatalf("SMA: %v", err)
	}
	assertSeries(t, "SMA(5)", s.Values, []float64{12, 13, 14}, 1e-9)
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// k = 2/(3+1) = 0.5
	// Seed: (100+102+104)/3 = 102
	// 103: 103*0.5 + 102*0.5   = 102.5
	// 105: 105*0.5 + 102.5*0.5 = 103.75
	s, err := EMA([]float64{100, 102, 104, 103, 105}, 3)
	if err != nil {
		t.Fatalf("EMA: %v", err)
	}
	assertSeries(t, "EMA(3)", s.Values, []float64{102, 102.5, 103.75}, 1e-9)
}

func TestEMA_Length(t *testing.T) {
	prices := rising(40, 100, 1)
	for _, period := range []int{1, 5, 12, 40} {
		s, err := EMA(prices, period)
		if err != nil {
			t.Fatalf("EMA(%d): %v", period, err)
		}
		if want := len(prices) - period + 1; len(s.Values) != want {
			t.Errorf("EMA(%d): len=%d, want %d", period, len(s.Values), want)
		}
	}
}

func TestEMA_ConstantSeries(t *testing.T) {
	s, err := EMA(constant(30, 101.5), 12)
	if err != nil {
		t.Fatalf("EMA: %v", err)
	}
	for i, v := range s.Values {
		if v != 101.5 {
			t.Fatalf("EMA[%d] = %v on a constant series, want 101.5", i, v)
		}
	}
}

func TestEMA_DoesNotMutateInput(t *testing.T) {
	prices := []float64{100, 102, 104, 103, 105}
	orig := append([]float64(nil), prices...)
	if _, err := EMA(prices, 3); err != nil {
		t.Fatalf("EMA: %v", err)
	}
	for i := range prices {
		if prices[i] != orig[i] {
			t.Fatalf("input mutated at %d: %v != %v", i, prices[i], orig[i])
		}
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Wilder14(t *testing.T) {
	// 15 prices → 14 changes → exactly one RSI value (the seed).
	// Gains sum 3.68, losses sum 1.46:
	//   avgGain = 3.68/14 = 0.262857...
	//   avgLoss = 1.46/14 = 0.104285...
	//   RSI = 100 - 100/(1 + 0.262857/0.104285) = 71.595330...
	prices := []float64{44, 44.25, 44.5, 43.75, 44.65, 45.12, 45.34, 45.1, 46.0, 46.28, 46.28, 46.0, 46.03, 46.41, 46.22}
	r, err := RSI(prices, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if len(r.Values) != 1 {
		t.Fatalf("RSI values len=%d, want 1", len(r.Values))
	}
	assertClose(t, "RSI(14)", r.Current, 71.5953307392996, 1e-9)
	if r.Signal != model.ZoneOverbought {
		t.Errorf("signal = %s, want Overbought", r.Signal)
	}
}

func TestRSI_Correctness_Smoothing(t *testing.T) {
	// Period 2, prices 10, 11, 10, 12:
	//   changes +1, -1, +2
	//   seed:   avgGain = 0.5,  avgLoss = 0.5  → RSI 50
	//   next:   avgGain = (0.5*1+2)/2 = 1.25, avgLoss = (0.5*1+0)/2 = 0.25
	//           RS = 5 → RSI = 100 - 100/6 = 83.3333
	r, err := RSI([]float64{10, 11, 10, 12}, 2)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	assertSeries(t, "RSI(2)", r.Values, []float64{50, 100 - 100.0/6.0}, 1e-9)
}

func TestRSI_AllUp_Is100(t *testing.T) {
	r, err := RSI(rising(30, 100, 1), 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	for i, v := range r.Values {
		if v != 100 {
			t.Fatalf("RSI[%d] = %v on a rising series, want 100", i, v)
		}
	}
}

func TestRSI_AllDown_Is0(t *testing.T) {
	r, err := RSI(rising(30, 200, -1), 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	assertClose(t, "RSI falling", r.Current, 0, 1e-9)
	if r.Signal != model.ZoneOversold {
		t.Errorf("signal = %s, want Oversold", r.Signal)
	}
}

func TestRSI_Flat_Is50(t *testing.T) {
	r, err := RSI(constant(20, 42), 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if r.Current != 50 {
		t.Errorf("RSI flat = %v, want 50", r.Current)
	}
	if r.Signal != model.ZoneNeutral {
		t.Errorf("signal = %s, want Neutral", r.Signal)
	}
}

func TestRSI_Bounded(t *testing.T) {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/7) + 3*math.Cos(float64(i)/3)
	}
	r, err := RSI(prices, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if len(r.Values) != len(prices)-14 {
		t.Fatalf("len=%d, want %d", len(r.Values), len(prices)-14)
	}
	for i, v := range r.Values {
		if v < 0 || v > 100 {
			t.Fatalf("RSI[%d] = %v out of [0,100]", i, v)
		}
	}
}

func TestRSIZone_Thresholds(t *testing.T) {
	tests := []struct {
		rsi  float64
		want model.Zone
	}{
		{70.01, model.ZoneOverbought},
		{70, model.ZoneNeutral},
		{50, model.ZoneNeutral},
		{30, model.ZoneNeutral},
		{29.99, model.ZoneOversold},
	}
	for _, tt := range tests {
		if got := RSIZone(tt.rsi); got != tt.want {
			t.Errorf("RSIZone(%v) = %s, want %s", tt.rsi, got, tt.want)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger Bands
// ────────────────────────────────────────────────────────────

func TestBollinger_Correctness_1to20(t *testing.T) {
	// Prices 1..20: mean 10.5, population σ = sqrt(33.25) = 5.766281...
	r, err := BollingerBands(rising(20, 1, 1), 20, 2)
	if err != nil {
		t.Fatalf("BollingerBands: %v", err)
	}
	sigma := math.Sqrt(33.25)
	assertClose(t, "middle", r.Middle, 10.5, 1e-9)
	assertClose(t, "upper", r.Upper, 10.5+2*sigma, 1e-9)
	assertClose(t, "lower", r.Lower, 10.5-2*sigma, 1e-9)
	if r.Signal != model.BandNormal {
		t.Errorf("signal = %s, want Normal", r.Signal)
	}
	if len(r.MiddleBand) != 1 {
		t.Errorf("band len=%d, want 1", len(r.MiddleBand))
	}
}

func TestBollinger_ConstantSeries_Collapses(t *testing.T) {
	r, err := BollingerBands(constant(30, 101.5), 20, 2)
	if err != nil {
		t.Fatalf("BollingerBands: %v", err)
	}
	if r.Upper != 101.5 || r.Middle != 101.5 || r.Lower != 101.5 {
		t.Errorf("bands = %v/%v/%v, want all 101.5", r.Upper, r.Middle, r.Lower)
	}
	if r.Signal != model.BandNormal {
		t.Errorf("signal = %s, want Normal (touching is not outside)", r.Signal)
	}
}

func TestBollinger_Ordering(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 50 + 5*math.Sin(float64(i)/4)
	}
	r, err := BollingerBands(prices, 20, 2)
	if err != nil {
		t.Fatalf("BollingerBands: %v", err)
	}
	for i := range r.MiddleBand {
		if !(r.LowerBand[i] <= r.MiddleBand[i] && r.MiddleBand[i] <= r.UpperBand[i]) {
			t.Fatalf("band order violated at %d: %v %v %v", i, r.LowerBand[i], r.MiddleBand[i], r.UpperBand[i])
		}
	}
}

func TestBollinger_BreakoutSignal(t *testing.T) {
	prices := append(constant(19, 100), 130)
	r, err := BollingerBands(prices, 20, 2)
	if err != nil {
		t.Fatalf("BollingerBands: %v", err)
	}
	// mean 101.5, σ = sqrt((19*1.5² + 28.5²)/20) = 6.538...; upper = 114.58 < 130
	if r.Signal != model.BandOverbought {
		t.Errorf("signal = %s, want Overbought", r.Signal)
	}

	prices[19] = 70
	r, err = BollingerBands(prices, 20, 2)
	if err != nil {
		t.Fatalf("BollingerBands: %v", err)
	}
	if r.Signal != model.BandOversold {
		t.Errorf("signal = %s, want Oversold", r.Signal)
	}
}

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

// crossoverSeries declines along a parabola for 60 bars and then climbs 2 per
// bar. The MACD line crosses above its signal line at prefix length 63.
func crossoverSeries() []float64 {
	prices := make([]float64, 0, 80)
	for i := 0; i < 60; i++ {
		prices = append(prices, 200-0.02*float64(i)*float64(i))
	}
	last := prices[59]
	for i := 1; i <= 20; i++ {
		prices = append(prices, last+2*float64(i))
	}
	return prices
}

func TestMACD_Lengths(t *testing.T) {
	prices := rising(60, 100, 0.5)
	r, err := DefaultMACD(prices)
	if err != nil {
		t.Fatalf("MACD: %v", err)
	}
	if want := 60 - 26 + 1; len(r.MACDLine) != want {
		t.Errorf("macd line len=%d, want %d", len(r.MACDLine), want)
	}
	if want := len(r.MACDLine) - 9 + 1; len(r.SignalLine) != want || len(r.HistogramLine) != want {
		t.Errorf("signal/histogram len=%d/%d, want %d", len(r.SignalLine), len(r.HistogramLine), want)
	}
	assertClose(t, "histogram", r.Histogram, r.MACD-r.Signal, 1e-12)
}

func TestMACD_MinimumLength(t *testing.T) {
	// slow + signal - 1 = 34 prices are the minimum for one signal value.
	if _, err := DefaultMACD(rising(34, 100, 1)); err != nil {
		t.Fatalf("MACD with 34 prices: %v", err)
	}
	_, err := DefaultMACD(rising(33, 100, 1))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("MACD with 33 prices: err = %v, want ErrInsufficientData", err)
	}
}

func TestMACD_UptrendIsBullish(t *testing.T) {
	prices := make([]float64, 80)
	for i := range prices {
		prices[i] = 100 + 0.01*float64(i)*float64(i)
	}
	r, err := DefaultMACD(prices)
	if err != nil {
		t.Fatalf("MACD: %v", err)
	}
	if r.MACD <= 0 {
		t.Errorf("MACD = %v on an accelerating uptrend, want > 0", r.MACD)
	}
	if r.Trend != model.TrendBullish {
		t.Errorf("trend = %s, want Bullish", r.Trend)
	}
}

func TestMACD_ConstantSeries(t *testing.T) {
	r, err := DefaultMACD(constant(50, 101.5))
	if err != nil {
		t.Fatalf("MACD: %v", err)
	}
	if r.MACD != 0 || r.Signal != 0 || r.Histogram != 0 {
		t.Errorf("macd/signal/hist = %v/%v/%v, want zeros", r.MACD, r.Signal, r.Histogram)
	}
	// Zero histogram is not strictly positive.
	if r.Trend != model.TrendBearish {
		t.Errorf("trend = %s, want Bearish", r.Trend)
	}
	if r.Crossover != model.CrossoverNone {
		t.Errorf("crossover = %s, want None", r.Crossover)
	}
}

func TestMACD_BullishCrossover(t *testing.T) {
	prices := crossoverSeries()
	for n := 34; n <= len(prices); n++ {
		r, err := DefaultMACD(prices[:n])
		if err != nil {
			t.Fatalf("MACD(%d): %v", n, err)
		}
		want := model.CrossoverNone
		if n == 63 {
			want = model.CrossoverBullish
		}
		if r.Crossover != want {
			t.Errorf("prefix %d: crossover = %s, want %s", n, r.Crossover, want)
		}
	}
}

func TestMACD_InvalidPeriods(t *testing.T) {
	prices := rising(100, 100, 1)
	cases := []struct {
		name   string
		fast   int
		slow   int
		signal int
	}{
		{"fast equals slow", 12, 12, 9},
		{"fast above slow", 26, 12, 9},
		{"zero signal", 12, 26, 0},
		{"negative fast", -1, 26, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MACD(prices, tc.fast, tc.slow, tc.signal)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

// ────────────────────────────────────────────────────────────
// Crossover detection
// ────────────────────────────────────────────────────────────

func TestDetectCrossover(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want model.Crossover
	}{
		{"bullish", []float64{1, 3}, []float64{2, 2}, model.CrossoverBullish},
		{"bearish", []float64{3, 1}, []float64{2, 2}, model.CrossoverBearish},
		{"touch then above", []float64{2, 3}, []float64{2, 2}, model.CrossoverNone},
		{"below then touch", []float64{1, 2}, []float64{2, 2}, model.CrossoverNone},
		{"stays above", []float64{3, 4}, []float64{2, 2}, model.CrossoverNone},
		{"too short", []float64{1}, []float64{2}, model.CrossoverNone},
		{"tail aligned", []float64{9, 9, 1, 3}, []float64{2, 2}, model.CrossoverBullish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCrossover(tt.a, tt.b); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// ────────────────────────────────────────────────────────────
// Error taxonomy
// ────────────────────────────────────────────────────────────

func TestErrors_InsufficientData(t *testing.T) {
	short := []float64{1, 2, 3}
	checks := map[string]error{}
	_, checks["SMA"] = SMA(short, 5)
	_, checks["EMA"] = EMA(short, 5)
	_, checks["RSI"] = RSI(short, 3)
	_, checks["Bollinger"] = BollingerBands(short, 5, 2)
	_, checks["MACD"] = DefaultMACD(short)
	_, checks["empty"] = EMA(nil, 1)
	for name, err := range checks {
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("%s: err = %v, want ErrInsufficientData", name, err)
		}
	}
}

func TestErrors_InvalidInput(t *testing.T) {
	prices := rising(40, 100, 1)
	nan := append(rising(39, 100, 1), math.NaN())
	inf := append(rising(39, 100, 1), math.Inf(1))

	checks := map[string]error{}
	_, checks["SMA period 0"] = SMA(prices, 0)
	_, checks["EMA period -3"] = EMA(prices, -3)
	_, checks["RSI period 0"] = RSI(prices, 0)
	_, checks["EMA NaN"] = EMA(nan, 5)
	_, checks["RSI Inf"] = RSI(inf, 14)
	_, checks["Bollinger NaN"] = BollingerBands(nan, 20, 2)
	_, checks["Bollinger negative k"] = BollingerBands(prices, 20, -1)
	_, checks["Bollinger NaN k"] = BollingerBands(prices, 20, math.NaN())
	for name, err := range checks {
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestErrors_Degenerate(t *testing.T) {
	// Finite inputs whose sum overflows float64.
	huge := constant(5, math.MaxFloat64)
	_, err := SMA(huge, 5)
	if !errors.Is(err, ErrDegenerateComputation) {
		t.Errorf("SMA overflow: err = %v, want ErrDegenerateComputation", err)
	}
	_, err = BollingerBands(huge, 5, 2)
	if !errors.Is(err, ErrDegenerateComputation) {
		t.Errorf("Bollinger overflow: err = %v, want ErrDegenerateComputation", err)
	}
}

// ────────────────────────────────────────────────────────────
// Spec parsing and dispatch
// ────────────────────────────────────────────────────────────

func TestParseSpecs(t *testing.T) {
	got := ParseSpecs(" sma:20, ema:9 ,bogus,RSI:x,RSI:0,rsi:14")
	want := []Spec{{"SMA", 20}, {"EMA", 9}, {"RSI", 14}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if n := len(ParseSpecs("")); n != len(DefaultSpecs()) {
		t.Errorf("empty input yielded %d specs, want defaults", n)
	}
	if name := (Spec{Type: "EMA", Period: 9}).Name(); name != "EMA_9" {
		t.Errorf("Name() = %q", name)
	}
}

func TestCompute_Dispatch(t *testing.T) {
	prices := []float64{100, 102, 104, 103, 105}
	s, err := Compute(Spec{Type: "EMA", Period: 3}, prices)
	if err != nil {
		t.Fatalf("Compute EMA: %v", err)
	}
	assertClose(t, "EMA via Compute", s.Current, 103.75, 1e-9)

	s, err = Compute(Spec{Type: "RSI", Period: 2}, []float64{10, 11, 10, 12})
	if err != nil {
		t.Fatalf("Compute RSI: %v", err)
	}
	assertClose(t, "RSI via Compute", s.Current, 100-100.0/6.0, 1e-9)

	if _, err := Compute(Spec{Type: "WMA", Period: 3}, prices); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown type: err = %v, want ErrInvalidInput", err)
	}
}
