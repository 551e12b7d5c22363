package indicator

import (
	"fmt"
	"math"
)

// window is a fixed-size rolling window over a preallocated circular buffer.
type window struct {
	period int
	buf    []float64 // preallocated circular buffer
	idx    int       // current write position
	count  int       // total values received
}

func newWindow(period int) *window {
	return &window{
		period: period,
		buf:    make([]float64, period),
	}
}

func (w *window) push(price float64) {
	w.buf[w.idx] = price
	w.idx = (w.idx + 1) % w.period
	w.count++
}

func (w *window) full() bool { return w.count >= w.period }

// stats returns the mean and population standard deviation of the window.
// Two passes over the buffer keep a constant window at exactly zero deviation.
func (w *window) stats() (mean, std float64) {
	sum := 0.0
	for _, v := range w.buf {
		sum += v
	}
	mean = sum / float64(w.period)

	variance := 0.0
	for _, v := range w.buf {
		d := v - mean
		variance += d * d
	}
	variance /= float64(w.period)
	return mean, math.Sqrt(variance)
}

// SMA calculates the simple moving average over a rolling window.
// The output has len(prices)-period+1 values, one per full window.
func SMA(prices []float64, period int) (Series, error) {
	name := fmt.Sprintf("SMA(%d)", period)
	if err := validatePeriod(name, period); err != nil {
		return Series{}, err
	}
	if len(prices) < period {
		return Series{}, insufficient(name, period, len(prices))
	}
	if err := validatePrices(name, prices); err != nil {
		return Series{}, err
	}

	w := newWindow(period)
	values := make([]float64, 0, len(prices)-period+1)
	for _, p := range prices {
		w.push(p)
		if w.full() {
			mean, _ := w.stats()
			values = append(values, mean)
		}
	}

	if err := checkFinite(name, values); err != nil {
		return Series{}, err
	}
	return newSeries(values), nil
}
