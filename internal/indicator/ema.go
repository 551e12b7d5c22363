package indicator

import "fmt"

// ema is the Exponential Moving Average recurrence.
// O(1) per update; seeded with the simple mean of the first period prices.
type ema struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

func newEMA(period int) *ema {
	return &ema{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ema) update(price float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA = EMA_prev + multiplier * (Price - EMA_prev)
	e.current += e.multiplier * (price - e.current)
}

func (e *ema) ready() bool { return e.count >= e.period }

// EMA computes the exponential moving average of prices.
//
// Requires len(prices) >= period. The output has len(prices)-period+1 values:
// Values[0] is the seed (mean of the first period prices) and every later value
// applies ema = prev + k*(price-prev) with k = 2/(period+1).
func EMA(prices []float64, period int) (Series, error) {
	name := fmt.Sprintf("EMA(%d)", period)
	if err := validatePeriod(name, period); err != nil {
		return Series{}, err
	}
	if len(prices) < period {
		return Series{}, insufficient(name, period, len(prices))
	}
	if err := validatePrices(name, prices); err != nil {
		return Series{}, err
	}

	e := newEMA(period)
	values := make([]float64, 0, len(prices)-period+1)
	for _, p := range prices {
		e.update(p)
		if e.ready() {
			values = append(values, e.current)
		}
	}

	if err := checkFinite(name, values); err != nil {
		return Series{}, err
	}
	return newSeries(values), nil
}
