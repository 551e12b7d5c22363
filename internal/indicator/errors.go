package indicator

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure returned by this package wraps exactly one of
// these; callers should test with errors.Is.
var (
	// ErrInsufficientData: the series is shorter than the indicator window.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidInput: non-finite prices or out-of-range parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateComputation: a result would be NaN or ±Inf.
	ErrDegenerateComputation = errors.New("degenerate computation")
)

func insufficient(name string, need, got int) error {
	return fmt.Errorf("%w: %s needs %d prices, got %d", ErrInsufficientData, name, need, got)
}

func validatePeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%w: %s period must be positive, got %d", ErrInvalidInput, name, period)
	}
	return nil
}

func validatePrices(name string, prices []float64) error {
	for i, p := range prices {
		if !isFinite(p) {
			return fmt.Errorf("%w: %s price[%d] is not finite (%v)", ErrInvalidInput, name, i, p)
		}
	}
	return nil
}

func checkFinite(name string, values ...[]float64) error {
	for _, vs := range values {
		for i, v := range vs {
			if !isFinite(v) {
				return fmt.Errorf("%w: %s value[%d] is %v", ErrDegenerateComputation, name, i, v)
			}
		}
	}
	return nil
}
