// Package indicator provides technical analysis indicators for financial markets.
//
// All functions are pure: identical input always yields identical output.
// Full-series functions return a slice aligned with the input where the
// warm-up prefix is NaN. A window shorter than the indicator's minimum
// period fails with ErrInsufficientData instead of returning partial values.
package indicator

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when the input window is shorter than the
// indicator's minimum required period.
var ErrInsufficientData = errors.New("insufficient data for indicator window")

func checkWindow(n, period int) error {
	if period <= 0 {
		return fmt.Errorf("period must be a positive integer, got %d", period)
	}
	if n < period {
		return fmt.Errorf("%w: need at least %d values, got %d", ErrInsufficientData, period, n)
	}
	return nil
}
