package indicator

import "math"

// CalculateSMA calculates the simple moving average over the given period.
// The first period-1 elements are NaN.
func CalculateSMA(values []float64, period int) ([]float64, error) {
	if err := checkWindow(len(values), period); err != nil {
		return nil, err
	}

	sma := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		sma[i] = math.NaN()
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			sma[i] = sum / float64(period)
		}
	}
	return sma, nil
}

// CalculateEMA calculates the exponential moving average over the given
// period, seeded with the SMA of the first period values.
func CalculateEMA(values []float64, period int) ([]float64, error) {
	if err := checkWindow(len(values), period); err != nil {
		return nil, err
	}

	ema := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		ema[i] = math.NaN()
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema[period-1] = seed / float64(period)

	alpha := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		ema[i] = alpha*values[i] + (1-alpha)*ema[i-1]
	}
	return ema, nil
}

// LastSMA returns the SMA of the final period values.
func LastSMA(values []float64, period int) (float64, error) {
	if err := checkWindow(len(values), period); err != nil {
		return 0, err
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}
