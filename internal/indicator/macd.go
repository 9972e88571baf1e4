package indicator

import (
	"fmt"
	"math"
)

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// CalculateMACD calculates the Moving Average Convergence Divergence.
// The MACD line is EMA(fast) - EMA(slow); the signal line is an EMA of the
// MACD line; the histogram is their difference. Elements before the signal
// line warms up are NaN.
func CalculateMACD(prices []float64, fast, slow, signalPeriod int) (*MACDResult, error) {
	if fast >= slow {
		return nil, fmt.Errorf("macd fast period %d must be smaller than slow period %d", fast, slow)
	}
	if err := checkWindow(len(prices), slow+signalPeriod-1); err != nil {
		return nil, err
	}

	emaFast, err := CalculateEMA(prices, fast)
	if err != nil {
		return nil, err
	}
	emaSlow, err := CalculateEMA(prices, slow)
	if err != nil {
		return nil, err
	}

	n := len(prices)
	res := &MACDResult{
		MACD:      make([]float64, n),
		Signal:    make([]float64, n),
		Histogram: make([]float64, n),
	}

	for i := 0; i < n; i++ {
		if math.IsNaN(emaSlow[i]) {
			res.MACD[i] = math.NaN()
		} else {
			res.MACD[i] = emaFast[i] - emaSlow[i]
		}
	}

	// Signal line: EMA of the MACD line starting at its first valid value.
	start := slow - 1
	signalStart := start + signalPeriod - 1
	for i := 0; i < signalStart && i < n; i++ {
		res.Signal[i] = math.NaN()
		res.Histogram[i] = math.NaN()
	}

	var seed float64
	for i := start; i < start+signalPeriod; i++ {
		seed += res.MACD[i]
	}
	res.Signal[signalStart] = seed / float64(signalPeriod)
	res.Histogram[signalStart] = res.MACD[signalStart] - res.Signal[signalStart]

	alpha := 2.0 / (float64(signalPeriod) + 1.0)
	for i := signalStart + 1; i < n; i++ {
		res.Signal[i] = alpha*res.MACD[i] + (1-alpha)*res.Signal[i-1]
		res.Histogram[i] = res.MACD[i] - res.Signal[i]
	}

	return res, nil
}
