package indicator

import "math"

// BollingerResult holds the Bollinger Bands series.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
	Width  []float64
}

// CalculateBollinger calculates Bollinger Bands: an SMA middle band with
// upper/lower bands stdDevs sample standard deviations away. Width is the
// band spread relative to the middle band.
func CalculateBollinger(prices []float64, period int, stdDevs float64) (*BollingerResult, error) {
	if err := checkWindow(len(prices), period); err != nil {
		return nil, err
	}

	middle, err := CalculateSMA(prices, period)
	if err != nil {
		return nil, err
	}

	n := len(prices)
	res := &BollingerResult{
		Upper:  make([]float64, n),
		Middle: middle,
		Lower:  make([]float64, n),
		Width:  make([]float64, n),
	}

	for i := 0; i < period-1; i++ {
		res.Upper[i] = math.NaN()
		res.Lower[i] = math.NaN()
		res.Width[i] = math.NaN()
	}

	for i := period - 1; i < n; i++ {
		mean := middle[i]
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := prices[j] - mean
			variance += d * d
		}
		// Sample standard deviation, matching pandas rolling().std()
		std := math.Sqrt(variance / float64(period-1))

		res.Upper[i] = mean + stdDevs*std
		res.Lower[i] = mean - stdDevs*std
		if mean != 0 {
			res.Width[i] = (res.Upper[i] - res.Lower[i]) / mean
		}
	}

	return res, nil
}
