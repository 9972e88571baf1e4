package indicator

import "math"

// CalculateRSI calculates the Relative Strength Index using Wilder's
// smoothing. The first period-1 elements are NaN.
func CalculateRSI(prices []float64, period int) ([]float64, error) {
	if err := checkWindow(len(prices), period); err != nil {
		return nil, err
	}

	rsi := make([]float64, len(prices))
	for i := 0; i < period-1; i++ {
		rsi[i] = math.NaN()
	}

	var gain, loss float64
	for i := 1; i < period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gain += change
		} else {
			loss += -change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	if avgLoss == 0 {
		rsi[period-1] = 100
	} else {
		rs := avgGain / avgLoss
		rsi[period-1] = 100 - (100 / (1 + rs))
	}

	for i := period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gain = change
			loss = 0
		} else {
			gain = 0
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		if avgLoss == 0 {
			rsi[i] = 100
		} else {
			rs := avgGain / avgLoss
			rsi[i] = 100 - (100 / (1 + rs))
		}
	}
	return rsi, nil
}

// CalculateLastRSI returns only the final RSI value of the series.
func CalculateLastRSI(prices []float64, period int) (float64, error) {
	rsi, err := CalculateRSI(prices, period)
	if err != nil {
		return 0, err
	}
	return rsi[len(rsi)-1], nil
}
