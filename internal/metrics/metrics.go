// Package metrics computes aggregate performance statistics from a closed
// trade ledger and an equity curve. Everything here is derived on demand
// from its inputs; nothing is mutated. Numeric edge cases resolve to defined
// sentinel values (0 or +Inf), never to errors.
package metrics

import (
	"math"

	"github.com/kukhmax/ai-trade/internal/candle"
)

// Report holds the aggregate performance statistics of one backtest run.
type Report struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	TotalPnL    float64 `json:"total_pnl"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	// ProfitFactor is +Inf when there are profits and no losses.
	ProfitFactor float64 `json:"profit_factor"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	Expectancy   float64 `json:"expectancy"`
	// MaxDrawdown is the worst peak-to-trough equity decline as a negative
	// percentage.
	MaxDrawdown float64 `json:"max_drawdown"`
	// Sharpe is the annualized ratio of mean per-bar return to its standard
	// deviation, 0 when the variance is 0.
	Sharpe float64 `json:"sharpe"`
}

// Compute derives a Report from per-trade PnLs and the per-bar equity curve.
// The timeframe determines the annualization factor of the Sharpe ratio.
func Compute(tradePnLs []float64, equity []float64, timeframe string) Report {
	var r Report
	r.TotalTrades = len(tradePnLs)

	var winSum, lossSum float64
	for _, pnl := range tradePnLs {
		r.TotalPnL += pnl
		if pnl > 0 {
			r.Wins++
			winSum += pnl
		} else {
			r.Losses++
			lossSum += pnl
		}
	}
	r.GrossProfit = winSum
	r.GrossLoss = lossSum

	if r.TotalTrades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.TotalTrades)
	}
	if r.Wins > 0 {
		r.AvgWin = winSum / float64(r.Wins)
	}
	if r.Losses > 0 {
		r.AvgLoss = lossSum / float64(r.Losses)
	}
	if r.TotalTrades > 0 {
		r.Expectancy = r.WinRate*r.AvgWin + (1-r.WinRate)*r.AvgLoss
	}

	switch {
	case lossSum != 0:
		r.ProfitFactor = winSum / math.Abs(lossSum)
	case winSum > 0:
		r.ProfitFactor = math.Inf(1)
	}

	r.MaxDrawdown = maxDrawdown(equity)
	r.Sharpe = sharpe(equity, candle.BarsPerYear(timeframe))

	return r
}

// maxDrawdown returns the maximum peak-to-trough decline of the equity
// curve as a negative percentage, 0 for a flat or rising curve.
func maxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	peak := equity[0]
	worst := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (e - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe computes the annualized Sharpe ratio of per-bar equity returns.
func sharpe(equity []float64, barsPerYear float64) float64 {
	if len(equity) < 3 || barsPerYear <= 0 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(barsPerYear)
}
