package analysis

import (
	"fmt"

	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/indicator"
)

// Wave structure labels.
const (
	WaveImpulse    = "impulse"
	WaveCorrective = "corrective"
)

const (
	fractalWindow = 5
	maxExtremes   = 10
	recentSwings  = 3
)

// Fibonacci ratio sets used to project wave targets.
var (
	extensionRatios   = []float64{0.382, 0.618, 1.0, 1.618}
	retracementRatios = []float64{0.382, 0.5, 0.618, 0.786}
)

// ElliottAnalyzer segments recent swing highs/lows into an impulsive or
// corrective labeling and projects retracement/extension targets from fixed
// Fibonacci ratio sets.
type ElliottAnalyzer struct{}

func NewElliottAnalyzer() *ElliottAnalyzer {
	return &ElliottAnalyzer{}
}

func (a *ElliottAnalyzer) Name() string { return MethodElliott }

func (a *ElliottAnalyzer) Analyze(window []candle.Candle, snap *indicator.Snapshot) Opinion {
	peaks, valleys := a.findExtremes(window)
	if len(peaks) < 2 || len(valleys) < 2 {
		return NeutralOpinion(MethodElliott, "not enough swing structure")
	}

	price := window[len(window)-1].Close
	recentHigh := maxOfLast(peaks, recentSwings)
	recentLow := minOfLast(valleys, recentSwings)
	swing := recentHigh - recentLow
	if swing <= 0 {
		return NeutralOpinion(MethodElliott, "degenerate swing range")
	}

	switch {
	case price > recentHigh*0.95:
		// Price pressing the swing high: impulsive advance, likely wave 3.
		levels := []Level{{Kind: LevelSupport, Price: recentLow * 0.95}} // invalidation
		for _, r := range extensionRatios {
			levels = append(levels, Level{Kind: LevelResistance, Price: recentHigh + swing*r})
		}
		return Opinion{
			Method:    MethodElliott,
			Direction: Bullish,
			Strength:  0.6,
			Levels:    levels,
			Rationale: fmt.Sprintf("elliott impulse wave 3 (swing %.2f-%.2f)", recentLow, recentHigh),
		}
	case price < recentLow*1.05:
		// Price pressing the swing low: corrective decline, wave A.
		levels := []Level{{Kind: LevelResistance, Price: recentHigh * 1.05}} // invalidation
		for _, r := range retracementRatios {
			levels = append(levels, Level{Kind: LevelSupport, Price: recentHigh - swing*r})
		}
		return Opinion{
			Method:    MethodElliott,
			Direction: Bearish,
			Strength:  0.5,
			Levels:    levels,
			Rationale: fmt.Sprintf("elliott corrective wave A (swing %.2f-%.2f)", recentLow, recentHigh),
		}
	}

	return NeutralOpinion(MethodElliott, "price inside swing range, wave count ambiguous")
}

// findExtremes locates local swing highs and lows using a symmetric fractal
// window: a peak must exceed the fractalWindow bars on each side.
func (a *ElliottAnalyzer) findExtremes(window []candle.Candle) (peaks, valleys []float64) {
	if len(window) < fractalWindow*2+1 {
		return nil, nil
	}

	for i := fractalWindow; i < len(window)-fractalWindow; i++ {
		isPeak, isValley := true, true
		for j := 1; j <= fractalWindow; j++ {
			if window[i].High <= window[i-j].High || window[i].High <= window[i+j].High {
				isPeak = false
			}
			if window[i].Low >= window[i-j].Low || window[i].Low >= window[i+j].Low {
				isValley = false
			}
			if !isPeak && !isValley {
				break
			}
		}
		if isPeak {
			peaks = append(peaks, window[i].High)
		}
		if isValley {
			valleys = append(valleys, window[i].Low)
		}
	}

	if len(peaks) > maxExtremes {
		peaks = peaks[len(peaks)-maxExtremes:]
	}
	if len(valleys) > maxExtremes {
		valleys = valleys[len(valleys)-maxExtremes:]
	}
	return peaks, valleys
}

func maxOfLast(values []float64, count int) float64 {
	start := len(values) - count
	if start < 0 {
		start = 0
	}
	m := values[start]
	for _, v := range values[start:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOfLast(values []float64, count int) float64 {
	start := len(values) - count
	if start < 0 {
		start = 0
	}
	m := values[start]
	for _, v := range values[start:] {
		if v < m {
			m = v
		}
	}
	return m
}
