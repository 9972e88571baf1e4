package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/indicator"
)

// Market phases in the accumulation/distribution cycle.
const (
	PhaseAccumulation = "accumulation"
	PhaseMarkup       = "markup"
	PhaseDistribution = "distribution"
	PhaseMarkdown     = "markdown"
)

const (
	wyckoffVolumePeriod = 20
	wyckoffTrendPeriod  = 20
	wyckoffLevelWindow  = 50
	wyckoffLevelCount   = 3

	highVolumeRatio = 1.5
	lowVolumeRatio  = 0.8
	strongTrend     = 0.7
	flatTrend       = 0.3
)

// WyckoffAnalyzer classifies the window into an accumulation/markup/
// distribution/markdown phase from volume-price relationships and flags
// spring/upthrust-like false breakouts of the trading range.
type WyckoffAnalyzer struct{}

func NewWyckoffAnalyzer() *WyckoffAnalyzer {
	return &WyckoffAnalyzer{}
}

func (a *WyckoffAnalyzer) Name() string { return MethodWyckoff }

func (a *WyckoffAnalyzer) Analyze(window []candle.Candle, snap *indicator.Snapshot) Opinion {
	if len(window) < wyckoffVolumePeriod+1 {
		return NeutralOpinion(MethodWyckoff, "window too short for phase analysis")
	}

	volumeRatio := a.volumeRatio(window)
	trend := a.trendStrength(window)
	levels := a.keyLevels(window)

	phase, strength, dir := a.classify(window, volumeRatio, trend)
	if phase == "" {
		return NeutralOpinion(MethodWyckoff, "no identifiable phase")
	}

	rationale := fmt.Sprintf("wyckoff %s phase (volume ratio %.2f, trend %.2f)", phase, volumeRatio, trend)

	// A spring (false breakdown of support that recovers) strengthens the
	// accumulation case; an upthrust mirrors it for distribution.
	if phase == PhaseAccumulation && a.hasSpring(window, levels) {
		strength = math.Min(strength+0.2, 1)
		rationale += ", spring detected"
	} else if phase == PhaseDistribution && a.hasUpthrust(window, levels) {
		strength = math.Min(strength+0.2, 1)
		rationale += ", upthrust detected"
	}

	return Opinion{
		Method:    MethodWyckoff,
		Direction: dir,
		Strength:  strength,
		Levels:    levels,
		Rationale: rationale,
	}
}

func (a *WyckoffAnalyzer) classify(window []candle.Candle, volumeRatio, trend float64) (string, float64, Direction) {
	switch {
	case volumeRatio > highVolumeRatio && trend > strongTrend:
		return PhaseMarkup, math.Min(volumeRatio-1, 0.8), Bullish
	case volumeRatio > highVolumeRatio && trend < -strongTrend:
		return PhaseMarkdown, math.Min(volumeRatio-1, 0.8), Bearish
	case volumeRatio < lowVolumeRatio && math.Abs(trend) < flatTrend:
		// Quiet range: lean on recent candle balance to tell accumulation
		// from distribution.
		green, red := recentCandleBalance(window, 5)
		if green > red {
			return PhaseAccumulation, 0.6, Bullish
		}
		return PhaseDistribution, 0.6, Bearish
	}
	return "", 0, Neutral
}

func (a *WyckoffAnalyzer) volumeRatio(window []candle.Candle) float64 {
	var sum float64
	for _, c := range window[len(window)-wyckoffVolumePeriod:] {
		sum += c.Volume
	}
	avg := sum / wyckoffVolumePeriod
	if avg == 0 {
		return 1
	}
	return window[len(window)-1].Volume / avg
}

// trendStrength is the Pearson correlation of the last closes against their
// bar index: +1 for a perfectly linear rise, -1 for a fall.
func (a *WyckoffAnalyzer) trendStrength(window []candle.Candle) float64 {
	closes := window[len(window)-wyckoffTrendPeriod:]
	n := float64(len(closes))

	var sumX, sumY float64
	for i, c := range closes {
		sumX += float64(i)
		sumY += c.Close
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i, c := range closes {
		dx := float64(i) - meanX
		dy := c.Close - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// keyLevels proposes the strongest recent extremes: the lowest lows as
// support, the highest highs as resistance.
func (a *WyckoffAnalyzer) keyLevels(window []candle.Candle) []Level {
	n := len(window)
	start := n - wyckoffLevelWindow
	if start < 0 {
		start = 0
	}
	recent := window[start:]

	highs := make([]float64, len(recent))
	lows := make([]float64, len(recent))
	for i, c := range recent {
		highs[i] = c.High
		lows[i] = c.Low
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(highs)))
	sort.Float64s(lows)

	supports := dedupeFloats(lows)
	resistances := dedupeFloats(highs)

	var levels []Level
	for _, p := range supports[:minInt(wyckoffLevelCount, len(supports))] {
		levels = append(levels, Level{Kind: LevelSupport, Price: p})
	}
	for _, p := range resistances[:minInt(wyckoffLevelCount, len(resistances))] {
		levels = append(levels, Level{Kind: LevelResistance, Price: p})
	}
	return levels
}

// hasSpring reports whether the last candle pierced below a support level
// but closed back above it.
func (a *WyckoffAnalyzer) hasSpring(window []candle.Candle, levels []Level) bool {
	last := window[len(window)-1]
	for _, l := range levels {
		if l.Kind == LevelSupport && last.Low < l.Price && last.Close > l.Price {
			return true
		}
	}
	return false
}

// hasUpthrust reports whether the last candle pierced above a resistance
// level but closed back below it.
func (a *WyckoffAnalyzer) hasUpthrust(window []candle.Candle, levels []Level) bool {
	last := window[len(window)-1]
	for _, l := range levels {
		if l.Kind == LevelResistance && last.High > l.Price && last.Close < l.Price {
			return true
		}
	}
	return false
}

func recentCandleBalance(window []candle.Candle, count int) (green, red int) {
	start := len(window) - count
	if start < 0 {
		start = 0
	}
	for _, c := range window[start:] {
		if c.IsBullish() {
			green++
		} else if c.IsBearish() {
			red++
		}
	}
	return green, red
}

func dedupeFloats(sorted []float64) []float64 {
	var out []float64
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
