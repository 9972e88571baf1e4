package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukhmax/ai-trade/internal/indicator"
)

func TestWyckoffAnalyzerShortWindow(t *testing.T) {
	a := NewWyckoffAnalyzer()
	window := seriesCandles([]float64{100, 101, 102})
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	assert.Equal(t, MethodWyckoff, op.Method)
	assert.Equal(t, Neutral, op.Direction)
	assert.Equal(t, 0.0, op.Strength)
}

func TestWyckoffAnalyzerMarkup(t *testing.T) {
	// steadily rising closes with a volume surge on the last bar
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	window := seriesCandles(closes)
	window[len(window)-1].Volume = 400

	a := NewWyckoffAnalyzer()
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	require.Equal(t, Bullish, op.Direction)
	assert.Contains(t, op.Rationale, "markup")
	assert.InDelta(t, 0.8, op.Strength, 1e-9)
	assert.NotEmpty(t, op.Levels)
}

func TestWyckoffAnalyzerMarkdown(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 130 - float64(i)
	}
	window := seriesCandles(closes)
	window[len(window)-1].Volume = 400

	a := NewWyckoffAnalyzer()
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	require.Equal(t, Bearish, op.Direction)
	assert.Contains(t, op.Rationale, "markdown")
}

func TestWyckoffAnalyzerAccumulation(t *testing.T) {
	// quiet sideways range on shrinking volume, recent candles leaning green
	closes := make([]float64, 30)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}
	window := seriesCandles(closes)
	window[len(window)-1].Volume = 40 // well below the rolling average

	a := NewWyckoffAnalyzer()
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	require.Equal(t, Bullish, op.Direction)
	assert.Contains(t, op.Rationale, "accumulation")
	assert.GreaterOrEqual(t, op.Strength, 0.6)
}

func TestWyckoffKeyLevels(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	a := NewWyckoffAnalyzer()
	levels := a.keyLevels(seriesCandles(closes))

	var supports, resistances int
	for _, l := range levels {
		switch l.Kind {
		case LevelSupport:
			supports++
		case LevelResistance:
			resistances++
		}
	}
	assert.LessOrEqual(t, supports, 3)
	assert.LessOrEqual(t, resistances, 3)
	assert.Greater(t, supports, 0)
	assert.Greater(t, resistances, 0)
}

func TestWyckoffTrendStrength(t *testing.T) {
	a := NewWyckoffAnalyzer()

	rising := make([]float64, 25)
	for i := range rising {
		rising[i] = float64(i)*2 + 50
	}
	assert.InDelta(t, 1.0, a.trendStrength(seriesCandles(rising)), 1e-9)

	falling := make([]float64, 25)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	assert.InDelta(t, -1.0, a.trendStrength(seriesCandles(falling)), 1e-9)

	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 100
	}
	assert.InDelta(t, 0.0, a.trendStrength(seriesCandles(flat)), 1e-9)
}
