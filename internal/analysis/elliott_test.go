package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/indicator"
)

// dojiCandles builds candles whose highs/lows mirror the closes exactly, so
// swing extremes land where the closes put them.
func dojiCandles(closes []float64) []candle.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]candle.Candle, len(closes))
	for i, c := range closes {
		out[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 0.1,
			Low:       c - 0.1,
			Close:     c,
			Volume:    100,
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
		}
	}
	return out
}

// zigzag builds a four-swing series (peak, valley, peak, valley) and then a
// final leg whose slope the caller controls.
func zigzag(finalStep float64) []float64 {
	closes := make([]float64, 60)
	for i := 0; i <= 10; i++ {
		closes[i] = 100 + float64(i) // peak 110 at i=10
	}
	for i := 11; i <= 22; i++ {
		closes[i] = 110 - 1.5*float64(i-10) // valley 92 at i=22
	}
	for i := 23; i <= 34; i++ {
		closes[i] = 92 + (20.0/12.0)*float64(i-22) // peak 112 at i=34
	}
	for i := 35; i <= 46; i++ {
		closes[i] = 112 - (22.0/12.0)*float64(i-34) // valley 90 at i=46
	}
	for i := 47; i < 60; i++ {
		closes[i] = 90 + finalStep*float64(i-46)
	}
	return closes
}

func TestElliottAnalyzerShortWindow(t *testing.T) {
	a := NewElliottAnalyzer()
	window := dojiCandles([]float64{100, 101, 102})
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	assert.Equal(t, MethodElliott, op.Method)
	assert.Equal(t, Neutral, op.Direction)
}

func TestElliottAnalyzerImpulse(t *testing.T) {
	// strong final leg breaks above the recent swing highs
	window := dojiCandles(zigzag(2.2))

	a := NewElliottAnalyzer()
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	require.Equal(t, Bullish, op.Direction)
	assert.InDelta(t, 0.6, op.Strength, 1e-9)
	assert.Contains(t, op.Rationale, "impulse")

	var supports, resistances int
	for _, l := range op.Levels {
		switch l.Kind {
		case LevelSupport:
			supports++
		case LevelResistance:
			resistances++
		}
	}
	assert.Equal(t, 1, supports, "one invalidation level")
	assert.Equal(t, 4, resistances, "one target per extension ratio")
}

func TestElliottAnalyzerCorrective(t *testing.T) {
	// weak final leg keeps price pinned near the swing lows
	window := dojiCandles(zigzag(0.25))

	a := NewElliottAnalyzer()
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	require.Equal(t, Bearish, op.Direction)
	assert.InDelta(t, 0.5, op.Strength, 1e-9)
	assert.Contains(t, op.Rationale, "corrective")
}

func TestElliottAnalyzerInsideRangeIsNeutral(t *testing.T) {
	// final leg parks price mid-range between the swings
	window := dojiCandles(zigzag(0.9))

	a := NewElliottAnalyzer()
	op := a.Analyze(window, indicator.ComputeSnapshot(window))

	assert.Equal(t, Neutral, op.Direction)
}

func TestFindExtremes(t *testing.T) {
	a := NewElliottAnalyzer()

	t.Run("Too short", func(t *testing.T) {
		peaks, valleys := a.findExtremes(dojiCandles([]float64{1, 2, 3}))
		assert.Nil(t, peaks)
		assert.Nil(t, valleys)
	})

	t.Run("Zigzag swings", func(t *testing.T) {
		peaks, valleys := a.findExtremes(dojiCandles(zigzag(2.2)))
		require.Len(t, peaks, 2)
		require.Len(t, valleys, 2)
		assert.InDelta(t, 110.1, peaks[0], 1e-9)
		assert.InDelta(t, 112.1, peaks[1], 1e-9)
		assert.InDelta(t, 91.9, valleys[0], 1e-9)
		assert.InDelta(t, 89.9, valleys[1], 1e-9)
	})
}
