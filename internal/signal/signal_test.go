package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukhmax/ai-trade/internal/analysis"
	"github.com/kukhmax/ai-trade/internal/candle"
)

func testBar(close float64) candle.Candle {
	return candle.Candle{
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    100,
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
	}
}

func TestSynthesizeBuySignal(t *testing.T) {
	s := NewSynthesizer(nil, 0, 0, 0)
	opinions := []analysis.Opinion{
		{Method: analysis.MethodTechnical, Direction: analysis.Bullish, Strength: 0.8, Rationale: "technical bullish"},
	}

	sig := s.Synthesize(opinions, testBar(100))

	assert.Equal(t, Buy, sig.Action)
	assert.InDelta(t, 0.8, sig.Confidence, 1e-9)
	assert.InDelta(t, 100.0, sig.Entry, 1e-9)
	assert.InDelta(t, 98.0, sig.StopLoss, 1e-9)
	assert.InDelta(t, 106.0, sig.TakeProfit, 1e-9)
	assert.Equal(t, []string{analysis.MethodTechnical}, sig.Methods)
	assert.Contains(t, sig.Rationale, "technical bullish")
}

func TestSynthesizeSellSignal(t *testing.T) {
	s := NewSynthesizer(nil, 0, 0, 0)
	opinions := []analysis.Opinion{
		{Method: analysis.MethodWyckoff, Direction: analysis.Bearish, Strength: 0.9},
	}

	sig := s.Synthesize(opinions, testBar(100))

	assert.Equal(t, Sell, sig.Action)
	assert.InDelta(t, 102.0, sig.StopLoss, 1e-9)
	assert.InDelta(t, 94.0, sig.TakeProfit, 1e-9)
	assert.True(t, sig.TakeProfit < sig.Entry && sig.Entry < sig.StopLoss)
}

func TestSynthesizeTieYieldsHold(t *testing.T) {
	s := NewSynthesizer(nil, 0, 0, 0)
	opinions := []analysis.Opinion{
		{Method: analysis.MethodTechnical, Direction: analysis.Bullish, Strength: 0.5},
		{Method: analysis.MethodWyckoff, Direction: analysis.Bearish, Strength: 0.5},
	}

	sig := s.Synthesize(opinions, testBar(100))

	assert.Equal(t, Hold, sig.Action)
	assert.InDelta(t, 0.0, sig.Confidence, 1e-9)
	assert.Zero(t, sig.Entry)
	assert.Zero(t, sig.StopLoss)
}

func TestSynthesizeBelowThresholdHolds(t *testing.T) {
	s := NewSynthesizer(nil, 0.5, 0, 0)
	opinions := []analysis.Opinion{
		{Method: analysis.MethodTechnical, Direction: analysis.Bullish, Strength: 0.4},
	}

	sig := s.Synthesize(opinions, testBar(100))
	assert.Equal(t, Hold, sig.Action)
	// confidence still reflects the (weak) agreement
	assert.InDelta(t, 0.4, sig.Confidence, 1e-9)
}

func TestSynthesizeNeutralOpinionsExcluded(t *testing.T) {
	s := NewSynthesizer(nil, 0, 0, 0)
	opinions := []analysis.Opinion{
		analysis.NeutralOpinion(analysis.MethodTechnical, "nothing"),
		analysis.NeutralOpinion(analysis.MethodWyckoff, "nothing"),
	}

	sig := s.Synthesize(opinions, testBar(100))
	assert.Equal(t, Hold, sig.Action)
	assert.Equal(t, 0.0, sig.Confidence)
	assert.Empty(t, sig.Methods)
}

func TestSynthesizeWeighting(t *testing.T) {
	weights := map[string]float64{
		analysis.MethodTechnical: 1.0,
		analysis.MethodWyckoff:   0.5,
	}
	s := NewSynthesizer(weights, 0.3, 0, 0)
	opinions := []analysis.Opinion{
		{Method: analysis.MethodTechnical, Direction: analysis.Bearish, Strength: 0.9},
		{Method: analysis.MethodWyckoff, Direction: analysis.Bullish, Strength: 1.0},
	}

	// net = -0.9*1.0 + 1.0*0.5 = -0.4
	sig := s.Synthesize(opinions, testBar(100))

	assert.Equal(t, Sell, sig.Action)
	assert.InDelta(t, 0.4/1.5, sig.Confidence, 1e-9)
	// ordered by weighted contribution: technical (0.9) before wyckoff (0.5)
	require.Len(t, sig.Methods, 2)
	assert.Equal(t, analysis.MethodTechnical, sig.Methods[0])
	assert.Equal(t, analysis.MethodWyckoff, sig.Methods[1])
}

func TestSynthesizeUnknownMethodGetsUnitWeight(t *testing.T) {
	s := NewSynthesizer(map[string]float64{analysis.MethodTechnical: 2.0}, 0, 0, 0)
	opinions := []analysis.Opinion{
		{Method: "custom", Direction: analysis.Bullish, Strength: 0.6},
	}

	sig := s.Synthesize(opinions, testBar(100))
	assert.Equal(t, Buy, sig.Action)
	assert.InDelta(t, 0.6, sig.Confidence, 1e-9)
}

func TestLevelsFromStructural(t *testing.T) {
	s := NewSynthesizer(nil, 0, 0, 0)

	t.Run("Buy uses nearest support and resistance", func(t *testing.T) {
		opinions := []analysis.Opinion{
			{
				Method: analysis.MethodWyckoff, Direction: analysis.Bullish, Strength: 0.9,
				Levels: []analysis.Level{
					{Kind: analysis.LevelSupport, Price: 95},
					{Kind: analysis.LevelSupport, Price: 98}, // nearest below entry
					{Kind: analysis.LevelResistance, Price: 110},
					{Kind: analysis.LevelResistance, Price: 105}, // nearest above entry
				},
			},
		}
		sig := s.Synthesize(opinions, testBar(100))

		require.Equal(t, Buy, sig.Action)
		assert.InDelta(t, 98*0.995, sig.StopLoss, 1e-9)
		assert.InDelta(t, 105.0, sig.TakeProfit, 1e-9)
		assert.True(t, sig.StopLoss < sig.Entry && sig.Entry < sig.TakeProfit)
	})

	t.Run("Sell mirrors the levels", func(t *testing.T) {
		opinions := []analysis.Opinion{
			{
				Method: analysis.MethodWyckoff, Direction: analysis.Bearish, Strength: 0.9,
				Levels: []analysis.Level{
					{Kind: analysis.LevelSupport, Price: 95},
					{Kind: analysis.LevelResistance, Price: 103},
				},
			},
		}
		sig := s.Synthesize(opinions, testBar(100))

		require.Equal(t, Sell, sig.Action)
		assert.InDelta(t, 103*1.005, sig.StopLoss, 1e-9)
		assert.InDelta(t, 95.0, sig.TakeProfit, 1e-9)
		assert.True(t, sig.TakeProfit < sig.Entry && sig.Entry < sig.StopLoss)
	})

	t.Run("Levels on the wrong side are ignored", func(t *testing.T) {
		opinions := []analysis.Opinion{
			{
				Method: analysis.MethodTechnical, Direction: analysis.Bullish, Strength: 0.9,
				Levels: []analysis.Level{
					{Kind: analysis.LevelSupport, Price: 120},    // above entry, unusable
					{Kind: analysis.LevelResistance, Price: 90}, // below entry, unusable
				},
			},
		}
		sig := s.Synthesize(opinions, testBar(100))

		require.Equal(t, Buy, sig.Action)
		assert.InDelta(t, 98.0, sig.StopLoss, 1e-9)
		assert.InDelta(t, 106.0, sig.TakeProfit, 1e-9)
	})
}

func TestConfidenceClamped(t *testing.T) {
	s := NewSynthesizer(nil, 0, 0, 0)
	opinions := []analysis.Opinion{
		{Method: analysis.MethodTechnical, Direction: analysis.Bullish, Strength: 1.0},
		{Method: analysis.MethodWyckoff, Direction: analysis.Bullish, Strength: 1.0},
	}

	sig := s.Synthesize(opinions, testBar(100))
	assert.Equal(t, Buy, sig.Action)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
}
