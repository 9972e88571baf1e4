package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukhmax/ai-trade/internal/backtest"
	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/signal"
)

func testResult() *backtest.Result {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &backtest.Result{
		RunID:     "run-1",
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Trades: []backtest.Trade{
			{
				ID: "t1", Symbol: "BTCUSDT", Direction: signal.Buy,
				Entry: 100, Exit: 104, Size: 1,
				EntryTime: base, ExitTime: base.Add(3 * time.Hour),
				Reason: backtest.ReasonEndOfData, PnL: 4,
			},
		},
		Equity: []backtest.EquityPoint{
			{Time: base, Equity: 10000},
			{Time: base.Add(time.Hour), Equity: 10001},
			{Time: base.Add(2 * time.Hour), Equity: 10003},
			{Time: base.Add(3 * time.Hour), Equity: 10004},
		},
		Signals: []signal.Signal{
			{Action: signal.Buy, Confidence: 0.8, Entry: 100, Time: base},
			{Action: signal.Hold, Time: base.Add(time.Hour)},
			{Action: signal.Hold, Time: base.Add(2 * time.Hour)},
			{Action: signal.Hold, Time: base.Add(3 * time.Hour)},
		},
	}
}

func testCandles(n int) []candle.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]candle.Candle, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c,
			Volume: 100, Symbol: "BTCUSDT", Timeframe: "1h",
		}
	}
	return out
}

func TestBuildChartData(t *testing.T) {
	res := testResult()
	cd := BuildChartData(res, testCandles(4))

	assert.Equal(t, "BTCUSDT", cd.Symbol)
	assert.Equal(t, "1h", cd.Timeframe)
	assert.Len(t, cd.Candles, 4)
	assert.Len(t, cd.Equity, 4)

	// hold signals carry no chart information
	require.Len(t, cd.Signals, 1)
	assert.Equal(t, signal.Buy, cd.Signals[0].Action)

	// one entry and one exit marker per trade
	require.Len(t, cd.Markers, 2)
	assert.Equal(t, "entry", cd.Markers[0].Kind)
	assert.Empty(t, cd.Markers[0].Label)
	assert.Equal(t, "exit", cd.Markers[1].Kind)
	assert.Equal(t, backtest.ReasonEndOfData, cd.Markers[1].Label)
	assert.InDelta(t, 104.0, cd.Markers[1].Price, 1e-9)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	res := testResult()

	require.NoError(t, Save(res, testCandles(4), dir))

	t.Run("Chart data parses back", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "chart_data.json"))
		require.NoError(t, err)
		var cd ChartData
		require.NoError(t, json.Unmarshal(data, &cd))
		assert.Len(t, cd.Candles, 4)
		assert.Len(t, cd.Markers, 2)
	})

	t.Run("Metrics file exists", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})

	t.Run("Trades CSV has header plus rows", func(t *testing.T) {
		f, err := os.Open(filepath.Join(dir, "backtest_trades.csv"))
		require.NoError(t, err)
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Trade#", rows[0][0])
		assert.Equal(t, "buy", rows[1][1])
	})

	t.Run("Equity CSV has one row per bar", func(t *testing.T) {
		f, err := os.Open(filepath.Join(dir, "backtest_equity.csv"))
		require.NoError(t, err)
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		assert.Len(t, rows, 5)
	})
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, testResult())

	out := buf.String()
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "end-of-data")

	t.Run("No trades", func(t *testing.T) {
		var buf bytes.Buffer
		res := testResult()
		res.Trades = nil
		PrintSummary(&buf, res)
		assert.Contains(t, buf.String(), "no trades")
	})
}
