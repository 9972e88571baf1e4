package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinesResponse = `[
	[1704067200000, "42000.0", "42500.0", "41800.0", "42300.0", "1500.5", 1704070799999, "0", 0, "0", "0", "0"],
	[1704070800000, "42300.0", "42800.0", "42100.0", "42600.0", "1200.3", 1704074399999, "0", 0, "0", "0", "0"]
]`

func TestBinanceFetchCandles(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(klinesResponse))
	}))
	defer server.Close()

	b := NewBinance(server.URL)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	candles, err := b.FetchCandles(context.Background(), "btc-usdt", "1h", start, end)
	require.NoError(t, err)

	assert.Equal(t, "/api/v3/klines", gotPath)
	assert.Contains(t, gotQuery, "symbol=BTCUSDT")
	assert.Contains(t, gotQuery, "interval=1h")

	require.Len(t, candles, 2)
	first := candles[0]
	assert.Equal(t, start, first.Timestamp)
	assert.InDelta(t, 42000.0, first.Open, 1e-9)
	assert.InDelta(t, 42500.0, first.High, 1e-9)
	assert.InDelta(t, 41800.0, first.Low, 1e-9)
	assert.InDelta(t, 42300.0, first.Close, 1e-9)
	assert.InDelta(t, 1500.5, first.Volume, 1e-9)
	assert.Equal(t, "btc-usdt", first.Symbol)
	assert.Equal(t, "binance", first.Source)
}

func TestBinanceFetchCandlesSkipsMalformed(t *testing.T) {
	// second entry has high below low and must be dropped
	const body = `[
		[1704067200000, "100", "101", "99", "100.5", "10", 0, "0", 0, "0", "0", "0"],
		[1704070800000, "100", "90", "110", "100", "10", 0, "0", 0, "0", "0", "0"]
	]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	b := NewBinance(server.URL)
	candles, err := b.FetchCandles(context.Background(), "BTCUSDT", "1h",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, candles, 1)
}

func TestBinanceFetchCandlesRejectsBadTimeframe(t *testing.T) {
	b := NewBinance("http://localhost:0")
	_, err := b.FetchCandles(context.Background(), "BTCUSDT", "7m", time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
}

func TestBinanceFetchCandlesNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer server.Close()

	b := NewBinance(server.URL)
	_, err := b.FetchCandles(context.Background(), "NOPE", "1h",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC))

	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "400 is not retryable")
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504}
	for _, code := range retryable {
		assert.True(t, isRetryableHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, isRetryableHTTPStatus(code), "status %d", code)
	}
}

func TestRetryDelay(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	for attempt := 0; attempt < 5; attempt++ {
		d := retryDelay(attempt, base, max)
		assert.Greater(t, d, time.Duration(0))
		// backoff is capped at max plus jitter
		assert.LessOrEqual(t, d, max+max/10)
	}

	// later attempts back off further (compare jitter-free bounds)
	assert.Less(t, retryDelay(0, base, max), retryDelay(3, base, max))
}

func TestForSource(t *testing.T) {
	p, err := ForSource("binance", "")
	require.NoError(t, err)
	assert.Equal(t, "binance", p.Name())

	_, err = ForSource("wallex", "")
	assert.Error(t, err, "wallex requires an API key")

	_, err = ForSource("kraken", "")
	assert.Error(t, err)
}
