package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kukhmax/ai-trade/internal/candle"
)

const (
	binanceBaseURL = "https://api.binance.com"
	binanceName    = "binance"

	binanceMaxRetries = 3
	binanceBaseDelay  = 2 * time.Second
	binanceMaxDelay   = 30 * time.Second

	backoffFactor = 2.0
	jitterRange   = 0.1 // ±10%
)

// Binance fetches klines from the public REST API. Requests go through a
// shared rate limiter so chunked historical downloads stay under the
// exchange's request weight limits.
type Binance struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewBinance(baseURL string) *Binance {
	if baseURL == "" {
		baseURL = binanceBaseURL
	}
	return &Binance{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

func (b *Binance) Name() string { return binanceName }

func (b *Binance) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	if !candle.IsValidTimeframe(timeframe) {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}

	apiSymbol := strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
	startMs := start.UnixNano() / int64(time.Millisecond)
	endMs := end.UnixNano() / int64(time.Millisecond)

	apiURL := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=1000",
		b.baseURL, apiSymbol, timeframe, startMs, endMs)

	var lastErr error
	for attempt := 0; attempt < binanceMaxRetries; attempt++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		raw, retryable, err := b.fetchOnce(ctx, apiURL)
		if err == nil {
			candles := b.parseKlines(raw, symbol, timeframe)
			return candles, nil
		}
		lastErr = err
		log.Printf("FetchCandles | %s attempt %d/%d failed: %v", binanceName, attempt+1, binanceMaxRetries, err)

		if !retryable || attempt == binanceMaxRetries-1 {
			break
		}
		delay := retryDelay(attempt, binanceBaseDelay, binanceMaxDelay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to download candles after %d attempts: %w", binanceMaxRetries, lastErr)
}

// fetchOnce performs one kline request; retryable reports whether the caller
// should back off and try again.
func (b *Binance) fetchOnce(ctx context.Context, apiURL string) ([][]any, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, isRetryableHTTPStatus(resp.StatusCode),
			fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false, fmt.Errorf("decoding klines: %w", err)
	}
	return raw, false, nil
}

// parseKlines converts the raw kline arrays, skipping malformed entries.
func (b *Binance) parseKlines(raw [][]any, symbol, timeframe string) []candle.Candle {
	candles := make([]candle.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		ts, ok := asInt64(k[0])
		if !ok {
			continue
		}
		c := candle.Candle{
			Timestamp: time.Unix(ts/1000, 0).UTC(),
			Open:      asFloat(k[1]),
			High:      asFloat(k[2]),
			Low:       asFloat(k[3]),
			Close:     asFloat(k[4]),
			Volume:    asFloat(k[5]),
			Symbol:    symbol,
			Timeframe: timeframe,
			Source:    binanceName,
		}
		if err := c.Validate(); err != nil {
			continue
		}
		candles = append(candles, c)
	}
	return candles
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

// retryDelay is exponential backoff with jitter to avoid thundering herd.
func retryDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := float64(baseDelay) * math.Pow(backoffFactor, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	delay += delay * jitterRange * (2*rand.Float64() - 1)
	if delay < 0 {
		delay = float64(baseDelay)
	}
	return time.Duration(delay)
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
