package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	wallex "github.com/wallexchange/wallex-go"

	"github.com/kukhmax/ai-trade/internal/candle"
)

const wallexName = "wallex"

// Wallex adapts the exchange SDK to the Provider interface.
type Wallex struct {
	client *wallex.Client
}

func NewWallex(apiKey string) (*Wallex, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("wallex API key is required")
	}
	return &Wallex{client: wallex.New(wallex.ClientOptions{APIKey: apiKey})}, nil
}

func (w *Wallex) Name() string { return wallexName }

func (w *Wallex) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	if !candle.IsValidTimeframe(timeframe) {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}

	normalizedSymbol := strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
	// minute timeframes drop the "m" suffix in the Wallex API
	normalizedTimeframe := strings.TrimSuffix(timeframe, "m")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	wallexCandles, err := w.client.Candles(normalizedSymbol, normalizedTimeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching candles: %w", err)
	}

	var candles []candle.Candle
	for _, wc := range wallexCandles {
		open, _ := strconv.ParseFloat(string(wc.Open), 64)
		high, _ := strconv.ParseFloat(string(wc.High), 64)
		low, _ := strconv.ParseFloat(string(wc.Low), 64)
		close, _ := strconv.ParseFloat(string(wc.Close), 64)
		volume, _ := strconv.ParseFloat(string(wc.Volume), 64)

		c := candle.Candle{
			Timestamp: wc.Timestamp.UTC().Truncate(time.Minute),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			Symbol:    symbol,
			Timeframe: timeframe,
			Source:    wallexName,
		}
		if err := c.Validate(); err != nil {
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}
