// Package market fetches candle history from exchanges and loads it through
// the candle store so repeated runs hit the database instead of the network.
package market

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/store"
)

// Provider fetches raw candles for a symbol/timeframe in [start, end).
type Provider interface {
	Name() string
	FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error)
}

// chunk size for historical downloads; keeps each request well under
// exchange kline limits.
const maxChunkDays = 14

// Load returns the processed candle series for [from, to). The store is
// consulted first; on a miss the provider downloads the range in chunks,
// the series is normalized (sorted, deduplicated, gaps filled) and saved
// back before returning.
func Load(ctx context.Context, st store.Store, provider Provider, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error) {
	candles, err := st.GetCandles(ctx, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("Load | error loading candles from store: %w", err)
	}
	if len(candles) > 0 {
		return candles, nil
	}

	log.Printf("Load | no stored candles for %s %s, downloading from %s...", symbol, timeframe, provider.Name())

	var downloaded []candle.Candle
	currTime := from
	for currTime.Before(to) {
		next := currTime.Add(maxChunkDays * 24 * time.Hour)
		if next.After(to) {
			next = to
		}

		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		chunk, err := provider.FetchCandles(fetchCtx, symbol, timeframe, currTime, next)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("Load | error fetching candles from %s to %s: %w",
				currTime.Format(time.RFC3339), next.Format(time.RFC3339), err)
		}

		log.Printf("Load | downloaded %d candles for %s from %s to %s",
			len(chunk), symbol, currTime.Format("2006-01-02"), next.Format("2006-01-02"))

		downloaded = append(downloaded, chunk...)
		currTime = next
	}

	if len(downloaded) == 0 {
		return nil, fmt.Errorf("Load | no candles available for %s from %s to %s",
			symbol, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	processed := candle.Process(downloaded, symbol, timeframe, from, to)

	saveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = st.SaveCandles(saveCtx, processed)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("Load | error saving candles to store: %w", err)
	}
	log.Printf("Load | saved %d processed candles", len(processed))

	return processed, nil
}

// ForSource builds the provider for a configured data source name.
func ForSource(source, wallexAPIKey string) (Provider, error) {
	switch source {
	case "binance":
		return NewBinance(""), nil
	case "wallex":
		return NewWallex(wallexAPIKey)
	default:
		return nil, fmt.Errorf("unknown data source: %s", source)
	}
}
