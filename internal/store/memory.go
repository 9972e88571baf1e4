package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kukhmax/ai-trade/internal/candle"
)

// Memory keeps candles in process memory; used in tests and for one-off runs
// where persistence is not worth a file.
type Memory struct {
	mu      sync.RWMutex
	candles map[string]map[time.Time]candle.Candle // symbol|timeframe -> timestamp -> candle
}

func NewMemory() *Memory {
	return &Memory{candles: make(map[string]map[time.Time]candle.Candle)}
}

func (m *Memory) Close() error { return nil }

func memKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

func (m *Memory) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d (%s %s at %s): %w",
				i, c.Symbol, c.Timeframe, c.Timestamp, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candles {
		key := memKey(c.Symbol, c.Timeframe)
		if m.candles[key] == nil {
			m.candles[key] = make(map[time.Time]candle.Candle)
		}
		m.candles[key][c.Timestamp.UTC()] = c
	}
	return nil
}

func (m *Memory) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []candle.Candle
	for ts, c := range m.candles[memKey(symbol, timeframe)] {
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) GetLatestCandle(ctx context.Context, symbol, timeframe string) (*candle.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *candle.Candle
	for _, c := range m.candles[memKey(symbol, timeframe)] {
		c := c
		if latest == nil || c.Timestamp.After(latest.Timestamp) {
			latest = &c
		}
	}
	return latest, nil
}
