// Package store persists candle history so repeated runs over the same range
// do not refetch it. Three backends share one interface: Postgres for shared
// deployments, SQLite for a local single file and an in-memory map for tests
// and throwaway runs.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/kukhmax/ai-trade/internal/candle"
)

// Store is the persistent candle storage interface.
type Store interface {
	SaveCandles(ctx context.Context, candles []candle.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error)
	GetLatestCandle(ctx context.Context, symbol, timeframe string) (*candle.Candle, error)
	Close() error
}

// Open selects a backend from the DSN: postgres:// or host= strings open
// Postgres, an empty DSN opens the in-memory store, anything else is treated
// as a SQLite file path.
func Open(dsn string, maxOpen, maxIdle int) (Store, error) {
	switch {
	case dsn == "":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.Contains(dsn, "host="):
		return NewPostgres(dsn, maxOpen, maxIdle)
	default:
		return NewSQLite(dsn)
	}
}
