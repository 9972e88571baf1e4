// Package candle
package candle

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Source    string    `json:"source"`
}

// Validate checks if a candle has valid data
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	return nil
}

// IsBullish returns true if the candle closed above its open.
func (c *Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish returns true if the candle closed below its open.
func (c *Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Range returns the total high-low range of the candle.
func (c *Candle) Range() float64 {
	return c.High - c.Low
}

// ValidateSeries checks that the series is well formed for replay:
// every candle valid, timestamps strictly increasing, no duplicates.
func ValidateSeries(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		if !candles[i-1].Timestamp.Before(c.Timestamp) {
			return fmt.Errorf("non-monotonic timestamp at index %d: %s does not follow %s",
				i, c.Timestamp.Format(time.RFC3339), candles[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes extracts the close prices of a series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// ParseTimeframe parses timeframe string (e.g., "5m", "1h") to time.Duration
func ParseTimeframe(timeframe string) (time.Duration, error) {
	switch timeframe {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	case "1w":
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
}

// GetTimeframeDuration returns the duration for a given timeframe, 0 if unknown.
func GetTimeframeDuration(timeframe string) time.Duration {
	d, err := ParseTimeframe(timeframe)
	if err != nil {
		return 0
	}
	return d
}

// IsValidTimeframe checks if a timeframe is supported
func IsValidTimeframe(timeframe string) bool {
	return GetTimeframeDuration(timeframe) > 0
}

// GetSupportedTimeframes returns all supported timeframes
func GetSupportedTimeframes() []string {
	return []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w"}
}

// BarsPerYear returns how many bars of the given timeframe fit in a year.
// Used for annualizing per-bar return statistics.
func BarsPerYear(timeframe string) float64 {
	d := GetTimeframeDuration(timeframe)
	if d == 0 {
		return 0
	}
	const year = 365 * 24 * time.Hour
	return float64(year) / float64(d)
}

// Process sorts, deduplicates, trims to [start, to) and fills gaps with
// synthetic flat candles so the series is contiguous on the timeframe grid.
func Process(candles []Candle, symbol, timeframe string, start, to time.Time) []Candle {
	if len(candles) == 0 {
		return candles
	}

	duration := GetTimeframeDuration(timeframe)

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	// Truncate to the timeframe grid, keep the first occurrence of each timestamp
	candleMap := make(map[time.Time]Candle)
	for _, c := range candles {
		c.Timestamp = c.Timestamp.Truncate(duration)
		if _, exists := candleMap[c.Timestamp]; !exists {
			candleMap[c.Timestamp] = c
		}
	}

	var trimmed []Candle
	for ts, c := range candleMap {
		if (ts.Equal(start) || ts.After(start)) && ts.Before(to) {
			trimmed = append(trimmed, c)
		}
	}

	sort.Slice(trimmed, func(i, j int) bool {
		return trimmed[i].Timestamp.Before(trimmed[j].Timestamp)
	})

	if len(trimmed) == 0 {
		return trimmed
	}

	var complete []Candle
	currentTime := trimmed[0].Timestamp
	lastTime := trimmed[len(trimmed)-1].Timestamp
	basePrice := trimmed[0].Close

	i := 0
	for !currentTime.After(lastTime) && currentTime.Before(to) {
		if i < len(trimmed) && trimmed[i].Timestamp.Equal(currentTime) {
			complete = append(complete, trimmed[i])
			basePrice = trimmed[i].Close
			i++
		} else {
			// Synthetic candle carrying the last known close, zero volume
			complete = append(complete, Candle{
				Timestamp: currentTime,
				Open:      basePrice,
				High:      basePrice,
				Low:       basePrice,
				Close:     basePrice,
				Volume:    0,
				Symbol:    symbol,
				Timeframe: timeframe,
				Source:    "synthetic",
			})
		}
		currentTime = currentTime.Add(duration)
	}

	return complete
}
