// Package analysis contains the pattern analyzers. Each analyzer reads the
// same bounded price window plus a precomputed indicator snapshot and
// produces one Opinion. Analyzers never fail: ambiguous or insufficient
// structure yields a neutral opinion with strength 0.
package analysis

import (
	"fmt"
	"log"
	"sync"

	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/indicator"
)

// Direction is an analyzer's directional judgment.
type Direction int8

const (
	Bearish Direction = -1
	Neutral Direction = 0
	Bullish Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// Level kinds proposed by analyzers. Supports sit below price and protect
// longs; resistances sit above price and protect shorts.
const (
	LevelSupport    = "support"
	LevelResistance = "resistance"
)

// Level is a structural price level proposed by an analyzer.
type Level struct {
	Kind  string  `json:"kind"`
	Price float64 `json:"price"`
}

// Opinion is one analyzer's judgment for the current window. Ephemeral:
// recomputed every bar, never persisted past synthesis.
type Opinion struct {
	Method    string    `json:"method"`
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"` // 0..1
	Levels    []Level   `json:"levels,omitempty"`
	Rationale string    `json:"rationale"`
}

// Signed returns the direction-signed strength (bullish positive).
func (o Opinion) Signed() float64 {
	return float64(o.Direction) * o.Strength
}

// NeutralOpinion builds the strength-0 fallback for a method.
func NeutralOpinion(method, rationale string) Opinion {
	return Opinion{Method: method, Direction: Neutral, Strength: 0, Rationale: rationale}
}

// Analyzer produces an Opinion from a bounded price window and precomputed
// indicators.
type Analyzer interface {
	Name() string
	Analyze(window []candle.Candle, snap *indicator.Snapshot) Opinion
}

// Method names of the built-in analyzers.
const (
	MethodTechnical = "technical"
	MethodWyckoff   = "wyckoff"
	MethodElliott   = "elliott"
	MethodSentiment = "sentiment"
)

// IsKnownMethod reports whether name is one of the built-in methods.
func IsKnownMethod(name string) bool {
	switch name {
	case MethodTechnical, MethodWyckoff, MethodElliott, MethodSentiment:
		return true
	}
	return false
}

// ForNames builds the analyzer set for the configured method names.
// Unknown names are a configuration error. The sentiment method has no
// analyzer here; its opinion comes from the external provider.
func ForNames(names []string) ([]Analyzer, error) {
	var analyzers []Analyzer
	for _, name := range names {
		switch name {
		case MethodTechnical:
			analyzers = append(analyzers, NewTechnicalAnalyzer())
		case MethodWyckoff:
			analyzers = append(analyzers, NewWyckoffAnalyzer())
		case MethodElliott:
			analyzers = append(analyzers, NewElliottAnalyzer())
		case MethodSentiment:
			// handled by the sentiment provider, not an analyzer
		default:
			return nil, fmt.Errorf("unknown analysis method: %s", name)
		}
	}
	return analyzers, nil
}

// Collect runs all analyzers over the same read-only window and waits for
// every opinion before returning (fan-out/fan-in). A panicking analyzer
// degrades to a neutral opinion instead of aborting the bar.
func Collect(window []candle.Candle, snap *indicator.Snapshot, analyzers []Analyzer) []Opinion {
	opinions := make([]Opinion, len(analyzers))

	var wg sync.WaitGroup
	for i, a := range analyzers {
		wg.Add(1)
		go func(i int, a Analyzer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Collect | analyzer %s panicked: %v", a.Name(), r)
					opinions[i] = NeutralOpinion(a.Name(), "analyzer failure")
				}
			}()
			opinions[i] = a.Analyze(window, snap)
		}(i, a)
	}
	wg.Wait()

	return opinions
}
