// Package signal fuses analyzer opinions into one actionable trade signal.
package signal

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kukhmax/ai-trade/internal/analysis"
	"github.com/kukhmax/ai-trade/internal/candle"
)

// Action is the trade action of a synthesized signal.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	Hold Action = "hold"
)

// Signal is the unified trade signal produced for one bar.
type Signal struct {
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"` // 0..1
	Entry      float64   `json:"entry"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Rationale  string    `json:"rationale"`
	Methods    []string  `json:"methods"`
}

// Defaults applied when no analyzer proposes a usable level.
const (
	DefaultStopLossPercent   = 2.0
	DefaultTakeProfitPercent = 6.0
	DefaultThreshold         = 0.3

	// Stops sit slightly beyond the structural level so a touch of the level
	// itself does not shake the position out.
	levelStopPadding = 0.005
)

// Synthesizer combines per-method opinions into one Signal using a weighted
// net directional score. It carries no per-run state; the same inputs always
// produce the same signal.
type Synthesizer struct {
	weights           map[string]float64
	threshold         float64
	stopLossPercent   float64
	takeProfitPercent float64
}

// NewSynthesizer builds a Synthesizer. Methods missing from weights get
// weight 1 (equal weighting). Zero threshold/percents fall back to defaults.
func NewSynthesizer(weights map[string]float64, threshold, stopLossPercent, takeProfitPercent float64) *Synthesizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if stopLossPercent <= 0 {
		stopLossPercent = DefaultStopLossPercent
	}
	if takeProfitPercent <= 0 {
		takeProfitPercent = DefaultTakeProfitPercent
	}
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Synthesizer{
		weights:           w,
		threshold:         threshold,
		stopLossPercent:   stopLossPercent,
		takeProfitPercent: takeProfitPercent,
	}
}

func (s *Synthesizer) weight(method string) float64 {
	if w, ok := s.weights[method]; ok {
		return w
	}
	return 1.0
}

// Synthesize produces exactly one Signal from the opinions of the current
// bar. A zero net score, or one inside the threshold band, yields hold.
func (s *Synthesizer) Synthesize(opinions []analysis.Opinion, bar candle.Candle) Signal {
	var net, contributingWeight float64
	var contributing []analysis.Opinion

	for _, op := range opinions {
		if op.Direction == analysis.Neutral || op.Strength == 0 {
			continue
		}
		w := s.weight(op.Method)
		net += w * op.Signed()
		contributingWeight += w
		contributing = append(contributing, op)
	}

	sig := Signal{
		Time:   bar.Timestamp,
		Symbol: bar.Symbol,
		Action: Hold,
	}

	if contributingWeight > 0 {
		sig.Confidence = clamp01(math.Abs(net) / contributingWeight)
	}

	switch {
	case net >= s.threshold:
		sig.Action = Buy
	case net <= -s.threshold:
		sig.Action = Sell
	default:
		sig.Rationale = s.rationale(contributing)
		return sig
	}

	sig.Entry = bar.Close
	sig.StopLoss, sig.TakeProfit = s.levels(sig.Action, bar.Close, contributing)
	sig.Rationale = s.rationale(contributing)
	for _, op := range s.byContribution(contributing) {
		sig.Methods = append(sig.Methods, op.Method)
	}
	return sig
}

// levels derives stop-loss and take-profit from the most conservative
// structural level any contributing opinion proposes on the correct side of
// entry, falling back to fixed percentages from entry.
func (s *Synthesizer) levels(action Action, entry float64, opinions []analysis.Opinion) (stop, target float64) {
	var nearestSupport, nearestResistance float64
	for _, op := range opinions {
		for _, l := range op.Levels {
			switch {
			case l.Kind == analysis.LevelSupport && l.Price < entry:
				if l.Price > nearestSupport {
					nearestSupport = l.Price
				}
			case l.Kind == analysis.LevelResistance && l.Price > entry:
				if nearestResistance == 0 || l.Price < nearestResistance {
					nearestResistance = l.Price
				}
			}
		}
	}

	if action == Buy {
		stop = entry * (1 - s.stopLossPercent/100)
		if nearestSupport > 0 {
			stop = nearestSupport * (1 - levelStopPadding)
		}
		target = entry * (1 + s.takeProfitPercent/100)
		if nearestResistance > 0 {
			target = nearestResistance
		}
		// buy invariant: stop < entry < target
		if stop >= entry {
			stop = entry * (1 - s.stopLossPercent/100)
		}
		if target <= entry {
			target = entry * (1 + s.takeProfitPercent/100)
		}
		return stop, target
	}

	// sell: target < entry < stop
	stop = entry * (1 + s.stopLossPercent/100)
	if nearestResistance > 0 {
		stop = nearestResistance * (1 + levelStopPadding)
	}
	target = entry * (1 - s.takeProfitPercent/100)
	if nearestSupport > 0 {
		target = nearestSupport
	}
	if stop <= entry {
		stop = entry * (1 + s.stopLossPercent/100)
	}
	if target >= entry {
		target = entry * (1 - s.takeProfitPercent/100)
	}
	return stop, target
}

// rationale concatenates contributing fragments ordered by descending
// weighted contribution.
func (s *Synthesizer) rationale(contributing []analysis.Opinion) string {
	ordered := s.byContribution(contributing)
	parts := make([]string, 0, len(ordered))
	for _, op := range ordered {
		if op.Rationale != "" {
			parts = append(parts, op.Rationale)
		}
	}
	if len(parts) == 0 {
		return "no directional opinions"
	}
	return strings.Join(parts, "; ")
}

func (s *Synthesizer) byContribution(opinions []analysis.Opinion) []analysis.Opinion {
	ordered := make([]analysis.Opinion, len(opinions))
	copy(ordered, opinions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.weight(ordered[i].Method)*ordered[i].Strength > s.weight(ordered[j].Method)*ordered[j].Strength
	})
	return ordered
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
