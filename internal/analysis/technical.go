package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/indicator"
)

// Sub-signal weights of the technical analyzer.
const (
	weightRSI       = 0.20
	weightMACD      = 0.25
	weightBollinger = 0.20
	weightVolume    = 0.15
	weightTrend     = 0.20

	rsiOversold   = 30.0
	rsiOverbought = 70.0

	volumeSurgeRatio = 1.5
	volumeAvgPeriod  = 20

	// Minimum weighted power before the analyzer commits to a direction.
	minPower = 0.3
)

// TechnicalAnalyzer derives direction from moving-average relationships,
// oscillator zones and band proximity, weighted per sub-indicator.
type TechnicalAnalyzer struct{}

func NewTechnicalAnalyzer() *TechnicalAnalyzer {
	return &TechnicalAnalyzer{}
}

func (a *TechnicalAnalyzer) Name() string { return MethodTechnical }

type subSignal struct {
	direction Direction
	strength  float64
	label     string
}

func (a *TechnicalAnalyzer) Analyze(window []candle.Candle, snap *indicator.Snapshot) Opinion {
	if len(window) == 0 || snap == nil {
		return NeutralOpinion(MethodTechnical, "no data")
	}

	subs := []struct {
		weight float64
		sig    subSignal
	}{
		{weightRSI, a.analyzeRSI(snap)},
		{weightMACD, a.analyzeMACD(snap)},
		{weightBollinger, a.analyzeBollinger(snap)},
		{weightVolume, a.analyzeVolume(window)},
		{weightTrend, a.analyzeTrend(snap)},
	}

	var buyPower, sellPower float64
	var reasons []string
	for _, s := range subs {
		switch s.sig.direction {
		case Bullish:
			buyPower += s.sig.strength * s.weight
		case Bearish:
			sellPower += s.sig.strength * s.weight
		}
		if s.sig.label != "" {
			reasons = append(reasons, s.sig.label)
		}
	}

	var dir Direction
	var strength float64
	switch {
	case buyPower > sellPower && buyPower > minPower:
		dir, strength = Bullish, math.Min(buyPower, 1)
	case sellPower > buyPower && sellPower > minPower:
		dir, strength = Bearish, math.Min(sellPower, 1)
	default:
		return NeutralOpinion(MethodTechnical, "no dominant technical signal")
	}

	return Opinion{
		Method:    MethodTechnical,
		Direction: dir,
		Strength:  strength,
		Levels:    a.proposeLevels(snap),
		Rationale: fmt.Sprintf("technical %s (%s)", dir, strings.Join(reasons, ", ")),
	}
}

func (a *TechnicalAnalyzer) analyzeRSI(snap *indicator.Snapshot) subSignal {
	if snap.RSI == nil {
		return subSignal{}
	}
	rsi := snap.RSI[len(snap.RSI)-1]
	switch {
	case rsi < rsiOversold:
		return subSignal{Bullish, (rsiOversold - rsi) / rsiOversold, "rsi oversold"}
	case rsi > rsiOverbought:
		return subSignal{Bearish, (rsi - rsiOverbought) / (100 - rsiOverbought), "rsi overbought"}
	}
	return subSignal{}
}

func (a *TechnicalAnalyzer) analyzeMACD(snap *indicator.Snapshot) subSignal {
	m := snap.MACD
	if m == nil || len(m.MACD) < 2 {
		return subSignal{}
	}
	n := len(m.MACD)
	cur, curSig := m.MACD[n-1], m.Signal[n-1]
	prev, prevSig := m.MACD[n-2], m.Signal[n-2]
	if math.IsNaN(prevSig) || math.IsNaN(curSig) {
		return subSignal{}
	}
	switch {
	case prev < prevSig && cur > curSig:
		return subSignal{Bullish, math.Min(math.Abs(cur-curSig)*10, 1), "macd bullish cross"}
	case prev > prevSig && cur < curSig:
		return subSignal{Bearish, math.Min(math.Abs(cur-curSig)*10, 1), "macd bearish cross"}
	}
	return subSignal{}
}

func (a *TechnicalAnalyzer) analyzeBollinger(snap *indicator.Snapshot) subSignal {
	bb := snap.Bollinger
	if bb == nil {
		return subSignal{}
	}
	n := len(snap.Closes)
	price := snap.Closes[n-1]
	upper, lower := bb.Upper[n-1], bb.Lower[n-1]
	if math.IsNaN(upper) || math.IsNaN(lower) {
		return subSignal{}
	}
	switch {
	case price <= lower:
		return subSignal{Bullish, math.Min((lower-price)/lower*10, 1), "price at lower band"}
	case price >= upper:
		return subSignal{Bearish, math.Min((price-upper)/upper*10, 1), "price at upper band"}
	}
	return subSignal{}
}

func (a *TechnicalAnalyzer) analyzeVolume(window []candle.Candle) subSignal {
	if len(window) < volumeAvgPeriod+1 {
		return subSignal{}
	}
	var sum float64
	for _, c := range window[len(window)-volumeAvgPeriod-1 : len(window)-1] {
		sum += c.Volume
	}
	avg := sum / volumeAvgPeriod
	if avg == 0 {
		return subSignal{}
	}
	last := window[len(window)-1]
	ratio := last.Volume / avg
	if ratio <= volumeSurgeRatio {
		return subSignal{}
	}
	strength := math.Min((ratio-1)/2, 1)
	if last.IsBullish() {
		return subSignal{Bullish, strength, "volume surge on up candle"}
	}
	if last.IsBearish() {
		return subSignal{Bearish, strength, "volume surge on down candle"}
	}
	return subSignal{}
}

func (a *TechnicalAnalyzer) analyzeTrend(snap *indicator.Snapshot) subSignal {
	if snap.SMAFast == nil || snap.SMASlow == nil {
		return subSignal{}
	}
	n := len(snap.Closes)
	price := snap.Closes[n-1]
	fast, slow := snap.SMAFast[n-1], snap.SMASlow[n-1]
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return subSignal{}
	}
	switch {
	case price > fast && fast > slow:
		return subSignal{Bullish, 0.7, "uptrend (price above both MAs)"}
	case price < fast && fast < slow:
		return subSignal{Bearish, 0.7, "downtrend (price below both MAs)"}
	}
	return subSignal{}
}

// proposeLevels offers the Bollinger bands and the slow MA as structural
// levels on their respective sides of price.
func (a *TechnicalAnalyzer) proposeLevels(snap *indicator.Snapshot) []Level {
	var levels []Level
	n := len(snap.Closes)
	price := snap.Closes[n-1]

	if bb := snap.Bollinger; bb != nil {
		if lower := bb.Lower[n-1]; !math.IsNaN(lower) && lower < price {
			levels = append(levels, Level{Kind: LevelSupport, Price: lower})
		}
		if upper := bb.Upper[n-1]; !math.IsNaN(upper) && upper > price {
			levels = append(levels, Level{Kind: LevelResistance, Price: upper})
		}
	}
	if snap.SMASlow != nil {
		if slow := snap.SMASlow[n-1]; !math.IsNaN(slow) {
			if slow < price {
				levels = append(levels, Level{Kind: LevelSupport, Price: slow})
			} else if slow > price {
				levels = append(levels, Level{Kind: LevelResistance, Price: slow})
			}
		}
	}
	return levels
}
