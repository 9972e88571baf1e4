package indicator

import (
	"github.com/kukhmax/ai-trade/internal/candle"
)

// Default periods used by the analyzers.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	SMAFastPeriod   = 20
	SMASlowPeriod   = 50
)

// Snapshot bundles the indicator series for one price window. It is computed
// once per bar and shared read-only by every analyzer. A field is nil when
// the window is too short for that indicator; analyzers treat nil as "no
// opinion" rather than failing.
type Snapshot struct {
	Closes  []float64
	Volumes []float64

	SMAFast   []float64
	SMASlow   []float64
	RSI       []float64
	MACD      *MACDResult
	Bollinger *BollingerResult
}

// ComputeSnapshot computes all indicator series the window allows.
// Insufficient-data failures degrade to nil fields; they never propagate.
func ComputeSnapshot(candles []candle.Candle) *Snapshot {
	closes := candle.Closes(candles)
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}

	snap := &Snapshot{Closes: closes, Volumes: volumes}

	if sma, err := CalculateSMA(closes, SMAFastPeriod); err == nil {
		snap.SMAFast = sma
	}
	if sma, err := CalculateSMA(closes, SMASlowPeriod); err == nil {
		snap.SMASlow = sma
	}
	if rsi, err := CalculateRSI(closes, RSIPeriod); err == nil {
		snap.RSI = rsi
	}
	if macd, err := CalculateMACD(closes, MACDFast, MACDSlow, MACDSignal); err == nil {
		snap.MACD = macd
	}
	if bb, err := CalculateBollinger(closes, BollingerPeriod, BollingerStdDev); err == nil {
		snap.Bollinger = bb
	}

	return snap
}
