// Package backtest replays a historical candle series bar by bar, feeds each
// visible window through the analyzers and the signal synthesizer, simulates
// position lifecycle against the resulting signal stream, and records the
// closed-trade ledger and equity curve.
package backtest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kukhmax/ai-trade/internal/analysis"
	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/indicator"
	"github.com/kukhmax/ai-trade/internal/metrics"
	"github.com/kukhmax/ai-trade/internal/sentiment"
	"github.com/kukhmax/ai-trade/internal/signal"
)

// Exit reasons recorded on closed trades.
const (
	ReasonStop      = "stop"
	ReasonTarget    = "target"
	ReasonReversal  = "reversal"
	ReasonEndOfData = "end-of-data"
)

// Trade is one closed position. Immutable once appended to the ledger.
type Trade struct {
	ID         string        `json:"id"`
	Symbol     string        `json:"symbol"`
	Direction  signal.Action `json:"direction"` // buy (long) or sell (short)
	Entry      float64       `json:"entry"`
	Exit       float64       `json:"exit"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit"`
	Size       float64       `json:"size"`
	EntryTime  time.Time     `json:"entry_time"`
	ExitTime   time.Time     `json:"exit_time"`
	Reason     string        `json:"reason"`
	PnL        float64       `json:"pnl"`
}

// EquityPoint is one mark-to-market sample of the equity curve, one per bar.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Result is the output of one backtest run.
type Result struct {
	RunID     string          `json:"run_id"`
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Trades    []Trade         `json:"trades"`
	Equity    []EquityPoint   `json:"equity"`
	Signals   []signal.Signal `json:"signals"`
	Metrics   metrics.Report  `json:"metrics"`
}

// Options configure one engine run.
type Options struct {
	MinConfidence  float64 // signals below this never open or reverse a position
	InitialCapital float64 // starting equity, default 10000
	Size           float64 // position size in units, default 1
}

// position is the single open position of a run; at most one exists.
type position struct {
	direction  signal.Action
	entry      float64
	stopLoss   float64
	takeProfit float64
	size       float64
	entryTime  time.Time
	entryBar   int
}

// Engine drives the deterministic bar-by-bar replay. It exclusively owns the
// position state and trade ledger for the duration of one run; runs share no
// state with each other.
type Engine struct {
	analyzers []analysis.Analyzer
	synth     *signal.Synthesizer
	sentiment sentiment.Provider
	opts      Options
}

func NewEngine(analyzers []analysis.Analyzer, synth *signal.Synthesizer, sent sentiment.Provider, opts Options) *Engine {
	if opts.InitialCapital <= 0 {
		opts.InitialCapital = 10000
	}
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if sent == nil {
		sent = sentiment.None{}
	}
	return &Engine{
		analyzers: analyzers,
		synth:     synth,
		sentiment: sent,
		opts:      opts,
	}
}

// Run replays the series and returns the ledger, equity curve, signal
// history and performance metrics. Malformed or non-monotonic input is a
// fatal configuration error; the engine refuses to run.
func (e *Engine) Run(ctx context.Context, candles []candle.Candle) (*Result, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("backtest requires at least one candle")
	}
	if err := candle.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("refusing to run on malformed series: %w", err)
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Symbol:    candles[0].Symbol,
		Timeframe: candles[0].Timeframe,
		Equity:    make([]EquityPoint, 0, len(candles)),
		Signals:   make([]signal.Signal, 0, len(candles)),
	}

	var pos *position
	var realized float64

	for i := range candles {
		// Keep the ledger consistent on cancellation: a trade is either
		// fully recorded at a bar boundary or not at all.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bar := candles[i]
		sig := e.synthesizeBar(ctx, candles[:i+1])
		res.Signals = append(res.Signals, sig)

		// Exit checks run before entries, in priority order: intrabar stop,
		// intrabar target, then reversal at the close.
		if pos != nil && i > pos.entryBar {
			if exitPrice, reason, hit := pos.intrabarExit(bar); hit {
				realized += e.closePosition(res, pos, exitPrice, bar.Timestamp, reason)
				pos = nil
			} else if pos.isOpposing(sig) && sig.Confidence >= e.opts.MinConfidence {
				realized += e.closePosition(res, pos, bar.Close, bar.Timestamp, ReasonReversal)
				pos = nil
			}
		}

		// While flat, an actionable signal opens a position at this bar's
		// entry price. A reversal above re-enters on the same bar.
		if pos == nil && sig.Action != signal.Hold && sig.Confidence >= e.opts.MinConfidence {
			pos = &position{
				direction:  sig.Action,
				entry:      sig.Entry,
				stopLoss:   sig.StopLoss,
				takeProfit: sig.TakeProfit,
				size:       e.opts.Size,
				entryTime:  bar.Timestamp,
				entryBar:   i,
			}
		}

		res.Equity = append(res.Equity, EquityPoint{
			Time:   bar.Timestamp,
			Equity: e.opts.InitialCapital + realized + pos.unrealized(bar.Close),
		})
	}

	if pos != nil {
		last := candles[len(candles)-1]
		realized += e.closePosition(res, pos, last.Close, last.Timestamp, ReasonEndOfData)
		pos = nil
	}

	res.Metrics = e.computeMetrics(res)

	log.Printf("Run | %s %s: %d bars, %d trades, final equity %.2f",
		res.Symbol, res.Timeframe, len(candles), len(res.Trades), res.Equity[len(res.Equity)-1].Equity)

	return res, nil
}

// SynthesizeSignal produces one signal for the latest bar of the given
// window; the single-bar entry point for live use.
func (e *Engine) SynthesizeSignal(ctx context.Context, candles []candle.Candle) (signal.Signal, error) {
	if len(candles) == 0 {
		return signal.Signal{}, fmt.Errorf("signal synthesis requires at least one candle")
	}
	if err := candle.ValidateSeries(candles); err != nil {
		return signal.Signal{}, fmt.Errorf("refusing to analyze malformed series: %w", err)
	}
	return e.synthesizeBar(ctx, candles), nil
}

// synthesizeBar fans out the analyzers over the visible window, folds in the
// sentiment opinion and synthesizes one signal for the window's last bar.
func (e *Engine) synthesizeBar(ctx context.Context, window []candle.Candle) signal.Signal {
	snap := indicator.ComputeSnapshot(window)
	opinions := analysis.Collect(window, snap, e.analyzers)
	bar := window[len(window)-1]

	if _, ok := e.sentiment.(sentiment.None); !ok {
		opinions = append(opinions, e.sentiment.Opinion(ctx, bar.Symbol))
	}

	return e.synth.Synthesize(opinions, bar)
}

// closePosition appends exactly one Trade to the ledger and returns its PnL.
func (e *Engine) closePosition(res *Result, pos *position, exitPrice float64, exitTime time.Time, reason string) float64 {
	pnl := pos.pnl(exitPrice)
	res.Trades = append(res.Trades, Trade{
		ID:         uuid.NewString(),
		Symbol:     res.Symbol,
		Direction:  pos.direction,
		Entry:      pos.entry,
		Exit:       exitPrice,
		StopLoss:   pos.stopLoss,
		TakeProfit: pos.takeProfit,
		Size:       pos.size,
		EntryTime:  pos.entryTime,
		ExitTime:   exitTime,
		Reason:     reason,
		PnL:        pnl,
	})
	return pnl
}

func (e *Engine) computeMetrics(res *Result) metrics.Report {
	pnls := make([]float64, len(res.Trades))
	for i, t := range res.Trades {
		pnls[i] = t.PnL
	}
	equity := make([]float64, len(res.Equity))
	for i, p := range res.Equity {
		equity[i] = p.Equity
	}
	return metrics.Compute(pnls, equity, res.Timeframe)
}

// intrabarExit checks whether the bar's high/low crossed the stop-loss or
// take-profit. When both are crossable within the same bar the stop takes
// precedence (conservative assumption).
func (p *position) intrabarExit(bar candle.Candle) (price float64, reason string, hit bool) {
	if p.direction == signal.Buy {
		if bar.Low <= p.stopLoss {
			return p.stopLoss, ReasonStop, true
		}
		if bar.High >= p.takeProfit {
			return p.takeProfit, ReasonTarget, true
		}
		return 0, "", false
	}
	if bar.High >= p.stopLoss {
		return p.stopLoss, ReasonStop, true
	}
	if bar.Low <= p.takeProfit {
		return p.takeProfit, ReasonTarget, true
	}
	return 0, "", false
}

func (p *position) isOpposing(sig signal.Signal) bool {
	return (p.direction == signal.Buy && sig.Action == signal.Sell) ||
		(p.direction == signal.Sell && sig.Action == signal.Buy)
}

func (p *position) pnl(exitPrice float64) float64 {
	if p.direction == signal.Buy {
		return (exitPrice - p.entry) * p.size
	}
	return (p.entry - exitPrice) * p.size
}

// unrealized marks the position to the given price; nil positions mark to 0.
func (p *position) unrealized(price float64) float64 {
	if p == nil {
		return 0
	}
	return p.pnl(price)
}
