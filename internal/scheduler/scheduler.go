// Package scheduler runs the live analysis loop: on each cron tick it pulls
// the latest candle window, synthesizes one signal and delivers it.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kukhmax/ai-trade/internal/backtest"
	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/market"
	"github.com/kukhmax/ai-trade/internal/notifier"
	"github.com/kukhmax/ai-trade/internal/signal"
)

// windowBars is how much history each tick analyzes; enough for the slowest
// indicator (50-bar SMA) plus swing structure.
const windowBars = 200

// Scheduler manages the periodic analysis task.
type Scheduler struct {
	cron     *cron.Cron
	engine   *backtest.Engine
	provider market.Provider
	notify   notifier.Notifier

	symbol    string
	timeframe string
}

func New(engine *backtest.Engine, provider market.Provider, n notifier.Notifier, symbol, timeframe string) *Scheduler {
	if n == nil {
		n = notifier.Noop{}
	}
	return &Scheduler{
		cron:      cron.New(),
		engine:    engine,
		provider:  provider,
		notify:    n,
		symbol:    symbol,
		timeframe: timeframe,
	}
}

// Register schedules the analysis task. An empty spec derives one from the
// timeframe so each tick lands just after a bar closes.
func (s *Scheduler) Register(ctx context.Context, spec string) error {
	if spec == "" {
		spec = SpecForTimeframe(s.timeframe)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.analyze(ctx) }); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("Start | scheduler started for %s %s", s.symbol, s.timeframe)
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Printf("Stop | scheduler stopped")
}

// RunNow executes the analysis task immediately (manual trigger).
func (s *Scheduler) RunNow(ctx context.Context) {
	s.analyze(ctx)
}

func (s *Scheduler) analyze(ctx context.Context) {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(windowBars) * candle.GetTimeframeDuration(s.timeframe))

	candles, err := s.provider.FetchCandles(ctx, s.symbol, s.timeframe, start, end)
	if err != nil {
		log.Printf("analyze | fetching candles: %v", err)
		return
	}
	candles = candle.Process(candles, s.symbol, s.timeframe, start, end)
	if len(candles) == 0 {
		log.Printf("analyze | no candles for %s %s", s.symbol, s.timeframe)
		return
	}

	sig, err := s.engine.SynthesizeSignal(ctx, candles)
	if err != nil {
		log.Printf("analyze | synthesizing signal: %v", err)
		return
	}

	log.Printf("analyze | %s", notifier.FormatSignal(sig))
	if sig.Action != signal.Hold {
		if err := s.notify.SendWithRetry(notifier.FormatSignal(sig)); err != nil {
			log.Printf("analyze | notification failed: %v", err)
		}
	}
}

// SpecForTimeframe maps a candle timeframe to a cron spec that fires right
// after each bar closes. Sub-hourly timeframes tick on the matching minute
// boundary; everything else ticks hourly.
func SpecForTimeframe(timeframe string) string {
	switch timeframe {
	case "1m":
		return "* * * * *"
	case "5m":
		return "*/5 * * * *"
	case "15m":
		return "*/15 * * * *"
	case "30m":
		return "*/30 * * * *"
	case "1h":
		return "0 * * * *"
	case "4h":
		return "0 */4 * * *"
	case "1d":
		return "0 0 * * *"
	default:
		return "0 * * * *"
	}
}
