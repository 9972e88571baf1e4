package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kukhmax/ai-trade/internal/analysis"
	"github.com/kukhmax/ai-trade/internal/backtest"
	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/config"
	"github.com/kukhmax/ai-trade/internal/market"
	"github.com/kukhmax/ai-trade/internal/notifier"
	"github.com/kukhmax/ai-trade/internal/report"
	"github.com/kukhmax/ai-trade/internal/scheduler"
	"github.com/kukhmax/ai-trade/internal/sentiment"
	tradesignal "github.com/kukhmax/ai-trade/internal/signal"
	"github.com/kukhmax/ai-trade/internal/store"
)

func main() {
	cfg := config.MustLoad(os.Args[1:])
	log.Println("Starting trader in mode:", cfg.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	st, err := store.Open(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		log.Fatalf("Failed to open candle store: %v", err)
	}
	defer st.Close()

	provider, err := market.ForSource(cfg.DataSource, cfg.WallexAPIKey)
	if err != nil {
		log.Fatalf("Failed to build market provider: %v", err)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	switch cfg.Mode {
	case "backtest":
		runBacktest(ctx, cfg, st, provider, engine)
	case "analyze":
		runAnalyze(ctx, cfg, st, provider, engine)
	case "live":
		runLive(ctx, cfg, provider, engine)
	}
}

func buildEngine(cfg config.Config) (*backtest.Engine, error) {
	analyzers, err := analysis.ForNames(cfg.Methods)
	if err != nil {
		return nil, err
	}

	synth := tradesignal.NewSynthesizer(cfg.Weights, cfg.SignalThreshold, cfg.StopLossPercent, cfg.TakeProfitPercent)

	var sent sentiment.Provider = sentiment.None{}
	if cfg.SentimentEnabled {
		if cfg.DeepSeekAPIKey == "" {
			log.Printf("buildEngine | sentiment enabled but DEEPSEEK_API_KEY is empty, running without it")
		} else {
			sent = sentiment.NewClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel, 0)
		}
	}

	return backtest.NewEngine(analyzers, synth, sent, backtest.Options{
		MinConfidence:  cfg.MinConfidence,
		InitialCapital: cfg.InitialCapital,
		Size:           cfg.OrderSize,
	}), nil
}

func runBacktest(ctx context.Context, cfg config.Config, st store.Store, provider market.Provider, engine *backtest.Engine) {
	candles, err := market.Load(ctx, st, provider, cfg.Symbol, cfg.Timeframe, cfg.From, cfg.To)
	if err != nil {
		log.Fatalf("Failed to load candles for backtest: %v", err)
	}
	log.Printf("runBacktest | loaded %d candles [%s-%s]",
		len(candles), cfg.From.Format("2006-01-02"), cfg.To.Format("2006-01-02"))

	res, err := engine.Run(ctx, candles)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	report.PrintSummary(os.Stdout, res)
	if err := report.Save(res, candles, cfg.OutputDir); err != nil {
		log.Fatalf("Failed to save backtest artifacts: %v", err)
	}
}

// runAnalyze synthesizes one signal for the most recent window and exits.
func runAnalyze(ctx context.Context, cfg config.Config, st store.Store, provider market.Provider, engine *backtest.Engine) {
	end := time.Now().UTC()
	start := end.Add(-200 * candle.GetTimeframeDuration(cfg.Timeframe))

	candles, err := market.Load(ctx, st, provider, cfg.Symbol, cfg.Timeframe, start, end)
	if err != nil {
		log.Fatalf("Failed to load candles for analysis: %v", err)
	}

	sig, err := engine.SynthesizeSignal(ctx, candles)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	log.Printf("runAnalyze | %s", notifier.FormatSignal(sig))
}

func runLive(ctx context.Context, cfg config.Config, provider market.Provider, engine *backtest.Engine) {
	var n notifier.Notifier = notifier.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		n = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	}

	sched := scheduler.New(engine, provider, n, cfg.Symbol, cfg.Timeframe)
	if err := sched.Register(ctx, cfg.CronSpec); err != nil {
		log.Fatalf("Failed to register live analysis: %v", err)
	}

	sched.Start()
	defer sched.Stop()
	sched.RunNow(ctx)

	<-ctx.Done()
}
