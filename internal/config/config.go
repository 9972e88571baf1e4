// Package config
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kukhmax/ai-trade/internal/analysis"
	"github.com/kukhmax/ai-trade/internal/candle"
)

/*
YAML config example:

mode: "backtest"
symbol: "BTCUSDT"
timeframe: "1h"
from: "2024-01-01"
to: "2024-06-01"
data_source: "binance"
methods: ["technical", "wyckoff", "elliott"]
weights:
  technical: 1.0
  wyckoff: 0.8
  elliott: 0.6
  sentiment: 0.5
signal_threshold: 0.3
min_confidence: 0.3
stop_loss_percent: 2.0
take_profit_percent: 6.0
initial_capital: 10000
db_conn_str: "trader.db"
output_dir: "results"
cron_spec: "0 * * * *"
*/

type Config struct {
	Mode       string    `yaml:"mode"`
	Symbol     string    `yaml:"symbol"`
	Timeframe  string    `yaml:"timeframe"`
	From       time.Time `yaml:"-"`
	To         time.Time `yaml:"-"`
	FromStr    string    `yaml:"from"`
	ToStr      string    `yaml:"to"`
	DataSource string    `yaml:"data_source"`

	Methods           []string           `yaml:"methods"`
	Weights           map[string]float64 `yaml:"weights"`
	SignalThreshold   float64            `yaml:"signal_threshold"`
	MinConfidence     float64            `yaml:"min_confidence"`
	StopLossPercent   float64            `yaml:"stop_loss_percent"`
	TakeProfitPercent float64            `yaml:"take_profit_percent"`
	InitialCapital    float64            `yaml:"initial_capital"`
	OrderSize         float64            `yaml:"order_size"`

	DBConnStr string `yaml:"db_conn_str"`
	DBMaxOpen int    `yaml:"db_max_open"`
	DBMaxIdle int    `yaml:"db_max_idle"`
	OutputDir string `yaml:"output_dir"`

	SentimentEnabled bool   `yaml:"sentiment_enabled"`
	DeepSeekAPIKey   string `yaml:"-"`
	DeepSeekBaseURL  string `yaml:"deepseek_base_url"`
	DeepSeekModel    string `yaml:"deepseek_model"`

	WallexAPIKey   string `yaml:"-"`
	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"telegram_chat_id"`

	CronSpec string `yaml:"cron_spec"`
}

// Load builds the configuration from flags, an optional YAML file and the
// environment (.env is loaded when present). Flag values act as defaults;
// the YAML file overrides them; secrets come from the environment only.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("trader", flag.ContinueOnError)

	mode := fs.String("mode", "backtest", "Mode: backtest, analyze or live")
	symbol := fs.String("symbol", "BTCUSDT", "Trading symbol")
	timeframe := fs.String("timeframe", "1h", "Candle timeframe")
	from := fs.String("from", time.Now().AddDate(0, -6, 0).Format("2006-01-02"), "Backtest start date (YYYY-MM-DD)")
	to := fs.String("to", time.Now().Format("2006-01-02"), "Backtest end date (YYYY-MM-DD)")
	dataSource := fs.String("data-source", "binance", "Market data source: binance or wallex")
	methods := fs.String("methods", "technical,wyckoff,elliott", "Comma-separated analysis methods")
	weightsFlag := fs.String("weights", "", "Comma-separated method:weight pairs (e.g., technical:1.0,wyckoff:0.8)")
	threshold := fs.Float64("signal-threshold", 0.3, "Net score magnitude required to act on a signal")
	minConfidence := fs.Float64("min-confidence", 0.3, "Minimum confidence to open or reverse a position")
	stopLossPercent := fs.Float64("stop-loss-percent", 2.0, "Fallback stop loss percent from entry")
	takeProfitPercent := fs.Float64("take-profit-percent", 6.0, "Fallback take profit percent from entry")
	initialCapital := fs.Float64("initial-capital", 10000, "Starting equity for backtests")
	orderSize := fs.Float64("order-size", 1.0, "Position size in units")
	dbConnStr := fs.String("db", "", "Candle store DSN: postgres://... or a sqlite file path (empty for in-memory)")
	outputDir := fs.String("output", "results", "Directory for reports and chart data")
	sentimentEnabled := fs.Bool("sentiment", false, "Fold the external sentiment opinion into signals")
	cronSpec := fs.String("cron", "0 * * * *", "Cron schedule for live analysis")
	configFile := fs.String("config", "", "Path to YAML config file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Load | skipping .env: %v", err)
	}

	cfg := Config{
		Mode:              *mode,
		Symbol:            *symbol,
		Timeframe:         *timeframe,
		FromStr:           *from,
		ToStr:             *to,
		DataSource:        *dataSource,
		Methods:           splitList(*methods),
		Weights:           parseWeights(*weightsFlag),
		SignalThreshold:   *threshold,
		MinConfidence:     *minConfidence,
		StopLossPercent:   *stopLossPercent,
		TakeProfitPercent: *takeProfitPercent,
		InitialCapital:    *initialCapital,
		OrderSize:         *orderSize,
		DBConnStr:         *dbConnStr,
		DBMaxOpen:         10,
		DBMaxIdle:         5,
		OutputDir:         *outputDir,
		SentimentEnabled:  *sentimentEnabled,
		CronSpec:          *cronSpec,
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.DeepSeekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	cfg.WallexAPIKey = os.Getenv("WALLEX_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.TelegramChatID = v
	}
	if v := os.Getenv("DB_CONN_STR"); v != "" && cfg.DBConnStr == "" {
		cfg.DBConnStr = v
	}

	var err error
	cfg.From, err = time.Parse("2006-01-02", cfg.FromStr)
	if err != nil {
		return Config{}, fmt.Errorf("parsing from date %q: %w", cfg.FromStr, err)
	}
	cfg.To, err = time.Parse("2006-01-02", cfg.ToStr)
	if err != nil {
		return Config{}, fmt.Errorf("parsing to date %q: %w", cfg.ToStr, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load for main: it exits on any configuration error.
func MustLoad(args []string) Config {
	cfg, err := Load(args)
	if err != nil {
		log.Fatalf("MustLoad | %v", err)
	}
	return cfg
}

// Validate rejects configurations the engine would refuse at runtime anyway:
// unknown modes or methods, invalid timeframes, inverted date ranges and
// non-positive risk percentages.
func (c Config) Validate() error {
	switch c.Mode {
	case "backtest", "analyze", "live":
	default:
		return fmt.Errorf("unknown mode %q (want backtest, analyze or live)", c.Mode)
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol must not be empty")
	}
	if !candle.IsValidTimeframe(c.Timeframe) {
		return fmt.Errorf("unsupported timeframe %q (supported: %s)",
			c.Timeframe, strings.Join(candle.GetSupportedTimeframes(), ", "))
	}
	if c.Mode == "backtest" && !c.From.Before(c.To) {
		return fmt.Errorf("backtest range %s..%s is empty or inverted", c.FromStr, c.ToStr)
	}
	switch c.DataSource {
	case "binance", "wallex":
	default:
		return fmt.Errorf("unknown data source %q (want binance or wallex)", c.DataSource)
	}
	if len(c.Methods) == 0 {
		return fmt.Errorf("at least one analysis method is required")
	}
	for _, m := range c.Methods {
		if !analysis.IsKnownMethod(m) {
			return fmt.Errorf("unknown analysis method %q", m)
		}
	}
	for m, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %q must not be negative, got %v", m, w)
		}
	}
	if c.SignalThreshold <= 0 || c.SignalThreshold > 1 {
		return fmt.Errorf("signal threshold must be in (0, 1], got %v", c.SignalThreshold)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0, 1], got %v", c.MinConfidence)
	}
	if c.StopLossPercent <= 0 {
		return fmt.Errorf("stop loss percent must be positive, got %v", c.StopLossPercent)
	}
	if c.TakeProfitPercent <= 0 {
		return fmt.Errorf("take profit percent must be positive, got %v", c.TakeProfitPercent)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.OrderSize <= 0 {
		return fmt.Errorf("order size must be positive, got %v", c.OrderSize)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseWeights(s string) map[string]float64 {
	weights := make(map[string]float64)
	if s == "" {
		return weights
	}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.Split(pair, ":")
		if len(parts) != 2 {
			continue
		}
		w, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		weights[strings.TrimSpace(parts[0])] = w
	}
	return weights
}
