// Package report turns a backtest result into artifacts: a console summary,
// CSV exports of trades and equity, and a chart data file for rendering the
// candle series with trade markers.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kukhmax/ai-trade/internal/backtest"
	"github.com/kukhmax/ai-trade/internal/candle"
	"github.com/kukhmax/ai-trade/internal/signal"
)

// ChartData is the renderable view of one run: the replayed candles, the
// equity curve and entry/exit markers for every trade.
type ChartData struct {
	Symbol    string                 `json:"symbol"`
	Timeframe string                 `json:"timeframe"`
	Candles   []candle.Candle        `json:"candles"`
	Equity    []backtest.EquityPoint `json:"equity"`
	Markers   []Marker               `json:"markers"`
	Signals   []signal.Signal        `json:"signals"`
}

// Marker annotates one trade event on the chart.
type Marker struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
	Kind  string    `json:"kind"`  // "entry" or "exit"
	Side  string    `json:"side"`  // "buy" or "sell"
	Label string    `json:"label"` // exit reason or empty for entries
}

// BuildChartData assembles the chart view from a run. Hold signals are
// dropped; they carry no chart information.
func BuildChartData(res *backtest.Result, candles []candle.Candle) ChartData {
	cd := ChartData{
		Symbol:    res.Symbol,
		Timeframe: res.Timeframe,
		Candles:   candles,
		Equity:    res.Equity,
	}
	for _, sig := range res.Signals {
		if sig.Action != signal.Hold {
			cd.Signals = append(cd.Signals, sig)
		}
	}
	for _, t := range res.Trades {
		cd.Markers = append(cd.Markers,
			Marker{Time: t.EntryTime, Price: t.Entry, Kind: "entry", Side: string(t.Direction)},
			Marker{Time: t.ExitTime, Price: t.Exit, Kind: "exit", Side: string(t.Direction), Label: t.Reason},
		)
	}
	return cd
}

// Save writes all artifacts of a run into outputDir.
func Save(res *backtest.Result, candles []candle.Candle, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	if err := saveJSON(filepath.Join(outputDir, "chart_data.json"), BuildChartData(res, candles)); err != nil {
		return err
	}
	if err := saveJSON(filepath.Join(outputDir, "metrics.json"), res.Metrics); err != nil {
		return err
	}

	tradeRows := [][]string{{"Trade#", "Side", "Entry", "EntryTime", "Exit", "ExitTime", "Reason", "PnL"}}
	for i, t := range res.Trades {
		tradeRows = append(tradeRows, []string{
			fmt.Sprintf("%d", i+1),
			string(t.Direction),
			fmt.Sprintf("%.2f", t.Entry),
			t.EntryTime.Format(time.RFC3339),
			fmt.Sprintf("%.2f", t.Exit),
			t.ExitTime.Format(time.RFC3339),
			t.Reason,
			fmt.Sprintf("%.2f", t.PnL),
		})
	}
	if err := saveCSV(filepath.Join(outputDir, "backtest_trades.csv"), tradeRows); err != nil {
		return err
	}

	equityRows := [][]string{{"Time", "Equity"}}
	for _, p := range res.Equity {
		equityRows = append(equityRows, []string{
			p.Time.Format(time.RFC3339),
			fmt.Sprintf("%.2f", p.Equity),
		})
	}
	return saveCSV(filepath.Join(outputDir, "backtest_equity.csv"), equityRows)
}

// PrintSummary writes the metrics block and a trade table to w.
func PrintSummary(w io.Writer, res *backtest.Result) {
	m := res.Metrics

	fmt.Fprintf(w, "\nBacktest %s %s (run %s)\n", res.Symbol, res.Timeframe, res.RunID)
	fmt.Fprintf(w, "  Trades=%d, Wins=%d, Losses=%d, WinRate=%.2f%%\n",
		m.TotalTrades, m.Wins, m.Losses, m.WinRate*100)
	fmt.Fprintf(w, "  TotalPnL=%.2f, ProfitFactor=%.2f, Expectancy=%.2f\n",
		m.TotalPnL, m.ProfitFactor, m.Expectancy)
	fmt.Fprintf(w, "  AvgWin=%.2f, AvgLoss=%.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Fprintf(w, "  MaxDrawdown=%.2f%%, Sharpe=%.2f\n\n", m.MaxDrawdown, m.Sharpe)

	if len(res.Trades) == 0 {
		fmt.Fprintln(w, "  no trades")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Side", "Entry", "Exit", "Reason", "PnL", "Held")
	for i, t := range res.Trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(t.Direction),
			fmt.Sprintf("%.2f", t.Entry),
			fmt.Sprintf("%.2f", t.Exit),
			t.Reason,
			fmt.Sprintf("%+.2f", t.PnL),
			t.ExitTime.Sub(t.EntryTime).String(),
		)
	}
	table.Render()
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	log.Printf("Save | wrote %s", path)
	return nil
}

func saveCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
		}
	}
	log.Printf("Save | wrote %s", path)
	return nil
}
