package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// Writer persists run artifacts under <root>/<date>/<command>-<run id>
type Writer struct {
	root string
}

// NewWriter creates a new artifact writer rooted at outputDir
func NewWriter(outputDir string) *Writer {
	return &Writer{root: outputDir}
}

// Dir returns the artifact directory for r
func (w *Writer) Dir(r *Report) string {
	return filepath.Join(w.root, r.GeneratedAt.Format("2006-01-02"), r.Command+"-"+shortID(r.RunID))
}

// Write persists report.json, trades.jsonl and summary.md and returns the
// artifact directory
func (w *Writer) Write(r *Report) (string, error) {
	dir := w.Dir(r)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.writeJSON(filepath.Join(dir, "report.json"), r); err != nil {
		return "", err
	}
	if err := w.writeTrades(filepath.Join(dir, "trades.jsonl"), r.Trades()); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(Markdown(r)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	return dir, nil
}

func (w *Writer) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeTrades writes one JSON trade per line
func (w *Writer) writeTrades(path string, trades []reclaim.Trade) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	return nil
}

// Markdown renders the human-readable summary of r
func Markdown(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# pivotscope %s report\n\n", r.Command)
	fmt.Fprintf(&b, "**Run**: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "**Generated**: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Source**: `%s`\n", r.Source)
	fmt.Fprintf(&b, "**History**: %d bars (%d missing), %s to %s\n\n",
		r.Bars, r.MissingBars, r.FirstDate.Format("2006-01-02"), r.LastDate.Format("2006-01-02"))

	if l := r.Latest; l != nil {
		b.WriteString("## Latest Bar\n\n")
		fmt.Fprintf(&b, "- **Date**: %s\n", l.Date.Format("2006-01-02"))
		fmt.Fprintf(&b, "- **Close**: %s\n", price(l.Close))
		fmt.Fprintf(&b, "- **Volatility**: %s (median %s)\n", ratio(l.Volatility), ratio(l.VolatilityMedian))
		fmt.Fprintf(&b, "- **Zigzag Width**: %s\n", percent(l.ZigzagPct))
		fmt.Fprintf(&b, "- **Trailing Stop**: %s\n", percent(l.TrailingStopPct))
		fmt.Fprintf(&b, "- **Moving Average**: %s\n\n", price(l.MovingAverage))
	}

	if len(r.Pivots) > 0 {
		b.WriteString("## Pivots\n\n")
		b.WriteString("| # | Type | Date | Close | Confirmed | Lag | Width |\n")
		b.WriteString("|--:|------|------|------:|-----------|----:|------:|\n")
		for i, p := range r.Pivots {
			fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s | %d | %.2f%% |\n",
				i+1, p.Type, p.Date.Format("2006-01-02"), p.Close,
				p.ConfirmDate.Format("2006-01-02"), p.ConfirmIndex-p.Index, p.PctUsed*100)
		}
		b.WriteString("\n")
	}

	if len(r.Cycles) > 0 {
		b.WriteString("## Epoch Cycles\n\n")
		b.WriteString("| Epoch | Peak | Trough | Drawdown | Reclaim | Note |\n")
		b.WriteString("|-------|------|--------|---------:|---------|------|\n")
		for _, c := range r.Cycles {
			peak, trough, reclaimed := "-", "-", "-"
			if c.CyclePeak != nil {
				peak = fmt.Sprintf("%s @ %.2f", c.CyclePeak.Date.Format("2006-01-02"), c.CyclePeak.Close)
			}
			if c.CycleTrough != nil {
				trough = fmt.Sprintf("%s @ %.2f", c.CycleTrough.Date.Format("2006-01-02"), c.CycleTrough.Close)
			}
			if c.Reclaim != nil {
				reclaimed = c.Reclaim.Date.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				c.Epoch.Name, peak, trough, ratio(c.Drawdown), reclaimed, c.Note)
		}
		b.WriteString("\n")
	}

	if bt := r.Backtest; bt != nil {
		b.WriteString("## Backtest\n\n")
		writeStats(&b, bt.Stats)
		fmt.Fprintf(&b, "- **Buy & Hold**: %s\n", percent(bt.BuyAndHold))
		fmt.Fprintf(&b, "- **Exposure**: %.1f%%\n\n", bt.Exposure*100)
	}

	if wf := r.WalkForward; wf != nil {
		agg := wf.Aggregate
		b.WriteString("## Walk-Forward\n\n")
		fmt.Fprintf(&b, "- **Windows**: %d (%d with a chosen combination)\n", agg.Windows, agg.ChosenWindows)
		fmt.Fprintf(&b, "- **Grid**: %d combinations, %d evaluations, %d discarded\n", agg.GridSize, agg.Evaluations, agg.DiscardedTotal)
		writeStats(&b, agg.Stats)
		b.WriteString("\n")

		b.WriteString("| Window | Train | Test | Chosen | Train Equity | Test Equity | Test Trades |\n")
		b.WriteString("|-------:|-------|------|--------|-------------:|------------:|------------:|\n")
		for _, win := range wf.Windows {
			chosen, trainEquity := "degenerate", "-"
			if win.ChosenParams != nil {
				chosen = win.ChosenParams.String()
			}
			if win.TrainStats != nil {
				trainEquity = fmt.Sprintf("%.4f", win.TrainStats.EndingEquity)
			}
			fmt.Fprintf(&b, "| %d | %s..%s | %s..%s | %s | %s | %.4f | %d |\n",
				win.Number,
				win.TrainRange.StartDate.Format("2006-01-02"), win.TrainRange.EndDate.Format("2006-01-02"),
				win.TestRange.StartDate.Format("2006-01-02"), win.TestRange.EndDate.Format("2006-01-02"),
				chosen, trainEquity, win.TestStats.EndingEquity, win.TestStats.TradeCount)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeStats(b *strings.Builder, s reclaim.Stats) {
	fmt.Fprintf(b, "- **Trades**: %d (%d wins, %d losses, win rate %.1f%%)\n", s.TradeCount, s.Wins, s.Losses, s.WinRate*100)
	fmt.Fprintf(b, "- **Ending Equity**: %.4f\n", s.EndingEquity)
	fmt.Fprintf(b, "- **Max Drawdown**: %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(b, "- **Profit Factor**: %s\n", profitFactor(s.ProfitFactor))
	fmt.Fprintf(b, "- **Avg Bars Held**: %.1f\n", s.AvgBarsHeld)
}

func profitFactor(pf *float64) string {
	if pf == nil {
		return "n/a (no losses)"
	}
	return fmt.Sprintf("%.2f", *pf)
}

func ratio(n series.Num) string {
	v, ok := n.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

func price(n series.Num) string {
	v, ok := n.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func percent(n series.Num) string {
	v, ok := n.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
