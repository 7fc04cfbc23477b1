package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
	"github.com/sawpanic/pivotscope/internal/report"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	muted   = color.New(color.Faint)
)

// printSummary renders a short colored console view of rep
func printSummary(w io.Writer, rep *report.Report) {
	heading.Fprintf(w, "%s %s\n", appName, rep.Command)
	muted.Fprintf(w, "run %s  source %s  %d bars (%d missing)  %s .. %s\n\n",
		rep.RunID, rep.Source, rep.Bars, rep.MissingBars,
		rep.FirstDate.Format("2006-01-02"), rep.LastDate.Format("2006-01-02"))

	if l := rep.Latest; l != nil {
		heading.Fprintln(w, "Latest bar")
		fmt.Fprintf(w, "  %s  close %s  vol %s  zigzag %s  stop %s  ma %s\n\n",
			l.Date.Format("2006-01-02"), num(l.Close, "%.2f"), num(l.Volatility, "%.4f"),
			pct(l.ZigzagPct), pct(l.TrailingStopPct), num(l.MovingAverage, "%.2f"))
	}

	if len(rep.Pivots) > 0 {
		heading.Fprintf(w, "Pivots (%d)\n", len(rep.Pivots))
		start := max(len(rep.Pivots)-10, 0)
		if start > 0 {
			muted.Fprintf(w, "  ... %d earlier\n", start)
		}
		for _, p := range rep.Pivots[start:] {
			c := good
			if p.Type == pivots.Peak {
				c = bad
			}
			c.Fprintf(w, "  %-6s", p.Type)
			fmt.Fprintf(w, " %s  %10.2f  confirmed %s (+%d bars)\n",
				p.Date.Format("2006-01-02"), p.Close, p.ConfirmDate.Format("2006-01-02"), p.ConfirmIndex-p.Index)
		}
		fmt.Fprintln(w)
	}

	if len(rep.Cycles) > 0 {
		heading.Fprintln(w, "Epoch cycles")
		for _, c := range rep.Cycles {
			if c.CyclePeak == nil {
				muted.Fprintf(w, "  %-12s %s\n", c.Epoch.Name, c.Note)
				continue
			}
			fmt.Fprintf(w, "  %-12s peak %s %.2f", c.Epoch.Name, c.CyclePeak.Date.Format("2006-01-02"), c.CyclePeak.Close)
			if c.CycleTrough != nil {
				fmt.Fprintf(w, "  trough %s %.2f", c.CycleTrough.Date.Format("2006-01-02"), c.CycleTrough.Close)
			}
			if v, ok := c.Drawdown.Get(); ok {
				bad.Fprintf(w, "  ratio %.3f", v)
			}
			if c.Reclaim != nil {
				good.Fprintf(w, "  reclaimed %s", c.Reclaim.Date.Format("2006-01-02"))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	if bt := rep.Backtest; bt != nil {
		heading.Fprintln(w, "Backtest")
		printStats(w, bt.Stats)
		fmt.Fprintf(w, "  buy&hold %s  exposure %.1f%%\n\n", pct(bt.BuyAndHold), bt.Exposure*100)
	}

	if wf := rep.WalkForward; wf != nil {
		agg := wf.Aggregate
		heading.Fprintln(w, "Walk-forward")
		fmt.Fprintf(w, "  windows %d (chosen %d)  grid %d  evaluations %d  discarded %d\n",
			agg.Windows, agg.ChosenWindows, agg.GridSize, agg.Evaluations, agg.DiscardedTotal)
		for _, win := range wf.Windows {
			if win.Degenerate() {
				muted.Fprintf(w, "  #%-3d %s  degenerate\n", win.Number, win.TestRange.StartDate.Format("2006-01-02"))
				continue
			}
			fmt.Fprintf(w, "  #%-3d %s  %s  ", win.Number, win.TestRange.StartDate.Format("2006-01-02"), win.ChosenParams)
			equity(w, win.TestStats.EndingEquity)
			fmt.Fprintln(w)
		}
		printStats(w, agg.Stats)
		fmt.Fprintln(w)
	}
}

func printStats(w io.Writer, s reclaim.Stats) {
	fmt.Fprintf(w, "  trades %d  win rate %.1f%%  equity ", s.TradeCount, s.WinRate*100)
	equity(w, s.EndingEquity)
	fmt.Fprintf(w, "  max dd %.2f%%  pf ", s.MaxDrawdown*100)
	if s.ProfitFactor == nil {
		fmt.Fprint(w, "n/a")
	} else {
		fmt.Fprintf(w, "%.2f", *s.ProfitFactor)
	}
	fmt.Fprintf(w, "  avg bars %.1f\n", s.AvgBarsHeld)
}

func equity(w io.Writer, v float64) {
	c := good
	if v < 1 {
		c = bad
	}
	c.Fprintf(w, "%.4f", v)
}

func num(n series.Num, format string) string {
	v, ok := n.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func pct(n series.Num) string {
	v, ok := n.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}
