package metrics

import (
	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/backtest/walkforward"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// RecordSeries sets the bar gauges for s
func (r *Registry) RecordSeries(s *series.Series) {
	missing := 0
	for _, c := range s.Closes {
		if !c.Valid {
			missing++
		}
	}
	r.BarsLoaded.Set(float64(s.Len()))
	r.MissingBars.Set(float64(missing))
}

// RecordPivots counts confirmed pivots by type
func (r *Registry) RecordPivots(pvts []pivots.Pivot) {
	for _, p := range pvts {
		r.PivotsDetected.WithLabelValues(string(p.Type)).Inc()
	}
}

// RecordTrades counts closed trades by exit reason under source
func (r *Registry) RecordTrades(source string, trades []reclaim.Trade) {
	for _, t := range trades {
		r.TradesProduced.WithLabelValues(source, t.ExitReason.String()).Inc()
	}
}

// RecordBacktest counts one standalone backtest and its trades
func (r *Registry) RecordBacktest(res *reclaim.Result) {
	r.BacktestsRun.Inc()
	r.RecordTrades("backtest", res.Trades)
}

// RecordWindow counts one walk-forward window and its grid evaluations
func (r *Registry) RecordWindow(w walkforward.Window) {
	outcome := "chosen"
	if w.Degenerate() {
		outcome = "degenerate"
	}
	r.Windows.WithLabelValues(outcome).Inc()
	r.CombosEvaluated.Add(float64(w.Evaluated))
	r.CombosDiscarded.Add(float64(w.Discarded))
	r.RecordTrades("walkforward", w.TestTrades)
}

// RecordAggregate sets the stitched out-of-sample equity
func (r *Registry) RecordAggregate(agg walkforward.Aggregate) {
	r.OutOfSampleEquity.Set(agg.Stats.EndingEquity)
}
