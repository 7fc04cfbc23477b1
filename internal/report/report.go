package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/backtest/walkforward"
	"github.com/sawpanic/pivotscope/internal/config"
	"github.com/sawpanic/pivotscope/internal/domain/cycles"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// Report is the persisted outcome of one pivotscope run. Sections that the
// command did not compute stay nil.
type Report struct {
	RunID       string              `json:"run_id"`
	Command     string              `json:"command"`
	GeneratedAt time.Time           `json:"generated_at"`
	Source      string              `json:"source"`
	Bars        int                 `json:"bars"`
	MissingBars int                 `json:"missing_bars"`
	FirstDate   time.Time           `json:"first_date"`
	LastDate    time.Time           `json:"last_date"`
	Config      *config.Config      `json:"config,omitempty"`
	Latest      *Latest             `json:"latest,omitempty"`
	Pivots      []pivots.Pivot      `json:"pivots,omitempty"`
	Cycles      []cycles.Result     `json:"cycles,omitempty"`
	Backtest    *reclaim.Result     `json:"backtest,omitempty"`
	WalkForward *walkforward.Result `json:"walkforward,omitempty"`
	Metrics     map[string]float64  `json:"metrics,omitempty"`
}

// Latest holds the indicator values of the final bar
type Latest struct {
	Date             time.Time  `json:"date"`
	Close            series.Num `json:"close"`
	Volatility       series.Num `json:"volatility"`
	VolatilityMedian series.Num `json:"volatility_median"`
	ZigzagPct        series.Num `json:"zigzag_pct"`
	TrailingStopPct  series.Num `json:"trailing_stop_pct"`
	MovingAverage    series.Num `json:"moving_average"`
}

// LatestOf summarizes the final bar of s, or nil for an empty series
func LatestOf(s *series.Series) *Latest {
	n := s.Len()
	if n == 0 {
		return nil
	}
	i := n - 1
	return &Latest{
		Date:             s.Date(i),
		Close:            s.Close(i),
		Volatility:       series.At(s.RollingVolatility, i),
		VolatilityMedian: s.VolatilityMedian(0, n),
		ZigzagPct:        series.At(s.ZigzagPct, i),
		TrailingStopPct:  series.At(s.TrailingStopPct, i),
		MovingAverage:    series.At(s.MovingAverage, i),
	}
}

// New creates a report with a fresh run ID
func New(command, source string) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		Command:     command,
		GeneratedAt: time.Now().UTC(),
		Source:      source,
	}
}

// Trades returns the trades carried by the report, backtest first
func (r *Report) Trades() []reclaim.Trade {
	var trades []reclaim.Trade
	if r.Backtest != nil {
		trades = append(trades, r.Backtest.Trades...)
	}
	if r.WalkForward != nil {
		trades = append(trades, r.WalkForward.Aggregate.Trades...)
	}
	return trades
}
