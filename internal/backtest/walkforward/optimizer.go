package walkforward

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/domain/indicators"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// Config represents walk-forward optimization configuration
type Config struct {
	Strategy           reclaim.Config `json:"-" yaml:"-"` // grid base
	TrainBars          int            `json:"train_bars" yaml:"train_bars"`
	TestBars           int            `json:"test_bars" yaml:"test_bars"`
	StepBars           int            `json:"step_bars" yaml:"step_bars"` // 0 steps by TestBars
	Grid               Grid           `json:"grid" yaml:"grid"`
	MaxAllowedDrawdown float64        `json:"max_allowed_drawdown" yaml:"max_allowed_drawdown"` // floor, e.g. -0.25
	MinTradesTrain     int            `json:"min_trades_train" yaml:"min_trades_train"`
	Workers            int            `json:"workers" yaml:"workers"` // 0 uses GOMAXPROCS
}

// Plan is the bar layout of one walk-forward window
type Plan struct {
	Number int           `json:"number"`
	Train  reclaim.Range `json:"train"`
	Test   reclaim.Range `json:"test"`
}

// Window is the outcome of one walk-forward window
type Window struct {
	Number       int             `json:"number"`
	TrainRange   reclaim.Range   `json:"train_range"`
	TestRange    reclaim.Range   `json:"test_range"`
	ChosenParams *Params         `json:"chosen_params"`
	TrainStats   *reclaim.Stats  `json:"train_stats"`
	TestStats    reclaim.Stats   `json:"test_stats"`
	TestTrades   []reclaim.Trade `json:"test_trades"`
	VolBaseline  series.Num      `json:"vol_baseline"`
	VolThreshold series.Num      `json:"vol_threshold"`
	Evaluated    int             `json:"evaluated"`
	Discarded    int             `json:"discarded"`
}

// Degenerate reports whether no combination survived the constraints
func (w Window) Degenerate() bool {
	return w.ChosenParams == nil
}

// Aggregate is the out-of-sample result stitched across windows
type Aggregate struct {
	Trades         []reclaim.Trade `json:"trades"`
	Stats          reclaim.Stats   `json:"stats"`
	Windows        int             `json:"windows"`
	ChosenWindows  int             `json:"chosen_windows"`
	GridSize       int             `json:"grid_size"`
	Evaluations    int             `json:"evaluations"`
	DiscardedTotal int             `json:"discarded_total"`
}

// Result represents a complete walk-forward run
type Result struct {
	Windows   []Window  `json:"windows"`
	Aggregate Aggregate `json:"aggregate"`
}

// Optimizer runs walk-forward windows over one series. The pivot lists for
// every zigzag width in the grid are detected once up front and shared
// read-only by all backtests.
type Optimizer struct {
	series *series.Series
	config Config
	combos []Params
	pivots map[float64][]pivots.Pivot
	dynam  []pivots.Pivot
}

// NewOptimizer creates a new optimizer
func NewOptimizer(s *series.Series, cfg Config) *Optimizer {
	o := &Optimizer{
		series: s,
		config: cfg,
		combos: cfg.Grid.Combinations(cfg.Strategy),
		pivots: make(map[float64][]pivots.Pivot),
	}

	for _, p := range o.combos {
		if p.ZigzagPct == nil {
			if o.dynam == nil {
				o.dynam = pivots.DetectSeries(s, nil)
			}
			continue
		}
		if _, ok := o.pivots[*p.ZigzagPct]; !ok {
			o.pivots[*p.ZigzagPct] = pivots.DetectSeries(s, p.ZigzagPct)
		}
	}

	return o
}

// GridSize returns the number of parameter combinations per window
func (o *Optimizer) GridSize() int {
	return len(o.combos)
}

// Plan lays out the windows. The first train window starts at
// MinBarsForIndicators; windows continue while train and test fit.
func (o *Optimizer) Plan() []Plan {
	cfg := o.config
	if cfg.TrainBars <= 0 || cfg.TestBars <= 0 {
		return nil
	}
	step := cfg.StepBars
	if step <= 0 {
		step = cfg.TestBars
	}

	n := o.series.Len()
	plans := make([]Plan, 0)
	for trainStart := max(cfg.Strategy.MinBarsForIndicators, 0); trainStart+cfg.TrainBars+cfg.TestBars <= n; trainStart += step {
		testStart := trainStart + cfg.TrainBars
		plans = append(plans, Plan{
			Number: len(plans) + 1,
			Train:  reclaim.NewRange(o.series, trainStart, testStart),
			Test:   reclaim.NewRange(o.series, testStart, testStart+cfg.TestBars),
		})
	}
	return plans
}

type outcome struct {
	stats reclaim.Stats
	ok    bool
}

// EvaluateWindow grid-searches the train range, then replays the winner on
// the test range with the same volatility baseline.
func (o *Optimizer) EvaluateWindow(p Plan) Window {
	w := Window{
		Number:     p.Number,
		TrainRange: p.Train,
		TestRange:  p.Test,
		TestTrades: make([]reclaim.Trade, 0),
	}
	w.VolBaseline = o.series.VolatilityMedian(p.Train.Start, p.Train.End)

	outcomes := make([]outcome, len(o.combos))
	var g errgroup.Group
	g.SetLimit(o.workers())
	for k, params := range o.combos {
		g.Go(func() error {
			res := o.backtest(params, w.VolBaseline, p.Train)
			outcomes[k] = outcome{stats: res.Stats, ok: o.admissible(res.Stats)}
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for k, out := range outcomes {
		if !out.ok {
			w.Discarded++
			continue
		}
		if best < 0 || out.stats.EndingEquity > outcomes[best].stats.EndingEquity {
			best = k
		}
	}
	w.Evaluated = len(outcomes)

	if best < 0 {
		w.TestStats = reclaim.ComputeStats(nil)
		return w
	}

	chosen := o.combos[best]
	trainStats := outcomes[best].stats
	w.ChosenParams = &chosen
	w.TrainStats = &trainStats

	test := o.backtest(chosen, w.VolBaseline, p.Test)
	w.TestStats = test.Stats
	w.TestTrades = test.Trades

	if base, ok := w.VolBaseline.Get(); ok && chosen.VolGateMode == reclaim.VolGateMedian {
		w.VolThreshold = indicators.Some(base * chosen.VolGateMultiplier)
	}

	return w
}

// Run evaluates every planned window in order and aggregates the
// out-of-sample trades.
func (o *Optimizer) Run() *Result {
	plans := o.Plan()
	windows := make([]Window, 0, len(plans))
	for _, p := range plans {
		windows = append(windows, o.EvaluateWindow(p))
	}
	return &Result{
		Windows:   windows,
		Aggregate: o.Aggregate(windows),
	}
}

// Aggregate concatenates the windows' test trades in window order and
// recomputes the statistics over the stitched equity curve.
func (o *Optimizer) Aggregate(windows []Window) Aggregate {
	agg := Aggregate{
		Trades:   make([]reclaim.Trade, 0),
		Windows:  len(windows),
		GridSize: len(o.combos),
	}
	for _, w := range windows {
		agg.Trades = append(agg.Trades, w.TestTrades...)
		agg.Evaluations += w.Evaluated
		agg.DiscardedTotal += w.Discarded
		if !w.Degenerate() {
			agg.ChosenWindows++
		}
	}
	agg.Stats = reclaim.ComputeStats(agg.Trades)
	return agg
}

// Run is a convenience wrapper around NewOptimizer(s, cfg).Run()
func Run(s *series.Series, cfg Config) *Result {
	return NewOptimizer(s, cfg).Run()
}

func (o *Optimizer) backtest(params Params, baseline series.Num, r reclaim.Range) *reclaim.Result {
	cfg := params.Apply(o.config.Strategy)
	cfg.VolBaseline = baseline.Ptr()
	if cfg.VolGateMode == reclaim.VolGateMedian && !baseline.Valid {
		// an absent baseline disables the gate rather than being recomputed on r
		cfg.VolGateMode = reclaim.VolGateNone
	}
	return reclaim.RunRange(o.series, o.pivotsFor(params), cfg, r)
}

func (o *Optimizer) pivotsFor(params Params) []pivots.Pivot {
	if params.ZigzagPct == nil {
		return o.dynam
	}
	return o.pivots[*params.ZigzagPct]
}

func (o *Optimizer) admissible(stats reclaim.Stats) bool {
	if stats.TradeCount < o.config.MinTradesTrain {
		return false
	}
	return stats.MaxDrawdown >= o.config.MaxAllowedDrawdown
}

func (o *Optimizer) workers() int {
	if o.config.Workers > 0 {
		return o.config.Workers
	}
	return runtime.GOMAXPROCS(0)
}
