package analysis

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/backtest/walkforward"
	"github.com/sawpanic/pivotscope/internal/config"
	"github.com/sawpanic/pivotscope/internal/domain/cycles"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
	plog "github.com/sawpanic/pivotscope/internal/log"
	"github.com/sawpanic/pivotscope/internal/metrics"
	"github.com/sawpanic/pivotscope/internal/report"
)

// Runner wires configuration, history and the analysis core into reports
type Runner struct {
	config   *config.Config
	provider DataProvider
	metrics  *metrics.Registry
	progress io.Writer
}

// Option customizes a Runner
type Option func(*Runner)

// WithMetrics records run metrics into reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = reg }
}

// WithProgress draws walk-forward progress on w
func WithProgress(w io.Writer) Option {
	return func(r *Runner) { r.progress = w }
}

// NewRunner creates a runner. The configuration is validated up front.
func NewRunner(cfg *config.Config, provider DataProvider, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		config:   cfg,
		provider: provider,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.NewRegistry()
	}
	return r, nil
}

// Metrics returns the registry the runner records into
func (r *Runner) Metrics() *metrics.Registry {
	return r.metrics
}

// Series builds the indicator series and reports the latest bar
func (r *Runner) Series(ctx context.Context) (*report.Report, error) {
	rep, s, err := r.load(ctx, "series")
	if err != nil {
		return nil, err
	}
	rep.Latest = report.LatestOf(s)
	return r.finish(rep), nil
}

// Pivots detects confirmed pivots over the whole history
func (r *Runner) Pivots(ctx context.Context) (*report.Report, error) {
	rep, s, err := r.load(ctx, "pivots")
	if err != nil {
		return nil, err
	}

	rep.Latest = report.LatestOf(s)
	rep.Pivots = r.detect(s, r.config.Strategy.FixedZigzagPct)

	return r.finish(rep), nil
}

// Cycles analyzes every configured epoch
func (r *Runner) Cycles(ctx context.Context) (*report.Report, error) {
	rep, s, err := r.load(ctx, "cycles")
	if err != nil {
		return nil, err
	}

	pvts := r.detect(s, r.config.Strategy.FixedZigzagPct)

	timer := r.metrics.StartStage("cycles")
	rep.Cycles = cycles.Analyze(s, pvts, r.config.Cycles.Epochs, r.config.CyclesConfig())
	elapsed := timer.Stop("ok")

	missing := 0
	for _, c := range rep.Cycles {
		if c.CyclePeak == nil {
			missing++
			log.Warn().Str("epoch", c.Epoch.Name).Msg(c.Note)
		}
	}
	log.Info().
		Int("epochs", len(rep.Cycles)).
		Int("without_peak", missing).
		Dur("elapsed", elapsed).
		Msg("Cycle analysis completed")

	return r.finish(rep), nil
}

// Backtest runs the strategy once over the whole history
func (r *Runner) Backtest(ctx context.Context) (*report.Report, error) {
	rep, s, err := r.load(ctx, "backtest")
	if err != nil {
		return nil, err
	}

	cfg := r.config.StrategyConfig()
	pvts := r.detect(s, cfg.FixedZigzagPct)

	timer := r.metrics.StartStage("backtest")
	res := reclaim.RunRange(s, pvts, cfg, reclaim.NewRange(s, 0, s.Len()))
	elapsed := timer.Stop("ok")

	r.metrics.RecordBacktest(res)
	rep.Backtest = res

	log.Info().
		Int("trades", res.Stats.TradeCount).
		Float64("ending_equity", res.Stats.EndingEquity).
		Float64("max_drawdown", res.Stats.MaxDrawdown).
		Float64("exposure", res.Exposure).
		Dur("elapsed", elapsed).
		Msg("Backtest completed")

	return r.finish(rep), nil
}

// WalkForward runs the rolling optimization. Windows are evaluated in
// order; ctx is checked between windows.
func (r *Runner) WalkForward(ctx context.Context) (*report.Report, error) {
	rep, s, err := r.load(ctx, "walkforward")
	if err != nil {
		return nil, err
	}

	cfg := r.config.WalkForwardConfig()
	timer := r.metrics.StartStage("walkforward")

	opt := walkforward.NewOptimizer(s, cfg)
	plans := opt.Plan()
	log.Info().
		Int("windows", len(plans)).
		Int("grid_size", opt.GridSize()).
		Str("grid", cfg.Grid.Describe(cfg.Strategy)).
		Msg("Walk-forward planned")

	progress := plog.NewProgress("walkforward", len(plans), r.progress)
	windows := make([]walkforward.Window, 0, len(plans))
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			timer.Stop("canceled")
			return nil, fmt.Errorf("walk-forward canceled after %d windows: %w", len(windows), err)
		}

		w := opt.EvaluateWindow(p)
		windows = append(windows, w)
		r.metrics.RecordWindow(w)

		chosen := "degenerate"
		if w.ChosenParams != nil {
			chosen = w.ChosenParams.String()
		}
		log.Debug().
			Int("window", w.Number).
			Int("discarded", w.Discarded).
			Int("test_trades", w.TestStats.TradeCount).
			Float64("test_equity", w.TestStats.EndingEquity).
			Str("chosen", chosen).
			Msg("Window evaluated")
		progress.Step(fmt.Sprintf("window %d", w.Number))
	}
	progress.Finish()

	res := &walkforward.Result{
		Windows:   windows,
		Aggregate: opt.Aggregate(windows),
	}
	elapsed := timer.Stop("ok")
	r.metrics.RecordAggregate(res.Aggregate)
	rep.WalkForward = res

	log.Info().
		Int("windows", res.Aggregate.Windows).
		Int("chosen_windows", res.Aggregate.ChosenWindows).
		Int("trades", res.Aggregate.Stats.TradeCount).
		Float64("ending_equity", res.Aggregate.Stats.EndingEquity).
		Dur("elapsed", elapsed).
		Msg("Walk-forward completed")

	return r.finish(rep), nil
}

// load reads history, builds the series and starts the report
func (r *Runner) load(ctx context.Context, command string) (*report.Report, *series.Series, error) {
	log.Info().Str("command", command).Str("source", r.provider.Source()).Msg("Starting analysis run")

	timer := r.metrics.StartStage("load")
	rows, err := r.provider.LoadHistory(ctx)
	if err != nil {
		timer.Stop("error")
		return nil, nil, err
	}
	timer.Stop("ok")

	timer = r.metrics.StartStage("series")
	s := series.Build(rows, r.config.SeriesConfig())
	timer.Stop("ok")
	r.metrics.RecordSeries(s)

	rep := report.New(command, r.provider.Source())
	rep.Config = r.config
	rep.Bars = s.Len()
	for _, c := range s.Closes {
		if !c.Valid {
			rep.MissingBars++
		}
	}
	rep.FirstDate = s.Date(0)
	rep.LastDate = s.Date(s.Len() - 1)

	log.Info().
		Int("bars", rep.Bars).
		Int("missing", rep.MissingBars).
		Time("first", rep.FirstDate).
		Time("last", rep.LastDate).
		Msg("History loaded")

	if rep.Bars <= r.config.Strategy.MinBarsForIndicators {
		log.Warn().
			Int("bars", rep.Bars).
			Int("min_bars_for_indicators", r.config.Strategy.MinBarsForIndicators).
			Msg("History shorter than indicator warmup")
	}

	return rep, s, nil
}

func (r *Runner) detect(s *series.Series, fixed *float64) []pivots.Pivot {
	timer := r.metrics.StartStage("pivots")
	pvts := pivots.DetectSeries(s, fixed)
	elapsed := timer.Stop("ok")
	r.metrics.RecordPivots(pvts)

	log.Info().
		Int("pivots", len(pvts)).
		Int("peaks", len(pivots.Peaks(pvts))).
		Bool("fixed_width", fixed != nil).
		Dur("elapsed", elapsed).
		Msg("Pivots detected")

	return pvts
}

func (r *Runner) finish(rep *report.Report) *report.Report {
	snap, err := r.metrics.Snapshot()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to snapshot metrics")
		return rep
	}
	rep.Metrics = snap
	return rep
}
