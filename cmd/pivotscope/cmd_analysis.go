package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/pivotscope/internal/application/analysis"
	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/config"
	plog "github.com/sawpanic/pivotscope/internal/log"
	"github.com/sawpanic/pivotscope/internal/report"
)

// runFunc is one analysis operation of the runner
type runFunc func(*analysis.Runner, context.Context) (*report.Report, error)

func newSeriesCmd(flags *globalFlags) *cobra.Command {
	return analysisCmd(flags, &cobra.Command{
		Use:   "series",
		Short: "Build the indicator series and show the latest bar",
	}, (*analysis.Runner).Series, nil)
}

func newPivotsCmd(flags *globalFlags) *cobra.Command {
	var zigzag float64
	cmd := &cobra.Command{
		Use:   "pivots",
		Short: "Detect causally confirmed zigzag pivots",
	}
	cmd.Flags().Float64Var(&zigzag, "zigzag", 0, "Fixed zigzag width instead of the dynamic one (e.g. 0.10)")

	return analysisCmd(flags, cmd, (*analysis.Runner).Pivots, func(cfg *config.Config, fs *pflag.FlagSet) {
		if fs.Changed("zigzag") {
			cfg.Strategy.FixedZigzagPct = &zigzag
		}
	})
}

func newCyclesCmd(flags *globalFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Measure peak, trough and reclaim per configured epoch",
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Search troughs from the peak confirmation bar")

	return analysisCmd(flags, cmd, (*analysis.Runner).Cycles, func(cfg *config.Config, fs *pflag.FlagSet) {
		if fs.Changed("strict") {
			cfg.Cycles.StrictCausal = strict
		}
	})
}

func newBacktestCmd(flags *globalFlags) *cobra.Command {
	var (
		zigzag, stop float64
		cooldown     int
		gate         string
		trend        bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest the peak-reclaim strategy over the whole history",
	}
	fs := cmd.Flags()
	fs.Float64Var(&zigzag, "zigzag", 0, "Fixed zigzag width")
	fs.Float64Var(&stop, "stop", 0, "Fixed trailing stop width")
	fs.IntVar(&cooldown, "cooldown", 0, "Bars to wait after an exit")
	fs.StringVar(&gate, "vol-gate", "", "Volatility gate mode (none|median)")
	fs.BoolVar(&trend, "trend-filter", true, "Require close above the moving average")

	return analysisCmd(flags, cmd, (*analysis.Runner).Backtest, func(cfg *config.Config, fs *pflag.FlagSet) {
		if fs.Changed("zigzag") {
			cfg.Strategy.FixedZigzagPct = &zigzag
		}
		if fs.Changed("stop") {
			cfg.Strategy.FixedTrailingStopPct = &stop
		}
		if fs.Changed("cooldown") {
			cfg.Strategy.CooldownBars = cooldown
		}
		if fs.Changed("vol-gate") {
			cfg.Strategy.VolGateMode = reclaimGate(gate)
		}
		if fs.Changed("trend-filter") {
			cfg.Strategy.UseTrendFilter = trend
		}
	})
}

func newWalkForwardCmd(flags *globalFlags) *cobra.Command {
	var train, test, step, workers int
	cmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Run the rolling train/test grid optimization",
	}
	fs := cmd.Flags()
	fs.IntVar(&train, "train", 0, "Train window in bars")
	fs.IntVar(&test, "test", 0, "Test window in bars")
	fs.IntVar(&step, "step", 0, "Window stride in bars (0 steps by the test window)")
	fs.IntVar(&workers, "workers", 0, "Parallel grid workers (0 uses GOMAXPROCS)")

	return analysisCmd(flags, cmd, (*analysis.Runner).WalkForward, func(cfg *config.Config, fs *pflag.FlagSet) {
		if fs.Changed("train") {
			cfg.WalkForward.TrainBars = train
		}
		if fs.Changed("test") {
			cfg.WalkForward.TestBars = test
		}
		if fs.Changed("step") {
			cfg.WalkForward.StepBars = step
		}
		if fs.Changed("workers") {
			cfg.WalkForward.Workers = workers
		}
	})
}

// analysisCmd attaches the shared load, run, report and metrics flow to cmd
func analysisCmd(flags *globalFlags, cmd *cobra.Command, run runFunc, override func(*config.Config, *pflag.FlagSet)) *cobra.Command {
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := requireHistory(flags); err != nil {
			return err
		}

		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}
		if override != nil {
			override(cfg, cmd.Flags())
		}

		var opts []analysis.Option
		if plog.IsTerminal(os.Stderr) && !flags.jsonOut {
			opts = append(opts, analysis.WithProgress(os.Stderr))
		}

		runner, err := analysis.NewRunner(cfg, analysis.NewFileDataProvider(flags.historyPath), opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		rep, err := run(runner, ctx)
		if err != nil {
			return fmt.Errorf("%s failed: %w", cmd.Name(), err)
		}

		if flags.outDir != "" {
			dir, err := report.NewWriter(flags.outDir).Write(rep)
			if err != nil {
				return err
			}
			log.Info().Str("dir", dir).Msg("Report artifacts written")
		}

		if flags.metricsFile != "" {
			if err := runner.Metrics().WriteTextfile(flags.metricsFile); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if flags.jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		printSummary(out, rep)
		return nil
	}
	return cmd
}

// loadConfig reads the config file, applies logging overrides and sets up
// the global logger
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if err := plog.Setup(plog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return nil, err
	}

	return cfg, nil
}

func reclaimGate(mode string) reclaim.VolGateMode {
	return reclaim.VolGateMode(strings.ToLower(strings.TrimSpace(mode)))
}
