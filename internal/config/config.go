package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/backtest/walkforward"
	"github.com/sawpanic/pivotscope/internal/domain/cycles"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// Config represents the complete pivotscope configuration
type Config struct {
	Series      series.Config      `json:"series" yaml:"series"`
	Strategy    reclaim.Config     `json:"strategy" yaml:"strategy"`
	Cycles      CycleOptions       `json:"cycles" yaml:"cycles"`
	WalkForward walkforward.Config `json:"walkforward" yaml:"walkforward"`
	Logging     LoggingConfig      `json:"logging" yaml:"logging"`
}

// CycleOptions represents epoch cycle analysis settings
type CycleOptions struct {
	StrictCausal bool           `json:"strict_causal" yaml:"strict_causal"` // search from the confirmation bar
	Epochs       []cycles.Epoch `json:"epochs" yaml:"epochs"`
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // trace|debug|info|warn|error
	Format string `json:"format" yaml:"format"` // auto|console|json
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

// Default returns a complete configuration. Epochs follow the bitcoin
// halving schedule.
func Default() *Config {
	return &Config{
		Series:   series.DefaultConfig(),
		Strategy: reclaim.DefaultConfig(),
		Cycles: CycleOptions{
			Epochs: []cycles.Epoch{
				{Name: "2012-2016", Start: date(2012, time.November, 28), End: datePtr(2016, time.July, 9)},
				{Name: "2016-2020", Start: date(2016, time.July, 9), End: datePtr(2020, time.May, 11)},
				{Name: "2020-2024", Start: date(2020, time.May, 11), End: datePtr(2024, time.April, 20)},
				{Name: "2024-", Start: date(2024, time.April, 20)},
			},
		},
		WalkForward: walkforward.Config{
			TrainBars: 730,
			TestBars:  180,
			Grid: walkforward.Grid{
				ZigzagPct:         []float64{0.08, 0.12, 0.16},
				TrailingStopPct:   []float64{0.08, 0.12, 0.16},
				UseTrendFilter:    []bool{true, false},
				CooldownBars:      []int{0, 5, 10},
				VolGateMode:       []reclaim.VolGateMode{reclaim.VolGateNone, reclaim.VolGateMedian},
				VolGateMultiplier: []float64{1.25, 1.5, 2.0},
			},
			MaxAllowedDrawdown: -0.35,
			MinTradesTrain:     3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load overlays the YAML file at path onto Default
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Problems lists every range or consistency violation in cfg
func (c *Config) Problems() []string {
	var problems []string

	s := c.Series
	if s.VolLookback < 2 {
		problems = append(problems, fmt.Sprintf("series: vol_lookback %d must be at least 2", s.VolLookback))
	}
	if s.MinZ <= 0 || s.MinZ > s.MaxZ {
		problems = append(problems, fmt.Sprintf("series: zigzag bounds [%.4f, %.4f] invalid", s.MinZ, s.MaxZ))
	}
	if s.MinS <= 0 || s.MinS > s.MaxS {
		problems = append(problems, fmt.Sprintf("series: stop bounds [%.4f, %.4f] invalid", s.MinS, s.MaxS))
	}
	if s.KZ < 0 || s.KS < 0 {
		problems = append(problems, "series: k_z and k_s must not be negative")
	}
	if s.MAPeriod < 1 {
		problems = append(problems, fmt.Sprintf("series: ma_period %d must be positive", s.MAPeriod))
	}

	st := c.Strategy
	if st.VolGateMode != reclaim.VolGateNone && st.VolGateMode != reclaim.VolGateMedian {
		problems = append(problems, fmt.Sprintf("strategy: vol_gate_mode %q not one of none|median", string(st.VolGateMode)))
	}
	if st.CooldownBars < 0 {
		problems = append(problems, fmt.Sprintf("strategy: cooldown_bars %d is negative", st.CooldownBars))
	}
	if st.MinBarsForIndicators < 0 {
		problems = append(problems, fmt.Sprintf("strategy: min_bars_for_indicators %d is negative", st.MinBarsForIndicators))
	}
	if st.CostBpsRoundTrip < 0 {
		problems = append(problems, fmt.Sprintf("strategy: cost_bps_round_trip %.2f is negative", st.CostBpsRoundTrip))
	}
	if st.RiskPerTrade <= 0 || st.RiskPerTrade > 1 {
		problems = append(problems, fmt.Sprintf("strategy: risk_per_trade %.4f outside (0, 1]", st.RiskPerTrade))
	}
	if st.MaxPositionFraction <= 0 || st.MaxPositionFraction > 1 {
		problems = append(problems, fmt.Sprintf("strategy: max_position_fraction %.4f outside (0, 1]", st.MaxPositionFraction))
	}

	for i, e := range c.Cycles.Epochs {
		if e.Name == "" {
			problems = append(problems, fmt.Sprintf("cycles: epoch %d has no name", i))
		}
		if e.End != nil && !e.End.After(e.Start) {
			problems = append(problems, fmt.Sprintf("cycles: epoch %q ends before it starts", e.Name))
		}
	}

	wf := c.WalkForward
	if wf.TrainBars <= 0 || wf.TestBars <= 0 {
		problems = append(problems, fmt.Sprintf("walkforward: train_bars %d and test_bars %d must be positive", wf.TrainBars, wf.TestBars))
	}
	if wf.StepBars < 0 {
		problems = append(problems, fmt.Sprintf("walkforward: step_bars %d is negative", wf.StepBars))
	}
	if wf.MaxAllowedDrawdown > 0 || wf.MaxAllowedDrawdown < -1 {
		problems = append(problems, fmt.Sprintf("walkforward: max_allowed_drawdown %.2f outside [-1, 0]", wf.MaxAllowedDrawdown))
	}
	if wf.Workers < 0 {
		problems = append(problems, fmt.Sprintf("walkforward: workers %d is negative", wf.Workers))
	}
	for _, p := range wf.Grid.Validate() {
		problems = append(problems, "walkforward: grid "+p)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "auto", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging: format %q not one of auto|console|json", c.Logging.Format))
	}

	return problems
}

// Validate joins Problems into a single error
func (c *Config) Validate() error {
	problems := c.Problems()
	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid config: " + strings.Join(problems, "; "))
}

// SeriesConfig returns the series builder parameters
func (c *Config) SeriesConfig() series.Config {
	return c.Series
}

// StrategyConfig returns the backtest parameters
func (c *Config) StrategyConfig() reclaim.Config {
	return c.Strategy
}

// CyclesConfig returns the cycle analysis parameters, sharing the strategy
// warmup
func (c *Config) CyclesConfig() cycles.Config {
	return cycles.Config{
		MinBarsForIndicators: c.Strategy.MinBarsForIndicators,
		StrictCausal:         c.Cycles.StrictCausal,
	}
}

// WalkForwardConfig returns the optimizer parameters with the strategy as
// the grid base
func (c *Config) WalkForwardConfig() walkforward.Config {
	wf := c.WalkForward
	wf.Strategy = c.Strategy
	return wf
}
