package walkforward

import (
	"fmt"
	"iter"
	"strings"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
)

// Params is one point of the parameter grid. Nil widths mean the dynamic
// per-bar widths of the series are used.
type Params struct {
	ZigzagPct         *float64            `json:"zigzag_pct"`
	TrailingStopPct   *float64            `json:"trailing_stop_pct"`
	UseTrendFilter    bool                `json:"use_trend_filter"`
	CooldownBars      int                 `json:"cooldown_bars"`
	VolGateMode       reclaim.VolGateMode `json:"vol_gate_mode"`
	VolGateMultiplier float64             `json:"vol_gate_multiplier"`
}

// Apply returns base with the grid parameters substituted
func (p Params) Apply(base reclaim.Config) reclaim.Config {
	cfg := base
	cfg.FixedZigzagPct = p.ZigzagPct
	cfg.FixedTrailingStopPct = p.TrailingStopPct
	cfg.UseTrendFilter = p.UseTrendFilter
	cfg.CooldownBars = p.CooldownBars
	cfg.VolGateMode = p.VolGateMode
	cfg.VolGateMultiplier = p.VolGateMultiplier
	return cfg
}

func (p Params) String() string {
	width := func(v *float64) string {
		if v == nil {
			return "dyn"
		}
		return fmt.Sprintf("%.4f", *v)
	}
	return fmt.Sprintf("zz=%s stop=%s trend=%t cooldown=%d gate=%s x%.2f",
		width(p.ZigzagPct), width(p.TrailingStopPct), p.UseTrendFilter,
		p.CooldownBars, p.VolGateMode, p.VolGateMultiplier)
}

// Grid lists candidate values per parameter. The search space is the
// cartesian product of the lists; an empty list contributes the single value
// taken from the base strategy configuration.
type Grid struct {
	ZigzagPct         []float64             `json:"zigzag_pct" yaml:"zigzag_pct"`
	TrailingStopPct   []float64             `json:"trailing_stop_pct" yaml:"trailing_stop_pct"`
	UseTrendFilter    []bool                `json:"use_trend_filter" yaml:"use_trend_filter"`
	CooldownBars      []int                 `json:"cooldown_bars" yaml:"cooldown_bars"`
	VolGateMode       []reclaim.VolGateMode `json:"vol_gate_mode" yaml:"vol_gate_mode"`
	VolGateMultiplier []float64             `json:"vol_gate_multiplier" yaml:"vol_gate_multiplier"`
}

// axes resolves every parameter list against base
type axes struct {
	zigzag     []*float64
	stop       []*float64
	trend      []bool
	cooldown   []int
	gate       []reclaim.VolGateMode
	multiplier []float64
}

func (g Grid) resolve(base reclaim.Config) axes {
	return axes{
		zigzag:     widths(g.ZigzagPct, base.FixedZigzagPct),
		stop:       widths(g.TrailingStopPct, base.FixedTrailingStopPct),
		trend:      orDefault(g.UseTrendFilter, base.UseTrendFilter),
		cooldown:   orDefault(g.CooldownBars, base.CooldownBars),
		gate:       orDefault(g.VolGateMode, base.VolGateMode),
		multiplier: orDefault(g.VolGateMultiplier, base.VolGateMultiplier),
	}
}

func (a axes) sizes() []int {
	return []int{len(a.zigzag), len(a.stop), len(a.trend), len(a.cooldown), len(a.gate), len(a.multiplier)}
}

// Size returns the number of combinations in the grid
func (g Grid) Size(base reclaim.Config) int {
	n := 1
	for _, s := range g.resolve(base).sizes() {
		n *= s
	}
	return n
}

// At returns combination k, counting in nested-loop order with the
// volatility multiplier varying fastest.
func (g Grid) At(base reclaim.Config, k int) Params {
	return g.resolve(base).at(k)
}

func (a axes) at(k int) Params {
	sizes := a.sizes()
	idx := make([]int, len(sizes))
	for d := len(sizes) - 1; d >= 0; d-- {
		idx[d] = k % sizes[d]
		k /= sizes[d]
	}
	return Params{
		ZigzagPct:         a.zigzag[idx[0]],
		TrailingStopPct:   a.stop[idx[1]],
		UseTrendFilter:    a.trend[idx[2]],
		CooldownBars:      a.cooldown[idx[3]],
		VolGateMode:       a.gate[idx[4]],
		VolGateMultiplier: a.multiplier[idx[5]],
	}
}

// All yields every combination with its index, in At order
func (g Grid) All(base reclaim.Config) iter.Seq2[int, Params] {
	a := g.resolve(base)
	n := g.Size(base)
	return func(yield func(int, Params) bool) {
		for k := 0; k < n; k++ {
			if !yield(k, a.at(k)) {
				return
			}
		}
	}
}

// Combinations materializes All
func (g Grid) Combinations(base reclaim.Config) []Params {
	out := make([]Params, 0, g.Size(base))
	for _, p := range g.All(base) {
		out = append(out, p)
	}
	return out
}

// Validate reports grid values that can never produce a meaningful run
func (g Grid) Validate() []string {
	var errors []string
	for _, v := range g.ZigzagPct {
		if v <= 0 || v >= 1 {
			errors = append(errors, fmt.Sprintf("zigzag_pct %.4f outside (0, 1)", v))
		}
	}
	for _, v := range g.TrailingStopPct {
		if v <= 0 || v >= 1 {
			errors = append(errors, fmt.Sprintf("trailing_stop_pct %.4f outside (0, 1)", v))
		}
	}
	for _, v := range g.CooldownBars {
		if v < 0 {
			errors = append(errors, fmt.Sprintf("cooldown_bars %d is negative", v))
		}
	}
	for _, v := range g.VolGateMode {
		if v != reclaim.VolGateNone && v != reclaim.VolGateMedian {
			errors = append(errors, fmt.Sprintf("vol_gate_mode %q not one of none|median", string(v)))
		}
	}
	for _, v := range g.VolGateMultiplier {
		if v <= 0 {
			errors = append(errors, fmt.Sprintf("vol_gate_multiplier %.2f must be positive", v))
		}
	}
	return errors
}

// Describe renders the grid axes for logs and reports
func (g Grid) Describe(base reclaim.Config) string {
	sizes := g.resolve(base).sizes()
	names := []string{"zigzag", "stop", "trend", "cooldown", "gate", "multiplier"}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, sizes[i])
	}
	return strings.Join(parts, " ")
}

func widths(values []float64, def *float64) []*float64 {
	if len(values) == 0 {
		return []*float64{def}
	}
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

func orDefault[T any](values []T, def T) []T {
	if len(values) == 0 {
		return []T{def}
	}
	return values
}
