package reclaim

import (
	"time"

	"github.com/sawpanic/pivotscope/internal/domain/series"
	"github.com/sawpanic/pivotscope/internal/exits"
)

// VolGateMode selects the volatility entry gate
type VolGateMode string

const (
	VolGateNone   VolGateMode = "none"
	VolGateMedian VolGateMode = "median"
)

// Config represents the reclaim strategy configuration
type Config struct {
	UseTrendFilter       bool        `json:"use_trend_filter" yaml:"use_trend_filter"`
	CooldownBars         int         `json:"cooldown_bars" yaml:"cooldown_bars"`
	VolGateMode          VolGateMode `json:"vol_gate_mode" yaml:"vol_gate_mode"`
	VolGateMultiplier    float64     `json:"vol_gate_multiplier" yaml:"vol_gate_multiplier"`
	MAPeriod             int         `json:"ma_period" yaml:"ma_period"`                             // 0 uses the series moving average
	MinBarsForIndicators int         `json:"min_bars_for_indicators" yaml:"min_bars_for_indicators"` // warmup bars never traded
	CostBpsRoundTrip     float64     `json:"cost_bps_round_trip" yaml:"cost_bps_round_trip"`
	RiskPerTrade         float64     `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxPositionFraction  float64     `json:"max_position_fraction" yaml:"max_position_fraction"`

	// Constant widths replacing the per-bar dynamic ones for a whole run
	FixedZigzagPct       *float64 `json:"fixed_zigzag_pct,omitempty" yaml:"fixed_zigzag_pct,omitempty"`
	FixedTrailingStopPct *float64 `json:"fixed_trailing_stop_pct,omitempty" yaml:"fixed_trailing_stop_pct,omitempty"`

	// Median volatility baseline for the gate; computed over the run range when nil
	VolBaseline *float64 `json:"vol_baseline,omitempty" yaml:"vol_baseline,omitempty"`
}

// DefaultConfig returns the default strategy configuration
func DefaultConfig() Config {
	return Config{
		UseTrendFilter:       true,
		CooldownBars:         5,
		VolGateMode:          VolGateMedian,
		VolGateMultiplier:    1.5,
		MinBarsForIndicators: 200,
		CostBpsRoundTrip:     10,
		RiskPerTrade:         0.02,
		MaxPositionFraction:  1.0,
	}
}

// Range is a half-open bar range [Start, End)
type Range struct {
	Start     int       `json:"start"`
	End       int       `json:"end"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"` // date of the last bar inside the range
}

// NewRange builds a range over s, clipped to the series bounds
func NewRange(s *series.Series, start, end int) Range {
	if start < 0 {
		start = 0
	}
	if end > s.Len() {
		end = s.Len()
	}
	r := Range{Start: start, End: end}
	if start < end {
		r.StartDate = s.Date(start)
		r.EndDate = s.Date(end - 1)
	}
	return r
}

// Len returns the number of bars in the range
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Trade is one closed long round trip. Trades are immutable once appended.
type Trade struct {
	EntryIndex       int              `json:"entry_index"`
	ExitIndex        int              `json:"exit_index"`
	EntryDate        time.Time        `json:"entry_date"`
	ExitDate         time.Time        `json:"exit_date"`
	EntryPrice       float64          `json:"entry_price"`
	ExitPrice        float64          `json:"exit_price"`
	BarsHeld         int              `json:"bars_held"`
	PositionFraction float64          `json:"position_fraction"`
	PnLFraction      float64          `json:"pnl_fraction"`
	ExitReason       exits.ExitReason `json:"exit_reason"`
}

// Stats summarizes a sequence of trades compounded from equity 1
type Stats struct {
	TradeCount     int      `json:"trade_count"`
	Wins           int      `json:"wins"`
	Losses         int      `json:"losses"`
	WinRate        float64  `json:"win_rate"`
	AvgPnLPerTrade float64  `json:"avg_pnl_per_trade"`
	ProfitFactor   *float64 `json:"profit_factor"` // nil: wins without losses
	AvgBarsHeld    float64  `json:"avg_bars_held"`
	MaxDrawdown    float64  `json:"max_drawdown"`
	EndingEquity   float64  `json:"ending_equity"`
}

// Result represents the output of one backtest pass
type Result struct {
	Range       Range      `json:"range"`
	Trades      []Trade    `json:"trades"`
	Stats       Stats      `json:"stats"`
	VolBaseline series.Num `json:"vol_baseline"`
	BuyAndHold  series.Num `json:"buy_and_hold"` // close-to-close return over the range
	Exposure    float64    `json:"exposure"`     // share of priced bars spent long
}
