package series

import (
	"time"

	"github.com/sawpanic/pivotscope/internal/domain/indicators"
)

// Num is an optional float; see indicators.Num
type Num = indicators.Num

// PriceRow is one daily observation supplied by the history provider.
// Rows arrive sorted ascending by date with unique dates.
type PriceRow struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Config holds the volatility-adaptive width parameters
type Config struct {
	VolLookback int     `json:"vol_lookback" yaml:"vol_lookback"`
	KZ          float64 `json:"k_z" yaml:"k_z"`
	MinZ        float64 `json:"min_z" yaml:"min_z"`
	MaxZ        float64 `json:"max_z" yaml:"max_z"`
	KS          float64 `json:"k_s" yaml:"k_s"`
	BS          float64 `json:"b_s" yaml:"b_s"`
	MinS        float64 `json:"min_s" yaml:"min_s"`
	MaxS        float64 `json:"max_s" yaml:"max_s"`
	MAPeriod    int     `json:"ma_period" yaml:"ma_period"`
}

// DefaultConfig returns widths tuned for daily equity index data
func DefaultConfig() Config {
	return Config{
		VolLookback: 20,
		KZ:          3.0,
		MinZ:        0.05,
		MaxZ:        0.20,
		KS:          2.5,
		BS:          0.02,
		MinS:        0.04,
		MaxS:        0.15,
		MAPeriod:    200,
	}
}

// Series holds index-aligned arrays derived from a row list. It is built once
// and never mutated.
type Series struct {
	Dates             []time.Time `json:"dates"`
	Closes            []Num       `json:"closes"`
	LogReturns        []Num       `json:"log_returns"`
	RollingVolatility []Num       `json:"rolling_volatility"`
	ZigzagPct         []Num       `json:"zigzag_pct"`
	TrailingStopPct   []Num       `json:"trailing_stop_pct"`
	MovingAverage     []Num       `json:"moving_average"`
	Config            Config      `json:"config"`
}

// Build derives a Series from rows. Unusable closes become missing slots and
// everything computed from them stays missing.
func Build(rows []PriceRow, cfg Config) *Series {
	n := len(rows)
	dates := make([]time.Time, n)
	raw := make([]float64, n)
	for i, r := range rows {
		dates[i] = r.Date
		raw[i] = r.Close
	}

	closes := indicators.Prices(raw)
	returns := indicators.LogReturns(closes)

	// returns[0] is never defined, so the first full window ends at VolLookback
	vol := make([]Num, n)
	if n > 1 {
		copy(vol[1:], indicators.RollingStdDev(returns[1:], cfg.VolLookback))
	}

	zigzag := make([]Num, n)
	stop := make([]Num, n)
	for i, v := range vol {
		sigma, ok := v.Get()
		if !ok {
			continue
		}
		zigzag[i] = indicators.Some(indicators.Clamp(cfg.KZ*sigma, cfg.MinZ, cfg.MaxZ))
		stop[i] = indicators.Some(indicators.Clamp(cfg.KS*sigma+cfg.BS, cfg.MinS, cfg.MaxS))
	}

	return &Series{
		Dates:             dates,
		Closes:            closes,
		LogReturns:        returns,
		RollingVolatility: vol,
		ZigzagPct:         zigzag,
		TrailingStopPct:   stop,
		MovingAverage:     indicators.SMA(closes, cfg.MAPeriod),
		Config:            cfg,
	}
}

// Len returns the number of bars
func (s *Series) Len() int {
	return len(s.Closes)
}

// Close returns the close at i, missing when i is out of range
func (s *Series) Close(i int) Num {
	if i < 0 || i >= len(s.Closes) {
		return indicators.Missing
	}
	return s.Closes[i]
}

// Date returns the date at i, the zero time when i is out of range
func (s *Series) Date(i int) time.Time {
	if i < 0 || i >= len(s.Dates) {
		return time.Time{}
	}
	return s.Dates[i]
}

// At returns slot i of values, missing when i is out of range
func At(values []Num, i int) Num {
	if i < 0 || i >= len(values) {
		return indicators.Missing
	}
	return values[i]
}

// VolatilityMedian returns the median of the finite rolling volatility values
// in the half-open bar range [start, end).
func (s *Series) VolatilityMedian(start, end int) Num {
	if start < 0 {
		start = 0
	}
	if end > len(s.RollingVolatility) {
		end = len(s.RollingVolatility)
	}
	if start >= end {
		return indicators.Missing
	}
	return indicators.Median(s.RollingVolatility[start:end])
}
