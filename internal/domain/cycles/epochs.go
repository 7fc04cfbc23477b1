package cycles

import (
	"time"

	"github.com/sawpanic/pivotscope/internal/domain/indicators"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// NoPeakNote is reported for epochs that contain no confirmed peak pivot
const NoPeakNote = "no confirmed peak pivot in epoch"

// Epoch is a caller-defined date range [Start, End). A nil End is open-ended.
type Epoch struct {
	Name  string     `json:"name" yaml:"name"`
	Start time.Time  `json:"start" yaml:"start"`
	End   *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

// Contains reports whether t falls inside the epoch
func (e Epoch) Contains(t time.Time) bool {
	if t.Before(e.Start) {
		return false
	}
	return e.End == nil || t.Before(*e.End)
}

// Config controls cycle analysis
type Config struct {
	MinBarsForIndicators int  `json:"min_bars_for_indicators" yaml:"min_bars_for_indicators"`
	StrictCausal         bool `json:"strict_causal" yaml:"strict_causal"`
}

// Bar identifies one bar of the series
type Bar struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Result describes the peak, drawdown and recovery of one epoch
type Result struct {
	Epoch         Epoch         `json:"epoch"`
	CyclePeak     *pivots.Pivot `json:"cycle_peak"`
	Reclaim       *Bar          `json:"reclaim"`
	CycleTrough   *Bar          `json:"cycle_trough"`
	Drawdown      series.Num    `json:"drawdown"`
	BarsToTrough  *int          `json:"bars_to_trough"`
	BarsToReclaim *int          `json:"bars_to_reclaim"`
	Note          string        `json:"note,omitempty"`
}

// Analyze computes one Result per epoch, in epoch order
func Analyze(s *series.Series, pvts []pivots.Pivot, epochs []Epoch, cfg Config) []Result {
	results := make([]Result, 0, len(epochs))
	for _, e := range epochs {
		results = append(results, analyzeEpoch(s, pvts, e, cfg))
	}
	return results
}

func analyzeEpoch(s *series.Series, pvts []pivots.Pivot, e Epoch, cfg Config) Result {
	res := Result{Epoch: e}

	var peak *pivots.Pivot
	for i := range pvts {
		p := pvts[i]
		if p.Type != pivots.Peak || p.Index < cfg.MinBarsForIndicators || !e.Contains(p.Date) {
			continue
		}
		if peak == nil || p.Close > peak.Close {
			peak = &p
		}
	}
	if peak == nil {
		res.Note = NoPeakNote
		return res
	}
	res.CyclePeak = peak

	from := peak.Index
	if cfg.StrictCausal {
		from = peak.ConfirmIndex
	}

	end := s.Len()
	for j := from + 1; j < s.Len(); j++ {
		if c, ok := s.Close(j).Get(); ok && c >= peak.Close {
			res.Reclaim = &Bar{Index: j, Date: s.Date(j), Close: c}
			end = j
			break
		}
	}

	for j := from + 1; j < end; j++ {
		c, ok := s.Close(j).Get()
		if !ok {
			continue
		}
		if res.CycleTrough == nil || c < res.CycleTrough.Close {
			res.CycleTrough = &Bar{Index: j, Date: s.Date(j), Close: c}
		}
	}

	if res.CycleTrough != nil {
		res.Drawdown = indicators.Some(res.CycleTrough.Close / peak.Close)
		n := res.CycleTrough.Index - peak.Index
		res.BarsToTrough = &n
	}
	if res.Reclaim != nil {
		n := res.Reclaim.Index - peak.Index
		res.BarsToReclaim = &n
	}

	return res
}
