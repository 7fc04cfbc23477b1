package pivots

import (
	"time"

	"github.com/sawpanic/pivotscope/internal/domain/indicators"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// Type distinguishes peaks from troughs
type Type string

const (
	Peak   Type = "peak"
	Trough Type = "trough"
)

// Pivot is a confirmed local extremum. It cannot be known before
// ConfirmIndex, which is always greater than Index.
type Pivot struct {
	Index        int       `json:"index"`
	Date         time.Time `json:"date"`
	Close        float64   `json:"close"`
	Type         Type      `json:"type"`
	ConfirmIndex int       `json:"confirm_index"`
	ConfirmDate  time.Time `json:"confirm_date"`
	ConfirmClose float64   `json:"confirm_close"`
	PctUsed      float64   `json:"pct_used"`
}

type trend int

const (
	undetermined trend = iota
	trendUp
	trendDown
)

// Detect runs the causal zigzag over closes using the per-bar reversal
// thresholds. Bars with a missing close or threshold are skipped without
// touching the state. Pivots are returned in confirmation order.
func Detect(dates []time.Time, closes, thresholds []series.Num) []Pivot {
	pivots := make([]Pivot, 0)

	state := undetermined
	candIdx := -1
	candPrice := 0.0

	for i := range closes {
		price, ok := closes[i].Get()
		if !ok {
			continue
		}
		th, ok := series.At(thresholds, i).Get()
		if !ok {
			continue
		}

		if candIdx < 0 {
			candIdx, candPrice = i, price
			continue
		}

		move := price/candPrice - 1

		switch state {
		case undetermined:
			switch {
			case move >= th:
				state = trendUp
				candIdx, candPrice = i, price
			case move <= -th:
				state = trendDown
				candIdx, candPrice = i, price
			case price > candPrice:
				// candidate only ratchets upward until a trend is known
				candIdx, candPrice = i, price
			}

		case trendUp:
			if price >= candPrice {
				candIdx, candPrice = i, price
			} else if move <= -th {
				pivots = append(pivots, newPivot(dates, candIdx, candPrice, Peak, i, price, th))
				state = trendDown
				candIdx, candPrice = i, price
			}

		case trendDown:
			if price <= candPrice {
				candIdx, candPrice = i, price
			} else if move >= th {
				pivots = append(pivots, newPivot(dates, candIdx, candPrice, Trough, i, price, th))
				state = trendUp
				candIdx, candPrice = i, price
			}
		}
	}

	return pivots
}

// DetectSeries runs Detect over a Series. A non-nil fixed threshold replaces
// the dynamic zigzag width on every bar.
func DetectSeries(s *series.Series, fixed *float64) []Pivot {
	thresholds := s.ZigzagPct
	if fixed != nil {
		thresholds = Constant(s.Len(), *fixed)
	}
	return Detect(s.Dates, s.Closes, thresholds)
}

// Constant builds a threshold slice holding v on every bar
func Constant(n int, v float64) []series.Num {
	out := make([]series.Num, n)
	for i := range out {
		out[i] = indicators.Some(v)
	}
	return out
}

// Peaks filters pivots down to peaks, preserving order
func Peaks(pivots []Pivot) []Pivot {
	out := make([]Pivot, 0, len(pivots)/2+1)
	for _, p := range pivots {
		if p.Type == Peak {
			out = append(out, p)
		}
	}
	return out
}

func newPivot(dates []time.Time, idx int, price float64, typ Type, confirm int, confirmPrice, th float64) Pivot {
	return Pivot{
		Index:        idx,
		Date:         dateAt(dates, idx),
		Close:        price,
		Type:         typ,
		ConfirmIndex: confirm,
		ConfirmDate:  dateAt(dates, confirm),
		ConfirmClose: confirmPrice,
		PctUsed:      th,
	}
}

func dateAt(dates []time.Time, i int) time.Time {
	if i < 0 || i >= len(dates) {
		return time.Time{}
	}
	return dates[i]
}
