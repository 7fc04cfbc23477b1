package exits

import (
	"fmt"

	"github.com/sawpanic/pivotscope/internal/domain/indicators"
)

// ExitReason represents why a position was closed
type ExitReason int

const (
	NoExit       ExitReason = iota
	TrailingStop            // close fell to or through the trailing stop
	EndOfData               // position still open on the final bar of the run
)

func (er ExitReason) String() string {
	switch er {
	case NoExit:
		return "no_exit"
	case TrailingStop:
		return "trailing_stop"
	case EndOfData:
		return "end_of_data"
	default:
		return "unknown"
	}
}

// MarshalText encodes the reason by name
func (er ExitReason) MarshalText() ([]byte, error) {
	return []byte(er.String()), nil
}

// UnmarshalText decodes a reason name
func (er *ExitReason) UnmarshalText(text []byte) error {
	switch string(text) {
	case "no_exit":
		*er = NoExit
	case "trailing_stop":
		*er = TrailingStop
	case "end_of_data":
		*er = EndOfData
	default:
		return fmt.Errorf("unknown exit reason %q", string(text))
	}
	return nil
}

// Trail tracks a ratcheting trailing stop for one open long position
type Trail struct {
	EntryPrice    float64 `json:"entry_price"`
	EntryStopPct  float64 `json:"entry_stop_pct"`
	HighWaterMark float64 `json:"high_water_mark"`
	StopLevel     float64 `json:"stop_level"`
}

// NewTrail opens a trail at the entry price with the entry stop width
func NewTrail(entryPrice, stopPct float64) *Trail {
	return &Trail{
		EntryPrice:    entryPrice,
		EntryStopPct:  stopPct,
		HighWaterMark: entryPrice,
		StopLevel:     entryPrice * (1 - stopPct),
	}
}

// Evaluate ratchets the high-water mark to price, recomputes the stop level
// with today's width (the entry width when today's is missing) and reports
// whether price is at or below the stop.
func (t *Trail) Evaluate(price float64, todayPct indicators.Num) ExitReason {
	if price > t.HighWaterMark {
		t.HighWaterMark = price
	}
	t.StopLevel = t.HighWaterMark * (1 - todayPct.Or(t.EntryStopPct))

	if price <= t.StopLevel {
		return TrailingStop
	}
	return NoExit
}

// NetReturn is the round-trip return of a long trade after costs in basis points
func NetReturn(entryPrice, exitPrice, costBpsRoundTrip float64) float64 {
	return exitPrice/entryPrice - 1 - costBpsRoundTrip/10000
}
