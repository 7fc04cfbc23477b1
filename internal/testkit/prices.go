package testkit

import (
	"math"
	"time"

	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// Epoch0 is the date of the first bar produced by the builders
var Epoch0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Day returns the date of bar i
func Day(i int) time.Time {
	return Epoch0.AddDate(0, 0, i)
}

// Rows turns closes into daily rows starting at Epoch0
func Rows(closes ...float64) []series.PriceRow {
	rows := make([]series.PriceRow, len(closes))
	for i, c := range closes {
		rows[i] = series.PriceRow{Date: Day(i), Close: c}
	}
	return rows
}

// Flat returns n bars at price
func Flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// Path builds a close sequence from compounding segments
type Path struct {
	closes []float64
}

// NewPath starts a path at price
func NewPath(price float64) *Path {
	return &Path{closes: []float64{price}}
}

// Ramp appends bars, each moving pct from the previous close
func (p *Path) Ramp(bars int, pct float64) *Path {
	for i := 0; i < bars; i++ {
		p.closes = append(p.closes, p.Last()*(1+pct))
	}
	return p
}

// Hold appends bars repeating the last close
func (p *Path) Hold(bars int) *Path {
	return p.Ramp(bars, 0)
}

// Wiggle appends bars alternating +pct and -pct around the last close
func (p *Path) Wiggle(bars int, pct float64) *Path {
	base := p.Last()
	for i := 0; i < bars; i++ {
		if i%2 == 0 {
			p.closes = append(p.closes, base*(1+pct))
		} else {
			p.closes = append(p.closes, base*(1-pct))
		}
	}
	return p
}

// Last returns the most recent close
func (p *Path) Last() float64 {
	return p.closes[len(p.closes)-1]
}

// Closes returns a copy of the closes
func (p *Path) Closes() []float64 {
	out := make([]float64, len(p.closes))
	copy(out, p.closes)
	return out
}

// Rows returns the path as daily rows
func (p *Path) Rows() []series.PriceRow {
	return Rows(p.closes...)
}

// Wave returns n deterministic closes: a gentle uptrend with a sine cycle
// of the given period and relative amplitude, plus a faster ripple so that
// volatility never collapses to zero.
func Wave(n int, base, amplitude float64, period int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		trend := 1 + 0.0004*x
		cycle := 1 + amplitude*math.Sin(2*math.Pi*x/float64(period))
		ripple := 1 + 0.004*math.Sin(2*math.Pi*x/7)
		out[i] = base * trend * cycle * ripple
	}
	return out
}

// RoundTrip returns a path that dips into a trough at bar 7, rallies to a
// top at bar 17, falls more than 10% (a 0.10 zigzag confirms the peak on bar
// 20), bottoms at bar 23 and climbs back through the top on bar 32. The last
// bar is 38.
func RoundTrip() *Path {
	return NewPath(100).
		Hold(2).
		Ramp(5, -0.03).
		Ramp(10, 0.03).
		Ramp(6, -0.04).
		Ramp(15, 0.03)
}
