package indicators

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// IsPrice reports whether v is usable as a closing price (finite and positive)
func IsPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Prices converts raw closes into Nums, marking unusable closes as missing
func Prices(closes []float64) []Num {
	out := make([]Num, len(closes))
	for i, c := range closes {
		if IsPrice(c) {
			out[i] = Some(c)
		}
	}
	return out
}

// LogReturns calculates ln(close[i]/close[i-1]). Index 0 is always missing,
// as is any index where either close is missing.
func LogReturns(closes []Num) []Num {
	out := make([]Num, len(closes))
	for i := 1; i < len(closes); i++ {
		prev, okPrev := closes[i-1].Get()
		cur, okCur := closes[i].Get()
		if !okPrev || !okCur {
			continue
		}
		out[i] = Some(math.Log(cur / prev))
	}
	return out
}

// RollingStdDev calculates the sample standard deviation (n-1 denominator) of
// the finite values in each trailing window of lookback slots. A slot is
// missing until the window is full or when it holds fewer than two values.
func RollingStdDev(values []Num, lookback int) []Num {
	out := make([]Num, len(values))
	if lookback < 2 {
		return out
	}

	window := make([]float64, 0, lookback)
	for i := lookback - 1; i < len(values); i++ {
		window = window[:0]
		for j := i - lookback + 1; j <= i; j++ {
			if v, ok := values[j].Get(); ok {
				window = append(window, v)
			}
		}
		if len(window) < 2 {
			continue
		}
		out[i] = Some(stat.StdDev(window, nil))
	}
	return out
}

// SMA calculates a streaming simple moving average over period slots.
// Missing values add nothing to the running sum, and an average is only
// reported once the trailing window holds period valid values.
func SMA(values []Num, period int) []Num {
	out := make([]Num, len(values))
	if period < 1 {
		return out
	}

	sum := 0.0
	valid := 0
	for i, n := range values {
		if v, ok := n.Get(); ok {
			sum += v
			valid++
		}
		if i >= period {
			if v, ok := values[i-period].Get(); ok {
				sum -= v
				valid--
			}
		}
		if i >= period-1 && valid == period {
			out[i] = Some(sum / float64(period))
		}
	}
	return out
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Median returns the median of the valid values (mean of the two middle
// values for an even count), or Missing when there are none.
func Median(values []Num) Num {
	valid := make([]float64, 0, len(values))
	for _, n := range values {
		if v, ok := n.Get(); ok {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return Missing
	}

	sort.Float64s(valid)
	mid := len(valid) / 2
	if len(valid)%2 == 1 {
		return Some(valid[mid])
	}
	return Some(stat.Mean(valid[mid-1:mid+1], nil))
}
