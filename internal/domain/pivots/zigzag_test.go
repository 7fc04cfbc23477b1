package pivots

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pivotscope/internal/domain/indicators"
	"github.com/sawpanic/pivotscope/internal/domain/series"
	"github.com/sawpanic/pivotscope/internal/testkit"
)

func seriesConfig() series.Config {
	return series.Config{
		VolLookback: 10,
		KZ:          3.0,
		MinZ:        0.05,
		MaxZ:        0.20,
		KS:          2.5,
		BS:          0.02,
		MinS:        0.04,
		MaxS:        0.15,
		MAPeriod:    20,
	}
}

func fixed(v float64) *float64 {
	return &v
}

func detectFixed(closes []float64, th float64) []Pivot {
	s := series.Build(testkit.Rows(closes...), seriesConfig())
	return DetectSeries(s, fixed(th))
}

func TestDetect_RoundTrip(t *testing.T) {
	got := detectFixed(testkit.RoundTrip().Closes(), 0.10)

	require.Len(t, got, 3)

	assert.Equal(t, Trough, got[0].Type)
	assert.Equal(t, 7, got[0].Index)
	assert.Equal(t, 11, got[0].ConfirmIndex)

	assert.Equal(t, Peak, got[1].Type)
	assert.Equal(t, 17, got[1].Index)
	assert.Equal(t, 20, got[1].ConfirmIndex)
	assert.Equal(t, testkit.Day(17), got[1].Date)
	assert.Equal(t, testkit.Day(20), got[1].ConfirmDate)
	assert.InDelta(t, 100*0.97*0.97*0.97*0.97*0.97*1.343916379, got[1].Close, 1e-6)
	assert.Equal(t, 0.10, got[1].PctUsed)

	assert.Equal(t, Trough, got[2].Type)
	assert.Equal(t, 23, got[2].Index)
	assert.Equal(t, 27, got[2].ConfirmIndex)

	assert.Len(t, Peaks(got), 1)
}

func TestDetect_FlatSeriesHasNoPivots(t *testing.T) {
	s := series.Build(testkit.Rows(testkit.Flat(120, 42)...), seriesConfig())
	assert.Empty(t, DetectSeries(s, nil))
}

func TestDetect_MonotoneRiseConfirmsNoPeak(t *testing.T) {
	s := series.Build(testkit.NewPath(100).Ramp(300, 0.005).Rows(), seriesConfig())
	assert.Empty(t, Peaks(DetectSeries(s, nil)))
}

func TestDetect_CausalAndAlternating(t *testing.T) {
	closes := testkit.Wave(1200, 100, 0.18, 90)
	s := series.Build(testkit.Rows(closes...), seriesConfig())

	for name, pvts := range map[string][]Pivot{
		"dynamic": DetectSeries(s, nil),
		"fixed":   DetectSeries(s, fixed(0.08)),
	} {
		require.NotEmpty(t, pvts, name)
		for i, p := range pvts {
			assert.Greater(t, p.ConfirmIndex, p.Index, "%s pivot %d", name, i)
			if i > 0 {
				assert.NotEqual(t, pvts[i-1].Type, p.Type, "%s pivot %d repeats type", name, i)
				assert.Greater(t, p.ConfirmIndex, pvts[i-1].ConfirmIndex, "%s pivot %d out of order", name, i)
			}
		}
	}
}

// The undetermined state only ratchets its candidate upward, so the dip to 96
// is never tracked and the first trend found is down, from 108.
func TestDetect_UndeterminedCandidateOnlyRatchetsUp(t *testing.T) {
	got := detectFixed([]float64{100, 104, 96, 108, 97, 108}, 0.10)

	require.Len(t, got, 1)
	assert.Equal(t, Trough, got[0].Type)
	assert.Equal(t, 4, got[0].Index)
	assert.Equal(t, 5, got[0].ConfirmIndex)
}

func TestDetect_UndeterminedEstablishesUpOnLargeJump(t *testing.T) {
	got := detectFixed([]float64{100, 112, 120, 105}, 0.10)

	require.Len(t, got, 1)
	assert.Equal(t, Peak, got[0].Type)
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, 3, got[0].ConfirmIndex)
}

func TestDetect_SkipsBarsWithMissingThreshold(t *testing.T) {
	raw := []float64{100, 120, 90, 130, 80}
	closes := indicators.Prices(raw)
	dates := make([]time.Time, len(raw))
	for i := range dates {
		dates[i] = testkit.Day(i)
	}

	all := Constant(len(raw), 0.10)
	assert.NotEmpty(t, Detect(dates, closes, all))

	gappy := []series.Num{indicators.Some(0.10), indicators.Missing, indicators.Missing, indicators.Missing, indicators.Some(0.10)}
	assert.Empty(t, Detect(dates, closes, gappy))
}

func TestDetect_SkipsMissingCloses(t *testing.T) {
	closes := []float64{100, 112, math.NaN(), 0, 120, 105}
	got := detectFixed(closes, 0.10)

	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Index)
	assert.Equal(t, 5, got[0].ConfirmIndex)
}

func TestDetect_ShortThresholdSliceTreatedAsMissing(t *testing.T) {
	closes := indicators.Prices([]float64{100, 130, 90})
	assert.Empty(t, Detect(nil, closes, nil))
}
