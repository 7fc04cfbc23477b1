package cycles

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
	"github.com/sawpanic/pivotscope/internal/testkit"
)

func build(closes []float64) (*series.Series, []pivots.Pivot) {
	s := series.Build(testkit.Rows(closes...), series.Config{VolLookback: 10, MAPeriod: 20})
	zz := 0.10
	return s, pivots.DetectSeries(s, &zz)
}

func openEpoch(name string, start time.Time) Epoch {
	return Epoch{Name: name, Start: start}
}

func TestAnalyze_RoundTrip(t *testing.T) {
	s, pvts := build(testkit.RoundTrip().Closes())

	got := Analyze(s, pvts, []Epoch{openEpoch("all", testkit.Day(0))}, Config{})
	require.Len(t, got, 1)
	res := got[0]

	require.NotNil(t, res.CyclePeak)
	assert.Equal(t, 17, res.CyclePeak.Index)

	require.NotNil(t, res.Reclaim)
	assert.Equal(t, 32, res.Reclaim.Index)
	assert.GreaterOrEqual(t, res.Reclaim.Close, res.CyclePeak.Close)

	require.NotNil(t, res.CycleTrough)
	assert.Equal(t, 23, res.CycleTrough.Index)
	assert.InDelta(t, math.Pow(0.96, 6), res.Drawdown.Value, 1e-9)
	assert.LessOrEqual(t, res.Drawdown.Value, 1.0)

	require.NotNil(t, res.BarsToTrough)
	assert.Equal(t, 6, *res.BarsToTrough)
	require.NotNil(t, res.BarsToReclaim)
	assert.Equal(t, 15, *res.BarsToReclaim)
	assert.Empty(t, res.Note)
}

func TestAnalyze_NoPeakInEpoch(t *testing.T) {
	s, pvts := build(testkit.RoundTrip().Closes())

	got := Analyze(s, pvts, []Epoch{openEpoch("late", testkit.Day(18))}, Config{})
	require.Len(t, got, 1)
	res := got[0]

	assert.Nil(t, res.CyclePeak)
	assert.Nil(t, res.Reclaim)
	assert.Nil(t, res.CycleTrough)
	assert.False(t, res.Drawdown.Valid)
	assert.Equal(t, NoPeakNote, res.Note)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cycle_peak":null`)
	assert.Contains(t, string(data), `"drawdown":null`)
}

func TestAnalyze_EpochEndIsExclusive(t *testing.T) {
	s, pvts := build(testkit.RoundTrip().Closes())

	end := testkit.Day(17)
	before := Epoch{Name: "before", Start: testkit.Day(0), End: &end}
	endAfter := testkit.Day(18)
	covering := Epoch{Name: "covering", Start: testkit.Day(0), End: &endAfter}

	got := Analyze(s, pvts, []Epoch{before, covering}, Config{})
	require.Len(t, got, 2)
	assert.Nil(t, got[0].CyclePeak)
	require.NotNil(t, got[1].CyclePeak)
	assert.Equal(t, 17, got[1].CyclePeak.Index)
}

func TestAnalyze_NoReclaimSearchesToEnd(t *testing.T) {
	closes := testkit.NewPath(100).Hold(2).Ramp(5, -0.03).Ramp(10, 0.03).Ramp(6, -0.04).Ramp(4, 0.01).Closes()
	s, pvts := build(closes)

	got := Analyze(s, pvts, []Epoch{openEpoch("all", testkit.Day(0))}, Config{})
	res := got[0]

	require.NotNil(t, res.CyclePeak)
	assert.Nil(t, res.Reclaim)
	assert.Nil(t, res.BarsToReclaim)
	require.NotNil(t, res.CycleTrough)
	assert.Equal(t, 23, res.CycleTrough.Index)
}

func TestAnalyze_PicksHighestPeak(t *testing.T) {
	closes := testkit.RoundTrip().Ramp(8, 0.03).Ramp(5, -0.05).Ramp(3, 0.01).Closes()
	s, pvts := build(closes)
	require.Len(t, pivots.Peaks(pvts), 2)

	got := Analyze(s, pvts, []Epoch{openEpoch("all", testkit.Day(0))}, Config{})
	require.NotNil(t, got[0].CyclePeak)
	assert.Equal(t, 46, got[0].CyclePeak.Index)
}

func TestAnalyze_StrictCausalStartsAfterConfirmation(t *testing.T) {
	// one sharp bar confirms the peak and is also the lowest close
	closes := testkit.NewPath(100).Ramp(2, 0.15).Ramp(1, -0.20).Ramp(3, 0.05).Closes()
	s, pvts := build(closes)
	peaks := pivots.Peaks(pvts)
	require.Len(t, peaks, 1)
	require.Equal(t, 2, peaks[0].Index)
	require.Equal(t, 3, peaks[0].ConfirmIndex)

	epochs := []Epoch{openEpoch("all", testkit.Day(0))}

	loose := Analyze(s, pvts, epochs, Config{})[0]
	require.NotNil(t, loose.CycleTrough)
	assert.Equal(t, 3, loose.CycleTrough.Index)

	strict := Analyze(s, pvts, epochs, Config{StrictCausal: true})[0]
	require.NotNil(t, strict.CycleTrough)
	assert.Equal(t, 4, strict.CycleTrough.Index)
	assert.Greater(t, strict.Drawdown.Value, loose.Drawdown.Value)
}

func TestAnalyze_IgnoresWarmupPeaks(t *testing.T) {
	s, pvts := build(testkit.RoundTrip().Closes())

	got := Analyze(s, pvts, []Epoch{openEpoch("all", testkit.Day(0))}, Config{MinBarsForIndicators: 18})
	assert.Nil(t, got[0].CyclePeak)
	assert.Equal(t, NoPeakNote, got[0].Note)
}
