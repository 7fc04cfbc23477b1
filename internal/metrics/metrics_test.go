package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/backtest/walkforward"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/exits"
)

func TestRegistry_RecordsWalkForward(t *testing.T) {
	r := NewRegistry()
	params := walkforward.Params{}

	r.RecordWindow(walkforward.Window{
		ChosenParams: &params,
		Evaluated:    16,
		Discarded:    4,
		TestTrades:   []reclaim.Trade{{ExitReason: exits.TrailingStop}, {ExitReason: exits.EndOfData}},
	})
	r.RecordWindow(walkforward.Window{Evaluated: 16, Discarded: 16})
	r.RecordAggregate(walkforward.Aggregate{Stats: reclaim.Stats{EndingEquity: 1.2}})

	snap, err := r.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 32.0, snap["pivotscope_grid_combinations_evaluated_total"])
	assert.Equal(t, 20.0, snap["pivotscope_grid_combinations_discarded_total"])
	assert.Equal(t, 1.0, snap[`pivotscope_walkforward_windows_total{outcome="chosen"}`])
	assert.Equal(t, 1.0, snap[`pivotscope_walkforward_windows_total{outcome="degenerate"}`])
	assert.Equal(t, 1.0, snap[`pivotscope_trades_total{exit_reason="trailing_stop",source="walkforward"}`])
	assert.Equal(t, 1.2, snap["pivotscope_walkforward_oos_ending_equity"])
	assert.Equal(t, 32.0, CounterValue(r.CombosEvaluated))
}

func TestRegistry_RecordsBacktestAndPivots(t *testing.T) {
	r := NewRegistry()

	r.RecordBacktest(&reclaim.Result{Trades: []reclaim.Trade{{ExitReason: exits.EndOfData}}})
	r.RecordPivots([]pivots.Pivot{{Type: pivots.Peak}, {Type: pivots.Trough}, {Type: pivots.Peak}})

	snap, err := r.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 1.0, snap["pivotscope_backtests_total"])
	assert.Equal(t, 2.0, snap[`pivotscope_pivots_total{type="peak"}`])
	assert.Equal(t, 1.0, snap[`pivotscope_trades_total{exit_reason="end_of_data",source="backtest"}`])
}

func TestStageTimer(t *testing.T) {
	r := NewRegistry()

	elapsed := r.StartStage("series").Stop("ok")
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))

	snap, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap[`pivotscope_stage_duration_seconds{result="ok",stage="series"}`])
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.BacktestsRun.Inc()
	path := filepath.Join(t.TempDir(), "pivotscope.prom")

	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pivotscope_backtests_total 1")
	assert.Contains(t, string(data), "# HELP pivotscope_bars_loaded")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.BacktestsRun.Inc()

	assert.Equal(t, 1.0, CounterValue(a.BacktestsRun))
	assert.Equal(t, 0.0, CounterValue(b.BacktestsRun))
}
