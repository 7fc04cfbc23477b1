package report

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
	"github.com/sawpanic/pivotscope/internal/backtest/walkforward"
	"github.com/sawpanic/pivotscope/internal/domain/cycles"
	"github.com/sawpanic/pivotscope/internal/domain/indicators"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/exits"
	"github.com/sawpanic/pivotscope/internal/testkit"
)

func sampleReport() *Report {
	r := New("backtest", "btc.csv")
	r.Bars = 39
	r.FirstDate, r.LastDate = testkit.Day(0), testkit.Day(38)
	r.Pivots = []pivots.Pivot{{Index: 17, Date: testkit.Day(17), Close: 115.4, Type: pivots.Peak, ConfirmIndex: 20, ConfirmDate: testkit.Day(20), PctUsed: 0.1}}
	r.Cycles = []cycles.Result{
		{Epoch: cycles.Epoch{Name: "all"}, Drawdown: indicators.Some(0.78)},
		{Epoch: cycles.Epoch{Name: "late"}, Note: cycles.NoPeakNote},
	}
	trades := []reclaim.Trade{
		{EntryIndex: 32, ExitIndex: 38, EntryPrice: 117.9, ExitPrice: 140.7, ExitReason: exits.EndOfData, PnLFraction: 0.047},
	}
	r.Backtest = &reclaim.Result{Trades: trades, Stats: reclaim.ComputeStats(trades), BuyAndHold: indicators.Some(0.407), Exposure: 0.2}
	return r
}

func TestNew_AssignsRunID(t *testing.T) {
	a, b := New("pivots", "x.csv"), New("pivots", "x.csv")

	_, err := uuid.Parse(a.RunID)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestWriter_WritesArtifacts(t *testing.T) {
	root := t.TempDir()
	r := sampleReport()
	w := NewWriter(root)

	dir, err := w.Write(r)
	require.NoError(t, err)
	assert.Equal(t, w.Dir(r), dir)
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "backtest-"))

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])
	assert.NotContains(t, decoded, "walkforward")

	file, err := os.Open(filepath.Join(dir, "trades.jsonl"))
	require.NoError(t, err)
	defer file.Close()
	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var trade reclaim.Trade
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &trade))
		assert.Equal(t, exits.EndOfData, trade.ExitReason)
		lines++
	}
	assert.Equal(t, 1, lines)

	summary, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	require.NoError(t, err)
	assert.Equal(t, Markdown(r), string(summary))
}

func TestMarkdown_Sections(t *testing.T) {
	md := Markdown(sampleReport())

	assert.Contains(t, md, "# pivotscope backtest report")
	assert.Contains(t, md, "| 1 | peak | 2020-01-18 | 115.40 | 2020-01-21 | 3 | 10.00% |")
	assert.Contains(t, md, "| all | - | - | 0.780 | - |  |")
	assert.Contains(t, md, cycles.NoPeakNote)
	assert.Contains(t, md, "- **Profit Factor**: n/a (no losses)")
	assert.Contains(t, md, "- **Buy & Hold**: 40.70%")
	assert.NotContains(t, md, "## Walk-Forward")
}

func TestMarkdown_WalkForward(t *testing.T) {
	r := New("walkforward", "btc.csv")
	params := walkforward.Params{VolGateMode: reclaim.VolGateNone}
	train := reclaim.ComputeStats(nil)
	r.WalkForward = &walkforward.Result{
		Windows: []walkforward.Window{
			{Number: 1, ChosenParams: &params, TrainStats: &train, TestStats: reclaim.ComputeStats(nil)},
			{Number: 2, TestStats: reclaim.ComputeStats(nil)},
		},
		Aggregate: walkforward.Aggregate{Windows: 2, ChosenWindows: 1, GridSize: 4, Evaluations: 8, DiscardedTotal: 5, Stats: reclaim.ComputeStats(nil)},
	}

	md := Markdown(r)

	assert.Contains(t, md, "- **Windows**: 2 (1 with a chosen combination)")
	assert.Contains(t, md, "- **Grid**: 4 combinations, 8 evaluations, 5 discarded")
	assert.Contains(t, md, "| degenerate | - | 1.0000 | 0 |")
	assert.Contains(t, md, "- **Profit Factor**: 0.00")
}
