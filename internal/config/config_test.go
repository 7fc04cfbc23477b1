package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pivotscope/internal/backtest/reclaim"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	assert.Empty(t, cfg.Problems())
	assert.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Cycles.Epochs, 4)
	assert.Nil(t, cfg.Cycles.Epochs[3].End)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pivotscope.yaml")
	doc := `
series:
  vol_lookback: 30
strategy:
  cooldown_bars: 2
  fixed_zigzag_pct: 0.12
cycles:
  strict_causal: true
  epochs:
    - name: only
      start: 2021-01-01
walkforward:
  train_bars: 500
  grid:
    zigzag_pct: [0.1]
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Series.VolLookback)
	assert.Equal(t, Default().Series.KZ, cfg.Series.KZ)
	assert.Equal(t, 2, cfg.Strategy.CooldownBars)
	require.NotNil(t, cfg.Strategy.FixedZigzagPct)
	assert.Equal(t, 0.12, *cfg.Strategy.FixedZigzagPct)
	assert.True(t, cfg.Cycles.StrictCausal)
	require.Len(t, cfg.Cycles.Epochs, 1)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Cycles.Epochs[0].Start)
	assert.Equal(t, 500, cfg.WalkForward.TrainBars)
	assert.Equal(t, 180, cfg.WalkForward.TestBars)
	assert.Equal(t, []float64{0.1}, cfg.WalkForward.Grid.ZigzagPct)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("series: [1, 2"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config YAML")
}

func TestSave_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Strategy.CooldownBars = 11

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 11, loaded.Strategy.CooldownBars)
	assert.Equal(t, cfg.WalkForward.Grid, loaded.WalkForward.Grid)
	require.Len(t, loaded.Cycles.Epochs, len(cfg.Cycles.Epochs))
	for i, e := range cfg.Cycles.Epochs {
		assert.True(t, e.Start.Equal(loaded.Cycles.Epochs[i].Start), e.Name)
	}
}

func TestProblems_ReportsEachViolation(t *testing.T) {
	cfg := Default()
	cfg.Series.VolLookback = 1
	cfg.Strategy.VolGateMode = "atr"
	cfg.Strategy.RiskPerTrade = 0
	end := cfg.Cycles.Epochs[0].Start.AddDate(0, 0, -1)
	cfg.Cycles.Epochs[0].End = &end
	cfg.WalkForward.TestBars = 0
	cfg.WalkForward.Grid.CooldownBars = []int{-3}
	cfg.Logging.Format = "xml"

	problems := cfg.Problems()

	assert.Len(t, problems, 7)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vol_gate_mode")
	assert.Contains(t, err.Error(), "walkforward: grid cooldown_bars")
}

func TestMappings(t *testing.T) {
	cfg := Default()
	cfg.Strategy.MinBarsForIndicators = 42
	cfg.Cycles.StrictCausal = true

	assert.Equal(t, 42, cfg.CyclesConfig().MinBarsForIndicators)
	assert.True(t, cfg.CyclesConfig().StrictCausal)
	assert.Equal(t, cfg.Series, cfg.SeriesConfig())

	wf := cfg.WalkForwardConfig()
	assert.Equal(t, cfg.Strategy, wf.Strategy)
	assert.Equal(t, reclaim.Config{}, cfg.WalkForward.Strategy)
}
