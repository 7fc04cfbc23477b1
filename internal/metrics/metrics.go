package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds the pivotscope run metrics on a private prometheus
// registry so independent runs never share counters
type Registry struct {
	reg *prometheus.Registry

	StageDuration     *prometheus.HistogramVec
	BacktestsRun      prometheus.Counter
	CombosEvaluated   prometheus.Counter
	CombosDiscarded   prometheus.Counter
	Windows           *prometheus.CounterVec
	TradesProduced    *prometheus.CounterVec
	PivotsDetected    *prometheus.CounterVec
	BarsLoaded        prometheus.Gauge
	MissingBars       prometheus.Gauge
	OutOfSampleEquity prometheus.Gauge
}

// NewRegistry creates and registers every metric
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pivotscope_stage_duration_seconds",
				Help:    "Duration of each analysis stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage", "result"},
		),

		BacktestsRun: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pivotscope_backtests_total",
				Help: "Total number of standalone backtests run",
			},
		),

		CombosEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pivotscope_grid_combinations_evaluated_total",
				Help: "Total number of grid combinations backtested on train ranges",
			},
		),

		CombosDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pivotscope_grid_combinations_discarded_total",
				Help: "Total number of grid combinations rejected by the train constraints",
			},
		),

		Windows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivotscope_walkforward_windows_total",
				Help: "Total number of walk-forward windows by outcome",
			},
			[]string{"outcome"},
		),

		TradesProduced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivotscope_trades_total",
				Help: "Total number of closed trades by source and exit reason",
			},
			[]string{"source", "exit_reason"},
		),

		PivotsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivotscope_pivots_total",
				Help: "Total number of confirmed pivots by type",
			},
			[]string{"type"},
		),

		BarsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pivotscope_bars_loaded",
				Help: "Number of bars in the loaded series",
			},
		),

		MissingBars: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pivotscope_bars_missing",
				Help: "Number of loaded bars without a usable close",
			},
		),

		OutOfSampleEquity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pivotscope_walkforward_oos_ending_equity",
				Help: "Ending equity of the stitched out-of-sample trades",
			},
		),
	}

	r.reg.MustRegister(
		r.StageDuration,
		r.BacktestsRun,
		r.CombosEvaluated,
		r.CombosDiscarded,
		r.Windows,
		r.TradesProduced,
		r.PivotsDetected,
		r.BarsLoaded,
		r.MissingBars,
		r.OutOfSampleEquity,
	)

	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// StageTimer tracks the duration of one stage
type StageTimer struct {
	histogram *prometheus.HistogramVec
	stage     string
	start     time.Time
}

// StartStage starts timing stage
func (r *Registry) StartStage(stage string) *StageTimer {
	return &StageTimer{
		histogram: r.StageDuration,
		stage:     stage,
		start:     time.Now(),
	}
}

// Stop records the elapsed time under result and returns it
func (st *StageTimer) Stop(result string) time.Duration {
	elapsed := time.Since(st.start)
	st.histogram.WithLabelValues(st.stage, result).Observe(elapsed.Seconds())
	return elapsed
}

// WriteTextfile writes the registry in the node-exporter textfile format
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Snapshot flattens counters and gauges into name{labels} -> value.
// Histograms report their sample count.
func (r *Registry) Snapshot() (map[string]float64, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + labelSuffix(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[key] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[key] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

func labelSuffix(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	s := "{"
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return s + "}"
}

// CounterValue reads a single counter back through the client model
func CounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
