package pipeline

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus metrics for the detection pipeline.
type Metrics struct {
	CandidatesTotal *prometheus.CounterVec
	StageDropsTotal *prometheus.CounterVec
	FinalSegments   prometheus.Histogram
	RunsTotal       prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates pipeline metrics registered against the given registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldcut_pipeline_candidates_total",
			Help: "Total raw detector candidates entering the pipeline, partitioned by detection mode.",
		},
		[]string{"mode"},
	)
	m.StageDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldcut_pipeline_stage_drops_total",
			Help: "Segments dropped per pipeline stage.",
		},
		[]string{"stage"},
	)
	m.FinalSegments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fieldcut_pipeline_final_segments",
			Help:    "Final segment count per pipeline run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)
	m.RunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldcut_pipeline_runs_total",
			Help: "Total pipeline runs.",
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.CandidatesTotal.Describe(ch)
	m.StageDropsTotal.Describe(ch)
	m.FinalSegments.Describe(ch)
	m.RunsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.CandidatesTotal.Collect(ch)
	m.StageDropsTotal.Collect(ch)
	m.FinalSegments.Collect(ch)
	m.RunsTotal.Collect(ch)
}

// LogSummary gathers the registered metrics and logs one debug line per
// sample. CLI runs have no scrape endpoint, so this is how the counters
// surface after a run.
func (m *Metrics) LogSummary(logger *slog.Logger) {
	families, err := m.registry.Gather()
	if err != nil {
		logger.Warn("failed to gather pipeline metrics", "error", err)
		return
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			attrs := make([]any, 0, 8)
			for _, label := range metric.GetLabel() {
				attrs = append(attrs, label.GetName(), label.GetValue())
			}
			switch {
			case metric.GetCounter() != nil:
				attrs = append(attrs, "value", metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				attrs = append(attrs, "count", h.GetSampleCount(), "sum", h.GetSampleSum())
			}
			logger.Debug(family.GetName(), attrs...)
		}
	}
}

// Metrics are optional: Run records into them only after SetMetrics, so tests
// and library callers pay nothing.
var activeMetrics atomic.Pointer[Metrics]

// SetMetrics installs the metrics instance the pipeline records into.
func SetMetrics(m *Metrics) {
	activeMetrics.Store(m)
}

func recordCandidates(mode string, count int) {
	m := activeMetrics.Load()
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(mode).Add(float64(count))
	m.RunsTotal.Inc()
}

func recordStages(candidates, merged, gapped, deduped, final int) {
	m := activeMetrics.Load()
	if m == nil {
		return
	}
	m.StageDropsTotal.WithLabelValues("merge_filter").Add(float64(candidates - merged))
	m.StageDropsTotal.WithLabelValues("min_gap").Add(float64(merged - gapped))
	m.StageDropsTotal.WithLabelValues("pad_dedup").Add(float64(gapped - deduped))
	m.StageDropsTotal.WithLabelValues("cap_spread").Add(float64(deduped - final))
	m.FinalSegments.Observe(float64(final))
}
