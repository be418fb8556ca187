package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ReportsGenerated  *prometheus.CounterVec
	CurationOutcomes  *prometheus.CounterVec
	CurationDuration  prometheus.Histogram
	PoolSize          prometheus.Gauge
	SnapshotReads     *prometheus.CounterVec
	SimilarityQueries prometheus.Counter
}

// New registers the engine collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReportsGenerated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compass_reports_generated_total",
				Help: "Total number of ranked reports generated",
			},
			[]string{"mode", "source"}, // source: "curated", "fallback"
		),
		CurationOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compass_curation_outcomes_total",
				Help: "Total number of curation attempts by outcome",
			},
			[]string{"kind", "reason"},
		),
		CurationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "compass_curation_duration_seconds",
				Help:    "Duration of curation round trips in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		PoolSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "compass_city_pool_size",
				Help: "Number of cities in the most recently loaded pool",
			},
		),
		SnapshotReads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compass_snapshot_reads_total",
				Help: "Total number of preview snapshot reads by freshness",
			},
			[]string{"state"}, // "fresh", "stale"
		),
		SimilarityQueries: f.NewCounter(
			prometheus.CounterOpts{
				Name: "compass_similarity_queries_total",
				Help: "Total number of similar-city queries",
			},
		),
	}
}

// RecordReport counts a generated report.
func (m *Metrics) RecordReport(mode string, usedFallback bool) {
	if m == nil {
		return
	}
	source := "curated"
	if usedFallback {
		source = "fallback"
	}
	m.ReportsGenerated.WithLabelValues(mode, source).Inc()
}

// RecordCuration counts a curation attempt and its latency.
func (m *Metrics) RecordCuration(kind, reason string, d time.Duration) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.CurationOutcomes.WithLabelValues(kind, reason).Inc()
	m.CurationDuration.Observe(d.Seconds())
}

// SetPoolSize records the size of the loaded city pool.
func (m *Metrics) SetPoolSize(n int) {
	if m == nil {
		return
	}
	m.PoolSize.Set(float64(n))
}

// RecordSnapshot counts a preview snapshot read.
func (m *Metrics) RecordSnapshot(stale bool) {
	if m == nil {
		return
	}
	state := "fresh"
	if stale {
		state = "stale"
	}
	m.SnapshotReads.WithLabelValues(state).Inc()
}

// RecordSimilarity counts a similar-city query.
func (m *Metrics) RecordSimilarity() {
	if m == nil {
		return
	}
	m.SimilarityQueries.Inc()
}
