package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

// Metrics holds the Prometheus collectors for pipeline runs.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	EventsApproved prometheus.Counter
	EventsRejected prometheus.Counter
	RunDuration    prometheus.Histogram
	QualityScore   prometheus.Gauge
}

var _ ports.RunObserver = (*Metrics)(nil)

// New registers the collectors with the default registry.
func New() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_runs_total",
			Help: "Pipeline runs by source and decision",
		}, []string{"source", "decision"}),
		EventsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scanner_events_approved_total",
			Help: "Events approved for publication",
		}),
		EventsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scanner_events_rejected_total",
			Help: "Events rejected by the quality filter",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_run_duration_seconds",
			Help:    "Wall-clock duration of one pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		QualityScore: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_quality_score",
			Help: "Quality score of the most recent run",
		}),
	}
}

// ObserveRun exports one finished run.
func (m *Metrics) ObserveRun(summary domain.RunSummary) {
	m.RunsTotal.WithLabelValues(summary.SourceName, string(summary.Decision)).Inc()
	m.EventsApproved.Add(float64(summary.EventsApproved))
	m.EventsRejected.Add(float64(summary.EventsRejected))
	m.RunDuration.Observe(summary.DurationSeconds)
	m.QualityScore.Set(summary.QualityScore)
}
