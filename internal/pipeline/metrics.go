package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	DocumentsTotal *prometheus.CounterVec
	HeadingsTotal  *prometheus.CounterVec
	FragmentsTotal prometheus.Counter
	FootersRemoved prometheus.Counter
	PhaseDuration  *prometheus.HistogramVec
	QueueDepth     prometheus.Gauge
	JobsInFlight   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsplit_documents_total",
				Help: "Documents processed, by family and final status",
			},
			[]string{"family", "status"},
		),
		HeadingsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsplit_headings_total",
				Help: "Headings found, by family and heading source",
			},
			[]string{"family", "source"},
		),
		FragmentsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "docsplit_fragments_planned_total",
				Help: "Non-empty fragments in completed split plans",
			},
		),
		FootersRemoved: f.NewCounter(
			prometheus.CounterOpts{
				Name: "docsplit_footers_removed_total",
				Help: "Boilerplate occurrences removed from token streams",
			},
		),
		PhaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsplit_phase_duration_seconds",
				Help:    "Duration of each pipeline phase in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"phase"},
		),
		QueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsplit_queue_depth",
				Help: "Jobs waiting for a worker",
			},
		),
		JobsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsplit_jobs_in_flight",
				Help: "Jobs currently being processed",
			},
		),
	}
}
