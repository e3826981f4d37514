package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics observes one batch run of the submission pipeline.
type PipelineMetrics struct {
	registry *prometheus.Registry

	submissionsTotal    *prometheus.CounterVec
	submissionDuration  *prometheus.HistogramVec
	submissionsInFlight prometheus.Gauge
	documentsTotal      *prometheus.CounterVec
	gradesTotal         *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subpipe",
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Submissions reaching a terminal outcome, by outcome.",
		},
		[]string{"service", "outcome"},
	)
	submissionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subpipe",
			Subsystem: "pipeline",
			Name:      "submission_duration_seconds",
			Help:      "Per-submission processing duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	submissionsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "subpipe",
			Subsystem: "pipeline",
			Name:      "submissions_in_flight",
			Help:      "Number of submissions currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subpipe",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Documents handled, by category and outcome.",
		},
		[]string{"service", "category", "outcome"},
	)
	gradesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subpipe",
			Subsystem: "pipeline",
			Name:      "grades_total",
			Help:      "Grading attempts, by category.",
		},
		[]string{"service", "category"},
	)

	registry.MustRegister(submissionsTotal, submissionDuration, submissionsInFlight, documentsTotal, gradesTotal)

	return &PipelineMetrics{
		registry:            registry,
		submissionsTotal:    submissionsTotal,
		submissionDuration:  submissionDuration,
		submissionsInFlight: submissionsInFlight,
		documentsTotal:      documentsTotal,
		gradesTotal:         gradesTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartSubmission() {
	m.submissionsInFlight.Inc()
}

func (m *PipelineMetrics) FinishSubmission(service, outcome string, duration time.Duration) {
	m.submissionsInFlight.Dec()
	m.submissionsTotal.WithLabelValues(service, outcome).Inc()
	m.submissionDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveDocument(service, category, outcome string) {
	m.documentsTotal.WithLabelValues(service, category, outcome).Inc()
}

func (m *PipelineMetrics) ObserveGrade(service, category string) {
	m.gradesTotal.WithLabelValues(service, category).Inc()
}
