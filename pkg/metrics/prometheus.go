package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations *prometheus.CounterVec
	confidence  *prometheus.HistogramVec
	stale       *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_evaluations_total",
				Help: "Total number of snapshot evaluations by family and resulting signal",
			},
			[]string{"family", "signal"},
		),
		confidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_confidence",
				Help:    "Distribution of reported confidence scores",
				Buckets: []float64{30, 40, 50, 60, 70, 80, 90, 95},
			},
			[]string{"family"},
		),
		stale: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_stale_snapshots_total",
				Help: "Evaluations whose snapshot did not move since the previous one",
			},
			[]string{"family"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvaluation counts one evaluation and observes its confidence.
func (r *Recorder) RecordEvaluation(family, signal string, confidence int) {
	r.evaluations.WithLabelValues(family, signal).Inc()
	r.confidence.WithLabelValues(family).Observe(float64(confidence))
}

func (r *Recorder) RecordStale(family string) {
	r.stale.WithLabelValues(family).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
