// Package metrics provides Prometheus metrics for the prediction engine:
// request counts, per-model failures and exclusions, latency, and the
// distribution of reported confidence. Exposed via the promhttp endpoint
// started in main.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction engine.
type Metrics struct {
	PredictionsTotal  prometheus.Counter   // Completed predictions
	ModelFailures     prometheus.Counter   // Per-request single-model failures
	ModelTimeouts     prometheus.Counter   // Model calls cut off by the per-call timeout
	EnsembleExhausted prometheus.Counter   // Requests where zero models produced output
	FeatureDefaults   prometheus.Counter   // Vector slots filled from defaults
	ModelsLoaded      prometheus.Gauge     // Artifacts currently in the registry
	PredictionLatency prometheus.Histogram // End-to-end prediction latency in seconds
	ConfidenceScores  prometheus.Histogram // Distribution of reported overall confidence
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics against a custom registry, for isolated
// collection in tests.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of completed predictions",
		}),
		ModelFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_failures_total",
			Help: "Total number of single-model inference failures",
		}),
		ModelTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_timeouts_total",
			Help: "Total number of model calls cancelled by the per-call timeout",
		}),
		EnsembleExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ensemble_exhausted_total",
			Help: "Total number of requests where no model produced output",
		}),
		FeatureDefaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_defaults_total",
			Help: "Total number of feature slots filled from documented defaults",
		}),
		ModelsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "models_loaded",
			Help: "Number of model artifacts currently loaded",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Distribution of reported overall confidence scores",
			Buckets: prometheus.LinearBuckets(0.3, 0.05, 15),
		}),
	}
}
