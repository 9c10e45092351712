// Package metrics exposes Prometheus instrumentation for predictions and
// rankings.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records service metrics on its own registry.
type Recorder struct {
	registry        *prometheus.Registry
	predictions     *prometheus.CounterVec
	trainings       *prometheus.CounterVec
	predictLatency  *prometheus.HistogramVec
	sortDuration    *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	trainedModels   prometheus.Gauge
}

// New creates a recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockforecast_predictions_total",
				Help: "Predictions requested, by outcome",
			},
			[]string{"outcome"},
		),
		trainings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockforecast_trainings_total",
				Help: "Model training runs, by outcome",
			},
			[]string{"outcome"},
		),
		predictLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockforecast_operation_duration_seconds",
				Help:    "Duration of train and predict operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		sortDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockforecast_sort_duration_milliseconds",
				Help:    "Sort durations by algorithm in milliseconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
			},
			[]string{"algorithm"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockforecast_cache_lookups_total",
				Help: "Prediction cache lookups, by result",
			},
			[]string{"result"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockforecast_events_published_total",
				Help: "Kafka events published, by type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		trainedModels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stockforecast_trained_models",
			Help: "Number of symbols with a trained model",
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordPrediction counts a prediction and observes its duration.
func (r *Recorder) RecordPrediction(d time.Duration, err error) {
	r.predictions.WithLabelValues(outcome(err)).Inc()
	r.predictLatency.WithLabelValues("predict").Observe(d.Seconds())
}

// RecordTraining counts a training run and observes its duration.
func (r *Recorder) RecordTraining(d time.Duration, err error) {
	r.trainings.WithLabelValues(outcome(err)).Inc()
	r.predictLatency.WithLabelValues("train").Observe(d.Seconds())
}

// RecordSort observes a sort duration for algorithm.
func (r *Recorder) RecordSort(algorithm string, ms float64) {
	r.sortDuration.WithLabelValues(algorithm).Observe(ms)
}

// RecordCacheLookup counts a cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordEvent counts a published event.
func (r *Recorder) RecordEvent(eventType string, err error) {
	r.eventsPublished.WithLabelValues(eventType, outcome(err)).Inc()
}

// SetTrainedModels sets the trained model gauge.
func (r *Recorder) SetTrainedModels(n int) {
	r.trainedModels.Set(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
