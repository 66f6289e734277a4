package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ForecastMetrics records counters and timings for training and prediction.
type ForecastMetrics struct {
	trainDuration   *prometheus.HistogramVec
	trainSuccess    *prometheus.CounterVec
	trainFailure    *prometheus.CounterVec
	predictDuration *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
}

// NewForecastMetrics registers the forecast metrics on the provided registerer.
func NewForecastMetrics(reg prometheus.Registerer) *ForecastMetrics {
	if reg == nil {
		return &ForecastMetrics{}
	}
	trainDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_train_duration_seconds",
		Help:    "Duration of model training runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})
	trainSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_train_success",
		Help: "Successful model training runs.",
	}, []string{"scope"})
	trainFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_train_failure",
		Help: "Failed model training runs.",
	}, []string{"scope"})
	predictDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_predict_duration_seconds",
		Help:    "Duration of prediction requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_prediction_cache_hits",
		Help: "Prediction responses served from the redis cache.",
	}, []string{"scope"})
	reg.MustRegister(trainDuration, trainSuccess, trainFailure, predictDuration, cacheHits)
	return &ForecastMetrics{
		trainDuration:   trainDuration,
		trainSuccess:    trainSuccess,
		trainFailure:    trainFailure,
		predictDuration: predictDuration,
		cacheHits:       cacheHits,
	}
}

// ObserveTraining records the duration for the named scope (general/products).
func (m *ForecastMetrics) ObserveTraining(scope string, duration time.Duration) {
	if m == nil || m.trainDuration == nil {
		return
	}
	m.trainDuration.WithLabelValues(normalizeLabel(scope)).Observe(duration.Seconds())
}

// IncTrainSuccess increments the success counter for the named scope.
func (m *ForecastMetrics) IncTrainSuccess(scope string) {
	if m == nil || m.trainSuccess == nil {
		return
	}
	m.trainSuccess.WithLabelValues(normalizeLabel(scope)).Inc()
}

// IncTrainFailure increments the failure counter for the named scope.
func (m *ForecastMetrics) IncTrainFailure(scope string) {
	if m == nil || m.trainFailure == nil {
		return
	}
	m.trainFailure.WithLabelValues(normalizeLabel(scope)).Inc()
}

// ObservePrediction records the duration for the named scope.
func (m *ForecastMetrics) ObservePrediction(scope string, duration time.Duration) {
	if m == nil || m.predictDuration == nil {
		return
	}
	m.predictDuration.WithLabelValues(normalizeLabel(scope)).Observe(duration.Seconds())
}

// IncCacheHit increments the prediction cache hit counter.
func (m *ForecastMetrics) IncCacheHit(scope string) {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.WithLabelValues(normalizeLabel(scope)).Inc()
}

func normalizeLabel(scope string) string {
	if scope == "" {
		return "unknown"
	}
	return scope
}
