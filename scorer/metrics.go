package scorer

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perspective_requests_total",
			Help: "Total number of score requests by outcome",
		},
		[]string{"outcome"},
	)

	requestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perspective_request_duration_seconds",
			Help:    "Duration of score requests in seconds, excluding rate limit wait",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Error metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perspective_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"error_type"},
	)

	// Rate limiter metrics
	rateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perspective_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the rate limiter before each request",
			Buckets: []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "perspective_circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	circuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perspective_circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"name"},
	)

	// Score distribution
	scoreDistribution = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "perspective_score_distribution",
			Help:    "Distribution of summary scores (0-1) per attribute",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"attribute"},
	)
)

// MetricsRecorder provides methods to record metrics
type MetricsRecorder struct {
	enabled bool
}

// NewMetricsRecorder creates a new metrics recorder
func NewMetricsRecorder(enabled bool) *MetricsRecorder {
	return &MetricsRecorder{enabled: enabled}
}

// RecordRequest records a finished Score call
func (m *MetricsRecorder) RecordRequest(outcome Outcome) {
	if !m.enabled {
		return
	}
	requestsTotal.WithLabelValues(outcome.String()).Inc()
}

// RecordRequestDuration records request duration
func (m *MetricsRecorder) RecordRequestDuration(seconds float64) {
	if !m.enabled {
		return
	}
	requestDuration.Observe(seconds)
}

// RecordError records an error
func (m *MetricsRecorder) RecordError(errorType string) {
	if !m.enabled {
		return
	}
	errorsTotal.WithLabelValues(errorType).Inc()
}

// RecordRateLimitWait records time spent in the limiter
func (m *MetricsRecorder) RecordRateLimitWait(seconds float64) {
	if !m.enabled {
		return
	}
	rateLimitWait.Observe(seconds)
}

// RecordCircuitBreakerState records circuit breaker state
func (m *MetricsRecorder) RecordCircuitBreakerState(name string, state int) {
	if !m.enabled {
		return
	}
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *MetricsRecorder) RecordCircuitBreakerTrip(name string) {
	if !m.enabled {
		return
	}
	circuitBreakerTrips.WithLabelValues(name).Inc()
}

// RecordScores records every available score in the result
func (m *MetricsRecorder) RecordScores(scores map[Attribute]Score) {
	if !m.enabled {
		return
	}
	for attr, s := range scores {
		if s.Available {
			scoreDistribution.WithLabelValues(string(attr)).Observe(s.Value)
		}
	}
}

// GetMetricsHandler returns an HTTP handler for Prometheus metrics
func GetMetricsHandler() http.Handler {
	return promhttp.Handler()
}
