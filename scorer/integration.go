package scorer

import (
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// New creates a fully configured client from cfg: the transport for the
// selected backend, optional circuit breaker, metrics and rate limiter.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	metrics := NewMetricsRecorder(cfg.EnableMetrics)

	// Layer 1: wire transport (innermost)
	httpClient := &http.Client{Timeout: timeout}
	var transport Transport
	switch cfg.Backend {
	case BackendModeration:
		baseURL := cfg.Endpoint
		if baseURL == DefaultEndpoint {
			baseURL = ""
		}
		transport = NewModerationTransport(cfg.APIKey, baseURL, httpClient)
	default:
		transport = NewHTTPTransport(cfg.Endpoint, cfg.APIKey, httpClient)
	}

	// Layer 2: circuit breaker
	if cfg.EnableCircuitBreaker {
		slog.Info("Enabling circuit breaker",
			"max_requests", cfg.CircuitBreakerConfig.MaxRequests,
			"timeout", cfg.CircuitBreakerConfig.Timeout)
		transport = NewCircuitBreakerTransport(transport, withBreakerMetrics(cfg.CircuitBreakerConfig, metrics))
	}

	opts := []Option{
		WithQPS(cfg.QPS),
		WithAttributes(cfg.Attributes...),
		WithMetrics(metrics),
	}
	if cfg.EnableSharedLimiter {
		opts = append(opts, WithLimiter(NewSharedLimiter(cfg.QPS)))
	}
	if cfg.DoNotStore {
		opts = append(opts, WithDoNotStore())
	}

	c, err := NewWithTransport(transport, opts...)
	if err != nil {
		return nil, err
	}

	slog.Info("Perspective client created",
		"backend", cfg.Backend,
		"endpoint", cfg.Endpoint,
		"qps", cfg.QPS,
		"attributes", cfg.Attributes,
		"circuit_breaker", cfg.EnableCircuitBreaker,
		"shared_limiter", cfg.EnableSharedLimiter,
		"metrics", cfg.EnableMetrics)

	return c, nil
}

// BuildProductionClient creates a client with the circuit breaker and metrics enabled
func BuildProductionClient(apiKey string) (*Client, error) {
	return New(NewProductionConfig(apiKey))
}

// withBreakerMetrics returns a copy of config whose state callback also
// records breaker metrics. The caller's config is not modified.
func withBreakerMetrics(config *CircuitBreakerConfig, metrics *MetricsRecorder) *CircuitBreakerConfig {
	wrapped := *config
	userCallback := config.OnStateChange
	wrapped.OnStateChange = func(name string, from, to gobreaker.State) {
		metrics.RecordCircuitBreakerState(name, stateToInt(to))
		if to == gobreaker.StateOpen {
			metrics.RecordCircuitBreakerTrip(name)
		}
		if userCallback != nil {
			userCallback(name, from, to)
		}
	}
	return &wrapped
}
