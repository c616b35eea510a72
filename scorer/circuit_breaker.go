package scorer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerTransport wraps a Transport with circuit breaker functionality
type CircuitBreakerTransport struct {
	transport Transport
	cb        *gobreaker.CircuitBreaker[*AnalyzeResponse]
}

// NewCircuitBreakerTransport creates a new circuit breaker wrapper around a Transport
func NewCircuitBreakerTransport(transport Transport, config *CircuitBreakerConfig) *CircuitBreakerTransport {
	if config == nil {
		config = defaultCircuitBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:        "perspective-api",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: config.ReadyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())

			if config.OnStateChange != nil {
				config.OnStateChange(name, from, to)
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Rate limits and cancellations are not the service's fault
			return !ShouldTripCircuit(err)
		},
	}

	return &CircuitBreakerTransport{
		transport: transport,
		cb:        gobreaker.NewCircuitBreaker[*AnalyzeResponse](settings),
	}
}

// Analyze executes the call through the circuit breaker
func (w *CircuitBreakerTransport) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	resp, err := w.cb.Execute(func() (*AnalyzeResponse, error) {
		return w.transport.Analyze(ctx, req)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Debug("Circuit breaker is open, request rejected",
				"error", err)
		} else if errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Debug("Circuit breaker in half-open state, too many requests",
				"error", err)
		} else {
			slog.Debug("Request failed through circuit breaker",
				"error", err,
				"should_trip", ShouldTripCircuit(err))
		}
	}

	return resp, err
}

// State returns the current state of the circuit breaker
func (w *CircuitBreakerTransport) State() gobreaker.State {
	return w.cb.State()
}

// Counts returns the current counts of the circuit breaker
func (w *CircuitBreakerTransport) Counts() gobreaker.Counts {
	return w.cb.Counts()
}

// GetHealth returns the health status of the circuit breaker
func (w *CircuitBreakerTransport) GetHealth() HealthStatus {
	state := w.cb.State()
	counts := w.cb.Counts()

	var healthy bool
	var status string

	switch state {
	case gobreaker.StateClosed:
		healthy = true
		status = "closed"
	case gobreaker.StateHalfOpen:
		healthy = true // Degraded but operational
		status = "half-open"
	case gobreaker.StateOpen:
		healthy = false
		status = "open"
	default:
		status = "unknown"
	}

	details := map[string]interface{}{
		"state":                 state.String(),
		"requests":              counts.Requests,
		"total_successes":       counts.TotalSuccesses,
		"total_failures":        counts.TotalFailures,
		"consecutive_failures":  counts.ConsecutiveFailures,
		"consecutive_successes": counts.ConsecutiveSuccesses,
	}

	return HealthStatus{
		Healthy: healthy,
		Status:  status,
		Details: details,
	}
}

// ShouldTripCircuit determines if an error should cause the circuit to trip
func ShouldTripCircuit(err error) bool {
	if err == nil {
		return false
	}

	if code, ok := statusCode(err); ok {
		switch {
		case code == http.StatusTooManyRequests: // quota exhausted, expected under load
			return false
		case code >= 400:
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// Unknown errors should trip the circuit
	return true
}

// stateToInt converts circuit breaker state to int for metrics
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
