package scorer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
)

// APIError is a non-2xx reply from the comment analyzer
type APIError struct {
	StatusCode int    // HTTP status code
	Status     string // Google RPC status, e.g. INVALID_ARGUMENT
	Message    string // Human-readable message from the error envelope
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("perspective API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("perspective API error %d: %s", e.StatusCode, e.Message)
}

// MalformedResponseError reports a response that lacks a requested score
type MalformedResponseError struct {
	Attribute Attribute // Attribute whose score could not be read
	Path      string    // Path into the response that was missing or invalid
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response for %s: %s", e.Attribute, e.Path)
}

// Unwrap lets errors.Is match ErrMalformedResponse
func (e *MalformedResponseError) Unwrap() error {
	return ErrMalformedResponse
}

// statusCode extracts an HTTP status from either transport's API error
func statusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

// classifyError returns error type for metrics
func classifyError(err error) string {
	if err == nil {
		return "none"
	}

	if errors.Is(err, ErrMalformedResponse) {
		return "malformed_response"
	}

	if code, ok := statusCode(err); ok {
		switch {
		case code == http.StatusTooManyRequests:
			return "rate_limit"
		case code >= 500:
			return "server_error"
		case code >= 400:
			return "client_error"
		default:
			return "api_error"
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	if errors.Is(err, gobreaker.ErrOpenState) {
		return "circuit_open"
	}

	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "circuit_half_open"
	}

	return "unknown"
}

// isMalformed reports whether err already signals a malformed response
func isMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}
