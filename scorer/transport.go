package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	perspective "github.com/JohnPlummer/perspective-client"
)

// maxErrorBody caps how much of a failed response is read for the message
const maxErrorBody = 64 << 10

// HTTPTransport posts AnalyzeComment requests to the comment analyzer
type HTTPTransport struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewHTTPTransport creates a transport bound to endpoint and apiKey. A nil
// client gets a default http.Client with DefaultTimeout.
func NewHTTPTransport(endpoint, apiKey string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPTransport{
		client:   client,
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// Analyze sends req and decodes the reply. Non-2xx replies become *APIError.
func (t *HTTPTransport) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyze request: %w", err)
	}

	target, err := t.requestURL()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", perspective.UserAgent())

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var out AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode analyze response: %w", ErrMalformedResponse, err)
	}
	return &out, nil
}

func (t *HTTPTransport) requestURL() (string, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint %q", ErrInvalidConfig, t.endpoint)
	}
	q := u.Query()
	q.Set("key", t.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// googleErrorEnvelope is the error body returned by Google APIs
type googleErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	var envelope googleErrorEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Status = envelope.Error.Status
		return apiErr
	}

	apiErr.Message = string(bytes.TrimSpace(data))
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
