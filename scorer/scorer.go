package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/JohnPlummer/perspective-client/scorer"

// Client scores text against the comment analyzer. QPS and the attribute
// set may be changed between calls; a call uses the values current when it
// starts.
type Client struct {
	transport  Transport
	limiter    Limiter
	metrics    *MetricsRecorder
	tracer     trace.Tracer
	doNotStore bool

	mu         sync.RWMutex
	qps        float64
	attributes []Attribute
}

// Option configures a Client built with NewWithTransport
type Option func(*Client)

// WithQPS sets the queries per second ceiling
func WithQPS(qps float64) Option {
	return func(c *Client) {
		c.qps = qps
	}
}

// WithAttributes sets the initial attributes to request
func WithAttributes(attrs ...Attribute) Option {
	return func(c *Client) {
		c.attributes = attrs
	}
}

// WithLimiter replaces the default DelayLimiter
func WithLimiter(l Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *MetricsRecorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithDoNotStore asks the service not to retain analyzed comments
func WithDoNotStore() Option {
	return func(c *Client) {
		c.doNotStore = true
	}
}

// NewWithTransport creates a client around a custom or mock Transport.
// Defaults are QPS 1 and [TOXICITY]. The initial QPS and attributes are
// validated the same way the setters validate them.
func NewWithTransport(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidConfig)
	}

	c := &Client{
		transport:  transport,
		limiter:    NewDelayLimiter(),
		metrics:    NewMetricsRecorder(false),
		tracer:     otel.Tracer(tracerName),
		qps:        DefaultQPS,
		attributes: []Attribute{Toxicity},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := validateQPS(c.qps); err != nil {
		return nil, err
	}
	if err := ValidateAttributes(c.attributes); err != nil {
		return nil, err
	}
	c.attributes = normalizeAttributes(c.attributes)

	return c, nil
}

// Score waits out the rate limit, sends text for analysis and returns one
// entry per configured attribute. Transport failures are logged and yield
// Unavailable entries with a nil error. A response that cannot be decoded or
// is missing a requested score returns an error matching ErrMalformedResponse
// alongside the partial result.
func (c *Client) Score(ctx context.Context, text string) (ScoreResult, error) {
	qps, attrs := c.snapshot()

	result := ScoreResult{
		Scores:      newUnavailableScores(attrs),
		ClientToken: uuid.NewString(),
	}

	ctx, span := c.tracer.Start(ctx, "perspective.Score",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("perspective.text_length", len(text)),
			attribute.StringSlice("perspective.attributes", attributeStrings(attrs)),
			attribute.Float64("perspective.qps", qps),
			attribute.String("perspective.client_token", result.ClientToken),
		))
	defer span.End()

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx, qps); err != nil {
		c.metrics.RecordRateLimitWait(time.Since(waitStart).Seconds())
		return c.transportFailure(span, result, fmt.Errorf("rate limiter wait aborted: %w", err)), nil
	}
	c.metrics.RecordRateLimitWait(time.Since(waitStart).Seconds())

	req := BuildRequest(text, attrs, RequestOptions{
		DoNotStore:  c.doNotStore,
		ClientToken: result.ClientToken,
	})

	start := time.Now()
	resp, err := c.transport.Analyze(ctx, req)
	c.metrics.RecordRequestDuration(time.Since(start).Seconds())
	if err != nil {
		if isMalformed(err) {
			return c.malformed(span, result, err)
		}
		return c.transportFailure(span, result, err), nil
	}
	if resp == nil {
		return c.malformed(span, result, ErrEmptyResponse)
	}

	scores, err := ExtractScores(resp, attrs)
	result.Scores = scores
	if err != nil {
		return c.malformed(span, result, err)
	}

	result.Outcome = OutcomeSuccess
	c.metrics.RecordRequest(OutcomeSuccess)
	c.metrics.RecordScores(scores)
	span.SetStatus(codes.Ok, "")

	slog.Debug("Text scored",
		"client_token", result.ClientToken,
		"scores", result.Values())

	return result, nil
}

func (c *Client) transportFailure(span trace.Span, result ScoreResult, err error) ScoreResult {
	slog.Warn("Perspective request failed, returning unavailable scores",
		"error", err,
		"client_token", result.ClientToken)

	result.Outcome = OutcomeTransportFailure
	result.Err = err
	c.metrics.RecordRequest(OutcomeTransportFailure)
	c.metrics.RecordError(classifyError(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, "transport failure")
	return result
}

func (c *Client) malformed(span trace.Span, result ScoreResult, err error) (ScoreResult, error) {
	if !isMalformed(err) {
		err = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	slog.Error("Perspective returned a malformed response",
		"error", err,
		"client_token", result.ClientToken)

	result.Outcome = OutcomeMalformedResponse
	result.Err = err
	c.metrics.RecordRequest(OutcomeMalformedResponse)
	c.metrics.RecordError(classifyError(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, "malformed response")
	return result, err
}

// snapshot copies the state a single call works from
func (c *Client) snapshot() (float64, []Attribute) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs := make([]Attribute, len(c.attributes))
	copy(attrs, c.attributes)
	return c.qps, attrs
}

// QPS returns the queries per second ceiling
func (c *Client) QPS() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.qps
}

// SetQPS changes the ceiling for later calls. Non-positive, NaN and
// infinite values are rejected with a warning and leave the ceiling unchanged.
func (c *Client) SetQPS(qps float64) error {
	if err := validateQPS(qps); err != nil {
		slog.Warn("Rejected qps change", "qps", qps, "error", err)
		return err
	}
	c.mu.Lock()
	c.qps = qps
	c.mu.Unlock()
	return nil
}

// Attributes returns a copy of the attributes requested on each call
func (c *Client) Attributes() []Attribute {
	_, attrs := c.snapshot()
	return attrs
}

// AddAttribute appends attr if it is supported and not already present.
// Unsupported names are rejected with a warning.
func (c *Client) AddAttribute(attr Attribute) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if containsAttribute(c.attributes, attr) {
		return nil
	}
	if err := ValidateAttribute(attr); err != nil {
		slog.Warn("Attribute is not supported, try again", "attribute", attr)
		return err
	}

	// Copy so slices handed out earlier never see the append
	next := make([]Attribute, len(c.attributes), len(c.attributes)+1)
	copy(next, c.attributes)
	c.attributes = append(next, attr)
	return nil
}

// SetAttributes replaces the attribute set with a copy of attrs. An empty
// set or any unsupported name rejects the whole change with a warning.
func (c *Client) SetAttributes(attrs []Attribute) error {
	if err := ValidateAttributes(attrs); err != nil {
		if len(attrs) == 0 {
			slog.Warn("Expected non-empty set of attributes")
		} else {
			slog.Warn("Rejected attribute set", "attributes", attrs, "error", err)
		}
		return err
	}

	next := normalizeAttributes(attrs)
	c.mu.Lock()
	c.attributes = next
	c.mu.Unlock()
	return nil
}

// GetHealth reports the client configuration and, when the transport
// exposes one, its health
func (c *Client) GetHealth(_ context.Context) HealthStatus {
	qps, attrs := c.snapshot()

	status := HealthStatus{
		Healthy: true,
		Status:  "healthy",
		Details: map[string]interface{}{},
	}

	if h, ok := c.transport.(interface{ GetHealth() HealthStatus }); ok {
		status = h.GetHealth()
		if status.Details == nil {
			status.Details = map[string]interface{}{}
		}
	}

	status.Details["qps"] = qps
	status.Details["attributes"] = attributeStrings(attrs)
	status.Details["rate_limit_interval"] = Interval(qps).String()
	return status
}

func attributeStrings(attrs []Attribute) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = string(a)
	}
	return out
}
