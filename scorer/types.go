package scorer

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Attribute names a scoring dimension understood by the comment analyzer
type Attribute string

const (
	Toxicity         Attribute = "TOXICITY"
	IdentityAttack   Attribute = "IDENTITY_ATTACK"
	Insult           Attribute = "INSULT"
	Threat           Attribute = "THREAT"
	SexuallyExplicit Attribute = "SEXUALLY_EXPLICIT"
)

const (
	// DefaultQPS is the query rate granted to new API keys
	DefaultQPS = 1.0

	// DefaultEndpoint is the AnalyzeComment method of the v1alpha1 API
	DefaultEndpoint = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

	// DefaultTimeout bounds a single HTTP round trip
	DefaultTimeout = 30 * time.Second

	// requestLanguage is the only language tag sent with a comment
	requestLanguage = "en"
)

// Score is the result for one attribute. The zero value is the unavailable marker.
type Score struct {
	Value     float64 // Summary score in [0,1]
	Available bool    // False when no score could be obtained
}

// Unavailable marks an attribute whose score could not be obtained
var Unavailable = Score{}

// Outcome tags how a Score call ended
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransportFailure
	OutcomeMalformedResponse
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// ScoreResult holds one entry per attribute configured when the call started
type ScoreResult struct {
	Scores      map[Attribute]Score // Exactly one entry per requested attribute
	Outcome     Outcome             // How the call ended
	Err         error               // Underlying cause when Outcome is not OutcomeSuccess
	ClientToken string              // Correlation token sent with the request
}

// Value returns the score for attr and whether it is available
func (r ScoreResult) Value(attr Attribute) (float64, bool) {
	s, ok := r.Scores[attr]
	if !ok || !s.Available {
		return 0, false
	}
	return s.Value, true
}

// Values returns the available scores only
func (r ScoreResult) Values() map[Attribute]float64 {
	out := make(map[Attribute]float64, len(r.Scores))
	for attr, s := range r.Scores {
		if s.Available {
			out[attr] = s.Value
		}
	}
	return out
}

// Transport sends an AnalyzeComment request to the remote service
type Transport interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
}

// AnalyzeRequest is the JSON body of an AnalyzeComment call
type AnalyzeRequest struct {
	Comment             Comment                       `json:"comment"`
	Languages           []string                      `json:"languages"`
	RequestedAttributes map[Attribute]AttributeConfig `json:"requestedAttributes"`
	DoNotStore          bool                          `json:"doNotStore,omitempty"`
	ClientToken         string                        `json:"clientToken,omitempty"`
}

// Comment carries the text to analyze
type Comment struct {
	Text string `json:"text"`
}

// AttributeConfig is sent empty; the service only looks at which keys are present
type AttributeConfig struct{}

// AnalyzeResponse is the JSON body returned by AnalyzeComment. Pointer fields
// keep absent keys distinguishable from zero scores.
type AnalyzeResponse struct {
	AttributeScores   map[Attribute]AttributeScores `json:"attributeScores"`
	Languages         []string                      `json:"languages,omitempty"`
	DetectedLanguages []string                      `json:"detectedLanguages,omitempty"`
	ClientToken       string                        `json:"clientToken,omitempty"`
}

// AttributeScores holds the scores for one attribute
type AttributeScores struct {
	SummaryScore *SummaryScore `json:"summaryScore"`
}

// SummaryScore is the whole-comment probability for an attribute
type SummaryScore struct {
	Value *float64 `json:"value"`
	Type  string   `json:"type,omitempty"`
}

// HealthStatus represents the health state of the client
type HealthStatus struct {
	Healthy bool                   // Overall health status
	Status  string                 // Human-readable status message
	Details map[string]interface{} // Additional health details
}

// Backend selects the service that answers Score calls
type Backend string

const (
	BackendPerspective Backend = "perspective"       // Perspective AnalyzeComment
	BackendModeration  Backend = "openai_moderation" // OpenAI moderation endpoint
)

// Config holds the configuration for the client
type Config struct {
	Backend              Backend               `yaml:"backend"`                // Empty means BackendPerspective
	APIKey               string                `yaml:"api_key"`                // API key (required)
	QPS                  float64               `yaml:"qps"`                    // Queries per second ceiling
	Attributes           []Attribute           `yaml:"attributes"`             // Attributes to request
	Endpoint             string                `yaml:"endpoint"`               // AnalyzeComment URL, or moderation base URL
	Timeout              time.Duration         `yaml:"timeout"`                // HTTP request timeout
	DoNotStore           bool                  `yaml:"do_not_store"`           // Ask the service not to keep the comment
	EnableMetrics        bool                  `yaml:"enable_metrics"`         // Record Prometheus metrics
	EnableSharedLimiter  bool                  `yaml:"enable_shared_limiter"`  // Token bucket safe for concurrent callers
	EnableCircuitBreaker bool                  `yaml:"enable_circuit_breaker"` // Wrap the transport in a circuit breaker
	CircuitBreakerConfig *CircuitBreakerConfig `yaml:"-"`                      // Circuit breaker configuration
}

// CircuitBreakerConfig holds circuit breaker settings
type CircuitBreakerConfig struct {
	MaxRequests   uint32                                      // Max requests in half-open state
	Interval      time.Duration                               // Interval for closed state
	Timeout       time.Duration                               // Timeout for open state
	ReadyToTrip   func(counts gobreaker.Counts) bool          // Custom trip condition
	OnStateChange func(name string, from, to gobreaker.State) // State change callback
}

// Error definitions
var (
	ErrMissingAPIKey     = errors.New("perspective API key is required")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidQPS        = errors.New("qps must be a positive finite number")
	ErrInvalidAttribute  = errors.New("attribute is not supported")
	ErrEmptyAttributeSet = errors.New("attribute set cannot be empty")
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyResponse     = errors.New("transport returned no response")
)
