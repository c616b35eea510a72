package scorer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig
const (
	EnvAPIKey     = "PERSPECTIVE_API_KEY"
	EnvQPS        = "PERSPECTIVE_QPS"
	EnvAttributes = "PERSPECTIVE_ATTRIBUTES"
	EnvEndpoint   = "PERSPECTIVE_ENDPOINT"
	EnvTimeout    = "PERSPECTIVE_TIMEOUT"
	EnvDoNotStore = "PERSPECTIVE_DO_NOT_STORE"
	EnvBackend    = "PERSPECTIVE_BACKEND"
)

// NewDefaultConfig creates a config with sensible defaults
func NewDefaultConfig(apiKey string) Config {
	if apiKey == "" {
		panic("API key is required")
	}

	return Config{
		APIKey:     apiKey,
		QPS:        DefaultQPS,
		Attributes: []Attribute{Toxicity},
		Endpoint:   DefaultEndpoint,
		Timeout:    DefaultTimeout,
	}
}

// NewProductionConfig creates a config with the circuit breaker and metrics enabled
func NewProductionConfig(apiKey string) Config {
	cfg := NewDefaultConfig(apiKey)
	cfg.Timeout = 60 * time.Second
	cfg.EnableMetrics = true

	return cfg.WithCircuitBreaker()
}

// WithCircuitBreaker enables circuit breaker with default settings
func (c Config) WithCircuitBreaker() Config {
	c.EnableCircuitBreaker = true
	c.CircuitBreakerConfig = defaultCircuitBreakerConfig()
	return c
}

// WithCircuitBreakerConfig enables circuit breaker with custom settings
func (c Config) WithCircuitBreakerConfig(config *CircuitBreakerConfig) Config {
	c.EnableCircuitBreaker = true
	c.CircuitBreakerConfig = config
	return c
}

// WithBackend selects the scoring service
func (c Config) WithBackend(backend Backend) Config {
	c.Backend = backend
	return c
}

// WithQPS sets the queries per second ceiling
func (c Config) WithQPS(qps float64) Config {
	c.QPS = qps
	return c
}

// WithAttributes sets the attributes to request. The slice is copied.
func (c Config) WithAttributes(attrs ...Attribute) Config {
	c.Attributes = append([]Attribute(nil), attrs...)
	return c
}

// WithEndpoint overrides the AnalyzeComment URL
func (c Config) WithEndpoint(endpoint string) Config {
	c.Endpoint = endpoint
	return c
}

// WithTimeout sets the request timeout
func (c Config) WithTimeout(timeout time.Duration) Config {
	if timeout < 0 {
		panic("timeout must be positive")
	}
	c.Timeout = timeout
	return c
}

// WithDoNotStore asks the service not to retain analyzed comments
func (c Config) WithDoNotStore() Config {
	c.DoNotStore = true
	return c
}

// WithMetrics enables Prometheus metrics
func (c Config) WithMetrics() Config {
	c.EnableMetrics = true
	return c
}

// WithSharedLimiter switches to a token bucket that is safe for concurrent callers
func (c Config) WithSharedLimiter() Config {
	c.EnableSharedLimiter = true
	return c
}

// Validate checks if the config is valid
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	switch c.Backend {
	case "", BackendPerspective, BackendModeration:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}

	if err := validateQPS(c.QPS); err != nil {
		return err
	}

	if err := ValidateAttributes(c.Attributes); err != nil {
		return err
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: invalid endpoint %q", ErrInvalidConfig, c.Endpoint)
		}
	}

	if c.Timeout < 0 {
		return errors.New("timeout must be positive")
	}

	if c.EnableCircuitBreaker && c.CircuitBreakerConfig == nil {
		return errors.New("circuit breaker enabled but config is nil")
	}

	return nil
}

// validateQPS rejects values that would give a zero, negative or undefined delay
func validateQPS(qps float64) error {
	if qps <= 0 || math.IsNaN(qps) || math.IsInf(qps, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidQPS, qps)
	}
	if safetyMargin/qps*float64(time.Second) >= math.MaxInt64 {
		return fmt.Errorf("%w: %v is too slow, the delay would exceed %v", ErrInvalidQPS, qps, time.Duration(math.MaxInt64))
	}
	return nil
}

func defaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if 5 consecutive failures OR failure rate > 60%
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && failureRatio > 0.6)
		},
	}
}

// LoadConfig loads configuration from an optional YAML file and then applies
// PERSPECTIVE_* environment variables on top. Unset fields keep the defaults
// of NewDefaultConfig.
func LoadConfig(configPath string) (Config, error) {
	cfg := Config{
		QPS:        DefaultQPS,
		Attributes: []Attribute{Toxicity},
		Endpoint:   DefaultEndpoint,
		Timeout:    DefaultTimeout,
	}

	if configPath != "" {
		if err := loadFromFile(&cfg, configPath); err != nil {
			return Config{}, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(&cfg)

	if cfg.EnableCircuitBreaker && cfg.CircuitBreakerConfig == nil {
		cfg.CircuitBreakerConfig = defaultCircuitBreakerConfig()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment overrides fields from environment variables. Values
// that fail to parse are logged and ignored.
func loadFromEnvironment(cfg *Config) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.APIKey = key
	}

	if v := os.Getenv(EnvQPS); v != "" {
		if qps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.QPS = qps
		} else {
			slog.Warn("Ignoring unparseable environment value", "variable", EnvQPS, "value", v)
		}
	}

	if v := os.Getenv(EnvAttributes); strings.TrimSpace(v) != "" {
		cfg.Attributes = ParseAttributes(v)
	}

	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(v)))
	}

	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		} else {
			slog.Warn("Ignoring unparseable environment value", "variable", EnvTimeout, "value", v)
		}
	}

	if v := os.Getenv(EnvDoNotStore); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DoNotStore = b
		} else {
			slog.Warn("Ignoring unparseable environment value", "variable", EnvDoNotStore, "value", v)
		}
	}
}
