package llm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNoCredentials is returned when provider "auto" finds no API key.
var ErrNoCredentials = errors.New("no LLM API key found in environment")

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "auto", "anthropic", "openai", "gemini", "openrouter", "mock", "offline"
	Provider string `koanf:"provider" validate:"required,oneof=auto anthropic openai gemini openrouter mock offline"`

	Anthropic  AnthropicConfig  `koanf:"anthropic"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Gemini     GeminiConfig     `koanf:"gemini"`
	OpenRouter OpenRouterConfig `koanf:"openrouter"`
	Retry      RetryConfig      `koanf:"retry"`
	Throttle   ThrottleConfig   `koanf:"throttle"`
	Breaker    BreakerConfig    `koanf:"breaker"`

	// StructuredOutput hands each operation's answer schema to the
	// provider. Without it providers are only put in JSON mode.
	StructuredOutput bool `koanf:"structured_output"`

	MaxTokens   int     `koanf:"max_tokens" validate:"gte=1"`
	Temperature float64 `koanf:"temperature" validate:"gte=0,lte=1"`

	// Timeout is the maximum duration for a single LLM request
	// (including retries). Default: 30s.
	Timeout time.Duration `koanf:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`    // alias or model id; default "claude-haiku"
	BaseURL string `koanf:"base_url"` // optional, for gateways and tests
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`    // alias ("gpt-mini", "gpt") or model id
	BaseURL string `koanf:"base_url"` // optional, for compatible APIs
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`    // alias or model id; default "gemini-flash"
	BaseURL string `koanf:"base_url"` // optional
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`    // Default: "google/gemini-2.0-flash-exp"
	BaseURL string `koanf:"base_url"` // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
	InitialWait time.Duration `koanf:"initial_wait"`
	MaxWait     time.Duration `koanf:"max_wait"`
	Multiplier  float64       `koanf:"multiplier" validate:"gte=1"`
}

// ThrottleConfig caps the request rate sent upstream. A zero
// RequestsPerSecond disables throttling.
type ThrottleConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`
}

// BreakerConfig configures the provider circuit breaker. A zero
// FailureThreshold disables the breaker.
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
	Interval         time.Duration `koanf:"interval"`
	HalfOpenRequests uint32        `koanf:"half_open_requests"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "auto",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     4 * time.Second,
			Multiplier:  2.0,
		},
		Throttle: ThrottleConfig{
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			Interval:         time.Minute,
			HalfOpenRequests: 1,
		},
		MaxTokens:   1024,
		Temperature: 0.3,
		Timeout:     30 * time.Second,
	}
}

// credentialSources lists, in discovery order, the environment variable
// each provider's key is read from and where it lands in Config.
var credentialSources = []struct {
	provider string
	env      string
	key      func(*Config) *string
}{
	{"gemini", "GEMINI_API_KEY", func(c *Config) *string { return &c.Gemini.APIKey }},
	{"openai", "OPENAI_API_KEY", func(c *Config) *string { return &c.OpenAI.APIKey }},
	{"anthropic", "ANTHROPIC_API_KEY", func(c *Config) *string { return &c.Anthropic.APIKey }},
	{"openrouter", "OPENROUTER_API_KEY", func(c *Config) *string { return &c.OpenRouter.APIKey }},
}

// DiscoverConfig selects the first provider whose standard API key
// variable is set and copies the key into base. ok is false when none is.
func DiscoverConfig(base Config) (cfg Config, ok bool) {
	for _, src := range credentialSources {
		k := os.Getenv(src.env)
		if k == "" {
			continue
		}
		cfg = base
		cfg.Provider = src.provider
		*src.key(&cfg) = k
		return cfg, true
	}
	return base, false
}

// Validate checks that an explicitly selected provider has its key.
func (c Config) Validate() error {
	switch c.Provider {
	case "mock", "offline", "auto":
		return nil
	}
	for _, src := range credentialSources {
		if src.provider != c.Provider {
			continue
		}
		if *src.key(&c) == "" {
			return fmt.Errorf("APTIQ_LLM__%s__API_KEY is required for the %s provider",
				strings.ToUpper(src.provider), src.provider)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider: %q", c.Provider)
}
