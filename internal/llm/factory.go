package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/abhisek/aptiq/internal/metrics"
)

// OfflineProvider always reports the upstream as unavailable. It stands in
// when no credentials are configured so callers take their fallback path.
type OfflineProvider struct{}

func (OfflineProvider) Generate(context.Context, Request) (*Response, error) {
	return nil, &ErrProviderUnavailable{Err: ErrNoCredentials}
}

func (OfflineProvider) ModelID() string { return "offline" }

// Deps are the collaborators shared by the provider middleware. All
// fields are optional.
type Deps struct {
	Recorder RequestRecorder
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with breaker, retry, throttle and
// logging middleware.
func NewProvider(ctx context.Context, cfg Config, deps Deps) (Provider, error) {
	if cfg.Provider == "auto" {
		discovered, ok := DiscoverConfig(cfg)
		if !ok {
			deps.Logger.Warn().Err(ErrNoCredentials).Msg("running without a generative provider")
			return OfflineProvider{}, nil
		}
		cfg = discovered
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	case "offline":
		return OfflineProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg, deps, cfg.Provider), nil
}

// Wrap applies the standard middleware chain:
// caller → breaker → retry → throttle → logging → base.
func Wrap(base Provider, cfg Config, deps Deps, name string) Provider {
	logged := WithLogging(base,
		WithProviderName(name),
		WithRecorder(deps.Recorder),
		WithLogMetrics(deps.Metrics),
		WithLogger(deps.Logger),
	)
	throttled := WithThrottle(logged, cfg.Throttle)
	retried := WithRetry(throttled, cfg.Retry, deps.Metrics)
	return WithBreaker(retried, cfg.Breaker, deps.Metrics, deps.Logger)
}
