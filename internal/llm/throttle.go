package llm

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ThrottleProvider is a decorator that caps the request rate sent to the
// wrapped provider. Callers block until a token is available or their
// context ends.
type ThrottleProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithThrottle wraps a Provider with a token-bucket rate limit. A
// non-positive RequestsPerSecond returns p unchanged.
func WithThrottle(p Provider, cfg ThrottleConfig) Provider {
	if cfg.RequestsPerSecond <= 0 {
		return p
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &ThrottleProvider{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

func (t *ThrottleProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		// Wait fails fast when the deadline cannot be met.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, &ErrProviderTimeout{Err: err}
	}
	return t.inner.Generate(ctx, req)
}

func (t *ThrottleProvider) ModelID() string {
	return t.inner.ModelID()
}
