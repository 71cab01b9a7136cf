package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/aptiq/internal/metrics"
)

// RetryProvider retries transient provider failures with jittered
// exponential backoff, inside whatever deadline the caller set.
type RetryProvider struct {
	inner   Provider
	config  RetryConfig
	metrics *metrics.Metrics
}

// WithRetry wraps p with retries. m may be nil.
func WithRetry(p Provider, cfg RetryConfig, m *metrics.Metrics) Provider {
	return &RetryProvider{inner: p, config: cfg, metrics: m}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(r.config.MaxAttempts, 1)
	invalidRetried := false

	for attempt := 0; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		reason, retry := retryReason(err, &invalidRetried)
		if !retry || attempt == attempts-1 {
			return nil, err
		}

		wait := r.backoff(attempt, err)
		// Give up when the wait would outlive the deadline.
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= wait {
			return nil, err
		}

		if r.metrics != nil {
			r.metrics.ProviderRetries.WithLabelValues(reason).Inc()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &ErrProviderTimeout{Err: ctx.Err()}
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// retryReason classifies err and reports whether another attempt may help.
// A malformed answer is retried once; timeouts and rejections never are.
func retryReason(err error, invalidRetried *bool) (string, bool) {
	var (
		rl       *ErrRateLimit
		unavail  *ErrProviderUnavailable
		invalid  *ErrInvalidResponse
		rejected *ErrRejected
		trunc    *ErrMaxTokensExceeded
	)
	switch {
	case errors.Is(err, context.Canceled), IsTimeout(err):
		return "", false
	case errors.As(err, &rejected), errors.As(err, &trunc):
		return "", false
	case errors.As(err, &rl):
		return "rate_limited", true
	case errors.As(err, &unavail):
		return "unavailable", true
	case errors.As(err, &invalid):
		if *invalidRetried {
			return "", false
		}
		*invalidRetried = true
		return "invalid_response", true
	default:
		return "unknown", true
	}
}

func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	wait = math.Min(wait, float64(r.config.MaxWait))
	// ±20% jitter.
	wait *= 1 + 0.2*(2*rand.Float64()-1)
	return time.Duration(math.Max(wait, 0))
}
