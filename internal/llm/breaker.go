package llm

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/abhisek/aptiq/internal/metrics"
)

// BreakerProvider is a decorator that stops calling a failing provider
// for a cool-down period. While open, calls fail fast with
// ErrProviderUnavailable.
type BreakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker[*Response]
}

// WithBreaker wraps a Provider with a circuit breaker. A zero
// FailureThreshold returns p unchanged. m may be nil.
func WithBreaker(p Provider, cfg BreakerConfig, m *metrics.Metrics, logger zerolog.Logger) Provider {
	if cfg.FailureThreshold == 0 {
		return p
	}

	name := "llm:" + p.ModelID()
	if m != nil {
		m.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit breaker state change")
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(float64(to))
				m.BreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			}
		},
		IsSuccessful: breakerSuccess,
	}

	return &BreakerProvider{
		inner: p,
		cb:    gobreaker.NewCircuitBreaker[*Response](settings),
	}
}

// breakerSuccess reports whether err says nothing about upstream health.
// Caller cancellations and schema mismatches do not trip the breaker.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var inv *ErrInvalidResponse
	var maxTok *ErrMaxTokensExceeded
	return errors.As(err, &inv) || errors.As(err, &maxTok)
}

func (b *BreakerProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := b.cb.Execute(func() (*Response, error) {
		return b.inner.Generate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &ErrProviderUnavailable{Err: err}
	}
	return resp, err
}

func (b *BreakerProvider) ModelID() string {
	return b.inner.ModelID()
}

// State returns the breaker's current state.
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}
