package orchestrator

import (
	"context"

	"github.com/abhisek/aptiq/internal/ratelimit"
)

type contextKey string

const identityKey contextKey = "aptiq_identity"

// WithIdentity attaches the caller identity used for rate limiting.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the caller identity, or the anonymous identity.
func IdentityFrom(ctx context.Context) string {
	if v, ok := ctx.Value(identityKey).(string); ok && v != "" {
		return v
	}
	return ratelimit.Anonymous
}
