package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Every adapter reports upstream trouble through the types below so the
// middleware and the orchestrator never inspect SDK errors directly.

// ErrRateLimit means the upstream answered 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("upstream rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderTimeout means the call ran out of time, either on the caller's
// deadline or on a transport timeout.
type ErrProviderTimeout struct {
	Err error
}

func (e *ErrProviderTimeout) Error() string {
	return fmt.Sprintf("provider timed out: %v", e.Err)
}

func (e *ErrProviderTimeout) Unwrap() error { return e.Err }

// Is lets errors.Is(err, context.DeadlineExceeded) hold for every timeout,
// including transport timeouts that do not wrap the context error.
func (e *ErrProviderTimeout) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// ErrProviderUnavailable means the upstream is down, unreachable, or the
// circuit breaker is open. Status is zero when no response was received.
type ErrProviderUnavailable struct {
	Status int
	Err    error
}

func (e *ErrProviderUnavailable) Error() string {
	switch {
	case e.Err == nil:
		return "provider unavailable"
	case e.Status != 0:
		return fmt.Sprintf("provider unavailable (HTTP %d): %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("provider unavailable: %v", e.Err)
	}
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrRejected means the upstream refused the request itself: a bad key, an
// unknown model or a malformed request. Retrying cannot help.
type ErrRejected struct {
	Status int
	Err    error
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("provider rejected request (HTTP %d): %v", e.Status, e.Err)
}

func (e *ErrRejected) Unwrap() error { return e.Err }

// ErrInvalidResponse means the model answered with content that is not the
// JSON object the request asked for. Content keeps the raw answer.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid model response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded means a JSON answer was cut off at MaxTokens.
// Content holds the partial output.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "model response truncated at max tokens"
}

// IsTimeout reports whether err is a provider timeout.
func IsTimeout(err error) bool {
	var to *ErrProviderTimeout
	return errors.As(err, &to) || errors.Is(err, context.DeadlineExceeded)
}

// statusError maps an HTTP failure reported by an SDK.
func statusError(status int, retryAfter time.Duration, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: retryAfter, Err: err}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &ErrProviderTimeout{Err: err}
	case status >= 500:
		return &ErrProviderUnavailable{Status: status, Err: err}
	case status >= 400:
		return &ErrRejected{Status: status, Err: err}
	default:
		return &ErrProviderUnavailable{Status: status, Err: err}
	}
}

// transportError maps a failure that produced no HTTP status. Caller
// cancellation passes through untouched.
func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ErrProviderTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ErrProviderTimeout{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. It returns zero when the header is absent or unreadable.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
