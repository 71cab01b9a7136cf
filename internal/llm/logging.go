package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/store"
)

// RequestRecorder persists LLM request events.
type RequestRecorder interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// LoggingProvider is a decorator that records every LLM request as an event.
type LoggingProvider struct {
	inner    Provider
	provider string
	recorder RequestRecorder
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// LoggingOption configures a LoggingProvider.
type LoggingOption func(*LoggingProvider)

// WithRecorder persists each request. A nil recorder is ignored.
func WithRecorder(r RequestRecorder) LoggingOption {
	return func(l *LoggingProvider) { l.recorder = r }
}

// WithLogMetrics counts each request outcome, latency, tokens and
// estimated cost.
func WithLogMetrics(m *metrics.Metrics) LoggingOption {
	return func(l *LoggingProvider) { l.metrics = m }
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(logger zerolog.Logger) LoggingOption {
	return func(l *LoggingProvider) { l.logger = logger }
}

// WithProviderName overrides the provider label recorded with each event.
func WithProviderName(name string) LoggingOption {
	return func(l *LoggingProvider) { l.provider = name }
}

// WithLogging wraps a Provider with event logging.
func WithLogging(p Provider, opts ...LoggingOption) Provider {
	l := &LoggingProvider{inner: p, provider: p.ModelID(), logger: zerolog.Nop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	op := OperationFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	elapsed := time.Since(start)
	outcome := callOutcome(err)

	data := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Operation:   op,
		Outcome:     outcome,
		LatencyMs:   elapsed.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = string(resp.Content)
		data.CostUSD, _ = EstimateCost(data.Model, resp.Usage)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		data.ResponseBody = string(rejectedContent(err))
	}

	if l.metrics != nil {
		l.metrics.ProviderCalls.WithLabelValues(outcome).Inc()
		l.metrics.ProviderLatency.Observe(elapsed.Seconds())
		if resp != nil {
			l.metrics.ProviderTokens.WithLabelValues(op, "input").Add(float64(data.InputTokens))
			l.metrics.ProviderTokens.WithLabelValues(op, "output").Add(float64(data.OutputTokens))
			l.metrics.ProviderCost.WithLabelValues(op).Add(data.CostUSD)
		}
	}

	l.logger.Debug().
		Str("operation", op).
		Str("model", data.Model).
		Str("outcome", outcome).
		Int64("latency_ms", data.LatencyMs).
		Int("input_tokens", data.InputTokens).
		Int("output_tokens", data.OutputTokens).
		Float64("cost_usd", data.CostUSD).
		Err(err).
		Msg("llm request")

	// A recorder failure never fails the request.
	if l.recorder != nil {
		if logErr := l.recorder.AppendLLMRequest(ctx, data); logErr != nil {
			l.logger.Warn().Err(logErr).Msg("failed to record LLM request event")
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// callOutcome is the metrics label and stored outcome for one attempt.
func callOutcome(err error) string {
	var (
		rl       *ErrRateLimit
		unavail  *ErrProviderUnavailable
		rejected *ErrRejected
		invalid  *ErrInvalidResponse
		trunc    *ErrMaxTokensExceeded
	)
	switch {
	case err == nil:
		return "ok"
	case IsTimeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.As(err, &trunc):
		return "truncated"
	case errors.As(err, &invalid):
		return "invalid"
	case errors.As(err, &unavail):
		return "unavailable"
	default:
		return "error"
	}
}

// rejectedContent returns the model text carried by a malformed or
// truncated answer, if any.
func rejectedContent(err error) json.RawMessage {
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		return invalid.Content
	}
	var trunc *ErrMaxTokensExceeded
	if errors.As(err, &trunc) {
		return trunc.Content
	}
	return nil
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(fmt.Sprintf("[%s]\n", m.Role))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		schemaDef, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			b.WriteString(fmt.Sprintf("[schema: %s]\n", req.Schema.Name))
			b.WriteString(string(schemaDef))
			b.WriteString("\n")
		}
	}

	return b.String()
}
