// Package orchestrator runs generative operations through the response
// cache, the per-identity rate limiter and the provider, falling back to
// static payloads whenever the provider path cannot produce an answer.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/aptiq/internal/cache"
	"github.com/abhisek/aptiq/internal/llm"
	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/ratelimit"
	"github.com/abhisek/aptiq/internal/store"
)

// Admitter decides whether an identity may make a provider call now.
type Admitter interface {
	CheckAndRecord(identity string, now time.Time) ratelimit.Decision
}

// EventRecorder persists one record per orchestrated operation.
type EventRecorder interface {
	AppendOrchestration(ctx context.Context, data store.OrchestrationEventData) error
}

// Config tunes the orchestrator.
type Config struct {
	// ProviderTimeout bounds a single provider call, retries included.
	ProviderTimeout time.Duration
	// CacheTTL is the lifetime of cached provider payloads.
	CacheTTL time.Duration
	// StructuredOutput passes the operation schema to the provider.
	StructuredOutput bool
	MaxTokens        int
	Temperature      float64
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		ProviderTimeout: 12 * time.Second,
		CacheTTL:        cache.DefaultTTL,
		MaxTokens:       1024,
		Temperature:     0.3,
	}
}

// Call describes one generative operation.
type Call struct {
	Operation   string
	Fingerprint string
	Request     llm.Request
	Schema      *llm.Schema
	// Fallback builds the static payload used when the provider path fails.
	Fallback func() Payload
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	provider llm.Provider
	cache    cache.Store
	limiter  Admitter
	cfg      Config

	recorder EventRecorder
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time

	flight singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the default tuning. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		def := DefaultConfig()
		if cfg.ProviderTimeout <= 0 {
			cfg.ProviderTimeout = def.ProviderTimeout
		}
		if cfg.CacheTTL <= 0 {
			cfg.CacheTTL = def.CacheTTL
		}
		if cfg.MaxTokens <= 0 {
			cfg.MaxTokens = def.MaxTokens
		}
		o.cfg = cfg
	}
}

// WithRecorder persists an event for every execution.
func WithRecorder(r EventRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides the time source used for rate checks.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(provider llm.Provider, c cache.Store, limiter Admitter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		cache:    c,
		limiter:  limiter,
		cfg:      DefaultConfig(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outcome is what one provider attempt produced. An empty kind means a
// well-formed payload.
type outcome struct {
	payload Payload
	kind    ErrorKind
	err     error
}

// Execute runs call through the cache, the rate limiter and the provider.
// It never returns a failure for provider trouble: those paths produce a
// degraded success.
func (o *Orchestrator) Execute(ctx context.Context, call Call) (res Result) {
	start := time.Now()
	identity := IdentityFrom(ctx)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Str("operation", call.Operation).Msg("orchestration panicked")
			res = Failed(KindInternal, fmt.Sprintf("internal error: %v", r))
		}
		o.observe(ctx, call.Operation, call.Fingerprint, identity, res, time.Since(start))
	}()

	if p, ok := o.lookup(call); ok {
		return Succeeded(p, SourceCache)
	}

	if o.limiter != nil && o.limiter.CheckAndRecord(identity, o.now()) == ratelimit.Denied {
		return o.fallback(call, KindRateLimitExceeded)
	}

	out := o.generate(ctx, call)
	switch out.kind {
	case "":
		o.store(call, out.payload)
		return Succeeded(out.payload, SourceProvider)
	case KindMalformedResponse:
		return Degrade(out.payload, SourceProvider, KindMalformedResponse)
	default:
		o.logger.Warn().
			Err(out.err).
			Str("operation", call.Operation).
			Str("reason", string(out.kind)).
			Msg("provider path failed, using fallback")
		return o.fallback(call, out.kind)
	}
}

// Reject records a validation failure that never reached Execute.
func (o *Orchestrator) Reject(ctx context.Context, operation string, err error) Result {
	res := FailedErr(err)
	o.observe(ctx, operation, "", IdentityFrom(ctx), res, 0)
	return res
}

func (o *Orchestrator) lookup(call Call) (Payload, bool) {
	if o.cache == nil || call.Fingerprint == "" {
		return Payload{}, false
	}

	raw, ok, err := o.cache.Get(call.Fingerprint)
	if err != nil {
		o.countLookup("error")
		o.logger.Warn().Err(err).Str("key", call.Fingerprint).Msg("cache lookup failed")
		return Payload{}, false
	}
	if !ok {
		o.countLookup("miss")
		return Payload{}, false
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		o.countLookup("error")
		o.logger.Warn().Err(err).Str("key", call.Fingerprint).Msg("dropping undecodable cache entry")
		_ = o.cache.Delete(call.Fingerprint)
		return Payload{}, false
	}
	o.countLookup("hit")
	return p, true
}

func (o *Orchestrator) store(call Call, p Payload) {
	if o.cache == nil || call.Fingerprint == "" {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		o.logger.Warn().Err(err).Msg("encode cache entry")
		return
	}
	if err := o.cache.Set(call.Fingerprint, raw, o.cfg.CacheTTL); err != nil {
		o.logger.Warn().Err(err).Str("key", call.Fingerprint).Msg("cache write failed")
	}
}

// generate calls the provider, coalescing identical in-flight requests.
// The shared call runs detached from any single caller's cancellation;
// each caller still stops waiting when its own context ends.
func (o *Orchestrator) generate(ctx context.Context, call Call) outcome {
	if call.Fingerprint == "" {
		return o.attempt(ctx, call)
	}

	ch := o.flight.DoChan(call.Fingerprint, func() (any, error) {
		return o.attempt(context.WithoutCancel(ctx), call), nil
	})

	select {
	case r := <-ch:
		return r.Val.(outcome)
	case <-ctx.Done():
		return outcome{kind: contextKind(ctx.Err()), err: ctx.Err()}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, call Call) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{kind: KindProviderUnavailable, err: fmt.Errorf("provider panic: %v", r)}
		}
	}()

	if o.provider == nil {
		return outcome{kind: KindProviderUnavailable, err: errors.New("no provider configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
	defer cancel()
	ctx = llm.WithOperation(ctx, call.Operation)

	req := call.Request
	req.JSON = true
	req.User = upstreamUser(IdentityFrom(ctx))
	if req.MaxTokens == 0 {
		req.MaxTokens = o.cfg.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = o.cfg.Temperature
	}
	if o.cfg.StructuredOutput {
		req.Schema = call.Schema
	}

	resp, err := o.provider.Generate(ctx, req)
	if err != nil {
		return classify(err)
	}

	text := resp.Text()
	data, ok := ExtractJSON(text)
	if ok && call.Schema != nil {
		ok = llm.ValidateJSON(call.Schema, data) == nil
	}
	if !ok {
		return outcome{payload: Payload{Text: text}, kind: KindMalformedResponse}
	}
	return outcome{payload: Payload{Data: data, Text: text}}
}

// classify maps a provider error to an outcome. Answers the provider
// rejected as malformed or truncated keep their raw text.
func classify(err error) outcome {
	if llm.IsTimeout(err) {
		return outcome{kind: KindProviderTimeout, err: err}
	}

	var inv *llm.ErrInvalidResponse
	if errors.As(err, &inv) && len(inv.Content) > 0 {
		return outcome{payload: Payload{Text: string(inv.Content)}, kind: KindMalformedResponse, err: err}
	}
	var trunc *llm.ErrMaxTokensExceeded
	if errors.As(err, &trunc) {
		return outcome{payload: Payload{Text: string(trunc.Content)}, kind: KindMalformedResponse, err: err}
	}

	return outcome{kind: KindProviderUnavailable, err: err}
}

// upstreamUser is the opaque end-user tag sent to the provider. The
// anonymous identity is not tagged.
func upstreamUser(identity string) string {
	if identity == ratelimit.Anonymous {
		return ""
	}
	return cache.HashText(identity)[:16]
}

func contextKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindProviderTimeout
	}
	return KindProviderUnavailable
}

func (o *Orchestrator) fallback(call Call, reason ErrorKind) Result {
	p := Payload{Text: "This service is temporarily unavailable. Please try again shortly."}
	if call.Fallback != nil {
		p = call.Fallback()
	}
	return Degrade(p, SourceFallback, reason)
}

func (o *Orchestrator) countLookup(result string) {
	if o.metrics != nil {
		o.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (o *Orchestrator) observe(ctx context.Context, operation, fingerprint, identity string, res Result, elapsed time.Duration) {
	data := store.OrchestrationEventData{
		Operation:   operation,
		Identity:    identity,
		Source:      string(res.Source),
		Success:     res.IsSuccess(),
		Degraded:    res.Degraded,
		Kind:        string(res.Reason),
		Fingerprint: fingerprint,
		LatencyMs:   elapsed.Milliseconds(),
	}
	if res.Failure != nil {
		data.Kind = string(res.Failure.Kind)
	}

	if o.metrics != nil {
		source := data.Source
		if !data.Success {
			source = "failure"
		}
		o.metrics.Orchestrations.WithLabelValues(operation, source).Inc()
		if res.Degraded {
			o.metrics.OrchestrationDegraded.WithLabelValues(operation, string(res.Reason)).Inc()
		}
	}

	o.logger.Info().
		Str("operation", operation).
		Str("identity", identity).
		Str("source", data.Source).
		Bool("success", data.Success).
		Bool("degraded", data.Degraded).
		Str("kind", data.Kind).
		Int64("latency_ms", data.LatencyMs).
		Msg("orchestration")

	if o.recorder != nil {
		if err := o.recorder.AppendOrchestration(context.WithoutCancel(ctx), data); err != nil {
			o.logger.Warn().Err(err).Msg("failed to record orchestration event")
		}
	}
}
