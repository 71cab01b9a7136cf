package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/store"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func TestThrottle_DisabledReturnsInner(t *testing.T) {
	mock := NewMockProvider()
	if p := WithThrottle(mock, ThrottleConfig{}); p != Provider(mock) {
		t.Fatalf("expected unwrapped provider, got %T", p)
	}
}

func TestThrottle_BlocksBeyondBurst(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	p := WithThrottle(mock, ThrottleConfig{RequestsPerSecond: 0.1, Burst: 1})

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected throttled call not to reach provider, got %d calls", mock.CallCount())
	}
}

func breakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
		HalfOpenRequests: 1,
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	m := metrics.New(nil)
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	p := WithBreaker(mock, breakerConfig(), m, zerolog.Nop())

	for range 2 {
		if _, err := p.Generate(context.Background(), Request{}); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("open breaker should not call provider, got %d calls", mock.CallCount())
	}

	got := testutil.ToFloat64(m.BreakerState.WithLabelValues("llm:mock"))
	if got != float64(gobreaker.StateOpen) {
		t.Fatalf("breaker gauge = %v, want %v", got, float64(gobreaker.StateOpen))
	}
	if bp, ok := p.(*BreakerProvider); !ok || bp.State() != gobreaker.StateOpen {
		t.Fatal("expected breaker in open state")
	}
}

func TestBreaker_InvalidResponseDoesNotTrip(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
		MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	p := WithBreaker(mock, breakerConfig(), nil, zerolog.Nop())

	p.Generate(context.Background(), Request{})
	p.Generate(context.Background(), Request{})

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("expected breaker to stay closed, got %v", err)
	}
}

func TestBreaker_DisabledReturnsInner(t *testing.T) {
	mock := NewMockProvider()
	if p := WithBreaker(mock, BreakerConfig{}, nil, zerolog.Nop()); p != Provider(mock) {
		t.Fatalf("expected unwrapped provider, got %T", p)
	}
}

func TestLogging_RecordsEventAndMetrics(t *testing.T) {
	repo := &recordingRepo{}
	m := metrics.New(nil)
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"answer":"ok"}`), Usage: Usage{InputTokens: 12, OutputTokens: 4}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, WithRecorder(repo), WithLogMetrics(m), WithProviderName("mock"))

	ctx := WithOperation(context.Background(), "guidance")
	if _, err := p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Generate(ctx, Request{})

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	first := repo.events[0]
	if first.Operation != "guidance" || first.Outcome != "ok" || !first.Success || first.InputTokens != 12 {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if first.ResponseBody != `{"answer":"ok"}` {
		t.Fatalf("unexpected response body %q", first.ResponseBody)
	}
	if repo.events[1].Success || repo.events[1].ErrorMessage == "" || repo.events[1].Outcome != "unavailable" {
		t.Fatalf("expected failed second event, got %+v", repo.events[1])
	}

	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("unavailable")); got != 1 {
		t.Fatalf("unavailable calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProviderTokens.WithLabelValues("guidance", "input")); got != 12 {
		t.Fatalf("input tokens = %v, want 12", got)
	}
}

// pricedProvider answers as a model with a known list price.
type pricedProvider struct{ model string }

func (p pricedProvider) Generate(context.Context, Request) (*Response, error) {
	return &Response{
		Content: json.RawMessage(`{}`),
		Usage:   Usage{InputTokens: 1_000_000, OutputTokens: 500_000},
		Model:   p.model,
	}, nil
}

func (p pricedProvider) ModelID() string { return p.model }

func TestLogging_RecordsEstimatedCost(t *testing.T) {
	repo := &recordingRepo{}
	m := metrics.New(nil)
	p := WithLogging(pricedProvider{model: "gpt-4o-mini-2024-07-18"}, WithRecorder(repo), WithLogMetrics(m))

	if _, err := p.Generate(WithOperation(context.Background(), "translate"), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1M input at 0.15 plus 0.5M output at 0.6.
	const want = 0.45
	if got := repo.events[0].CostUSD; math.Abs(got-want) > 1e-9 {
		t.Fatalf("cost = %v, want %v", got, want)
	}
	if got := testutil.ToFloat64(m.ProviderCost.WithLabelValues("translate")); math.Abs(got-want) > 1e-9 {
		t.Fatalf("cost metric = %v, want %v", got, want)
	}
}

func TestCallOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&ErrProviderTimeout{Err: errors.New("slow")}, "timeout"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{&ErrRateLimit{Err: errors.New("429")}, "rate_limited"},
		{&ErrRejected{Status: 401, Err: errors.New("key")}, "rejected"},
		{&ErrMaxTokensExceeded{}, "truncated"},
		{&ErrInvalidResponse{Err: errors.New("prose")}, "invalid"},
		{&ErrProviderUnavailable{Status: 503, Err: errors.New("down")}, "unavailable"},
		{errors.New("mystery"), "error"},
	}
	for _, tt := range tests {
		if got := callOutcome(tt.err); got != tt.want {
			t.Errorf("callOutcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLogging_KeepsRejectedAnswerText(t *testing.T) {
	repo := &recordingRepo{}
	mock := NewMockProvider(MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage("not an object"), Err: errors.New("bad")}})
	p := WithLogging(mock, WithRecorder(repo))

	p.Generate(context.Background(), Request{})
	if got := repo.events[0]; got.ResponseBody != "not an object" || got.Outcome != "invalid" || got.Operation != UnattributedOperation {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestLogging_RecorderFailureDoesNotFailRequest(t *testing.T) {
	repo := &recordingRepo{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, WithRecorder(repo))

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMockProvider_DelayHonoursContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	mock.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := mock.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestResponse_Text(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`"quoted text"`, `quoted text`},
		{`plain words`, `plain words`},
	}
	for _, tt := range tests {
		r := &Response{Content: json.RawMessage(tt.content)}
		if got := r.Text(); got != tt.want {
			t.Errorf("Text(%s) = %q, want %q", tt.content, got, tt.want)
		}
	}
	var nilResp *Response
	if nilResp.Text() != "" {
		t.Error("nil response should have empty text")
	}
}

func TestNewProvider_AutoWithoutKeysIsOffline(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}

	p, err := NewProvider(context.Background(), DefaultConfig(), Deps{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "offline" {
		t.Fatalf("expected offline provider, got %q", p.ModelID())
	}

	_, err = p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) || !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected unavailable with no credentials, got %v", err)
	}
}

func TestNewProvider_AutoDiscoversKey(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	p, err := NewProvider(context.Background(), DefaultConfig(), Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != anthropicModels["claude-haiku"] {
		t.Fatalf("model = %q", p.ModelID())
	}
	if _, ok := p.(*BreakerProvider); !ok {
		t.Fatalf("expected breaker at the outside of the chain, got %T", p)
	}
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: "bogus"}, Deps{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
