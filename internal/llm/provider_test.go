package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider_ReplaysScript(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Err: &ErrRateLimit{}},
		MockResponse{Content: json.RawMessage(`{"b":`), Stop: StopMaxTokens},
	)
	mock.ModelAs = "gpt-4o-mini"
	ctx := context.Background()

	resp, err := mock.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"a":1}` || resp.Usage.InputTokens != 10 || resp.StopReason != StopEnd || resp.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected first answer %+v", resp)
	}

	var rl *ErrRateLimit
	if _, err := mock.Generate(ctx, Request{}); !errors.As(err, &rl) {
		t.Fatalf("expected scripted rate limit, got %T", err)
	}

	var trunc *ErrMaxTokensExceeded
	if _, err := mock.Generate(ctx, Request{JSON: true}); !errors.As(err, &trunc) {
		t.Fatalf("expected truncation from the answer checks, got %T", err)
	}

	var unavail *ErrProviderUnavailable
	if _, err := mock.Generate(ctx, Request{}); !errors.As(err, &unavail) {
		t.Fatalf("exhausted script should be unavailable, got %T", err)
	}

	if mock.CallCount() != 4 || mock.Calls[0].System != "sys" {
		t.Fatalf("calls not recorded: %d", mock.CallCount())
	}
	if mock.ModelID() != "mock" {
		t.Fatalf("ModelID = %q", mock.ModelID())
	}
}

func TestMockProvider_ValidatesAgainstSchema(t *testing.T) {
	mock := NewMockProvider(MockText("not json"))
	_, err := mock.Generate(context.Background(), Request{Schema: testSchema()})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) || string(inv.Content) != "not json" {
		t.Fatalf("expected invalid response carrying the text, got %T: %v", err, err)
	}
}

func TestOperationContext(t *testing.T) {
	ctx := context.Background()
	if op := OperationFrom(ctx); op != UnattributedOperation {
		t.Fatalf("expected %q, got %q", UnattributedOperation, op)
	}
	if op := OperationFrom(WithOperation(ctx, "")); op != UnattributedOperation {
		t.Fatalf("empty operation should read as %q, got %q", UnattributedOperation, op)
	}

	ctx = WithOperation(ctx, "recommend_stream")
	if op := OperationFrom(ctx); op != "recommend_stream" {
		t.Fatalf("expected 'recommend_stream', got %q", op)
	}
}

func TestCheckAnswer(t *testing.T) {
	schema := testSchema()
	tests := []struct {
		name    string
		req     Request
		content string
		stop    string
		check   func(error) bool
	}{
		{"text request skips checks", Request{}, "plain words", StopMaxTokens, func(err error) bool { return err == nil }},
		{"json mode accepts object", Request{JSON: true}, `{"x":1}`, StopEnd, func(err error) bool { return err == nil }},
		{"json mode leaves prose to the caller", Request{JSON: true}, `Sure: {"x":1}`, StopEnd, func(err error) bool { return err == nil }},
		{"truncated json", Request{JSON: true}, `{"x":`, StopMaxTokens, func(err error) bool {
			var trunc *ErrMaxTokensExceeded
			return errors.As(err, &trunc) && string(trunc.Content) == `{"x":`
		}},
		{"schema mismatch", Request{Schema: schema}, `{"other":true}`, StopEnd, func(err error) bool {
			var inv *ErrInvalidResponse
			return errors.As(err, &inv)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAnswer(tt.req, json.RawMessage(tt.content), tt.stop)
			if !tt.check(err) {
				t.Fatalf("unexpected result %T: %v", err, err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: "anthropic"},
			wantErr: true,
		},
		{
			name:    "anthropic with key",
			cfg:     Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "openai with key",
			cfg:     Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name:    "mock needs no key",
			cfg:     Config{Provider: "mock"},
			wantErr: false,
		},
		{
			name:    "openrouter without key",
			cfg:     Config{Provider: "openrouter"},
			wantErr: true,
		},
		{
			name:    "auto defers key lookup",
			cfg:     Config{Provider: "auto"},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMockProvider_Panic(t *testing.T) {
	mock := NewMockProvider(MockResponse{Panic: "boom"})
	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected panic boom, got %v", r)
		}
	}()
	mock.Generate(context.Background(), Request{})
}

func TestDiscoverConfig_PriorityOrder(t *testing.T) {
	for _, src := range credentialSources {
		t.Setenv(src.env, "")
	}
	if _, ok := DiscoverConfig(DefaultConfig()); ok {
		t.Fatal("expected no provider without keys")
	}

	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	cfg, ok := DiscoverConfig(DefaultConfig())
	if !ok || cfg.Provider != "openai" || cfg.OpenAI.APIKey != "oa-key" {
		t.Fatalf("expected openai to win over openrouter, got %q", cfg.Provider)
	}
	if cfg.OpenRouter.APIKey != "" {
		t.Fatal("only the selected provider's key is copied")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("discovered config should validate: %v", err)
	}
}
