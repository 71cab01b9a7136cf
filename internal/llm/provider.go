// Package llm adapts generative-text SDKs to the single Provider interface
// the orchestrator calls, and layers retry, throttling, a circuit breaker and
// request logging on top.
package llm

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Provider generates one answer for a Request.
type Provider interface {
	// Generate returns the model's answer. Failures are reported with the
	// typed errors in errors.go.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model the provider is configured to use.
	ModelID() string
}

// Request is a single-turn prompt plus the output contract the caller
// expects back.
type Request struct {
	System   string
	Messages []Message

	// JSON asks for a bare JSON object without a fixed shape. Adapters use
	// the provider's JSON mode where one exists.
	JSON bool

	// Schema, when set, is passed to the provider's native structured output
	// and the answer is validated against it. Implies JSON.
	Schema *Schema

	// User is an opaque end-user tag forwarded for upstream abuse tracking.
	// Never a raw identity.
	User string

	MaxTokens   int
	Temperature float64
}

// WantsJSON reports whether the answer must be a JSON object.
func (r Request) WantsJSON() bool {
	return r.JSON || r.Schema != nil
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is the JSON Schema an operation's answer must satisfy. It is
// compiled on first use; share one *Schema per operation.
type Schema struct {
	// Name is kebab-case, e.g. "stream-recommendation". It becomes the
	// schema name for OpenAI-compatible APIs.
	Name        string
	Description string
	Definition  map[string]any

	once       sync.Once
	compiled   *jsonschema.Schema
	compileErr error
}

// Stop reasons reported in Response.StopReason.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Response is the model's answer.
type Response struct {
	// Content is the validated JSON object when the request carried a
	// Schema, and the raw model text otherwise.
	Content json.RawMessage
	Usage   Usage

	// Model is the model that actually served the request.
	Model      string
	StopReason string
}

// Usage is the token consumption of one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Text returns Content as a string. A content that is itself a JSON
// string literal is unquoted.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	trimmed := strings.TrimSpace(string(r.Content))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}
	return string(r.Content)
}

// checkAnswer applies req's output contract to an adapter's raw answer.
// A JSON answer cut off at MaxTokens is reported as truncated rather than
// as a schema failure.
func checkAnswer(req Request, content json.RawMessage, stop string) error {
	if !req.WantsJSON() {
		return nil
	}
	if stop == StopMaxTokens {
		return &ErrMaxTokensExceeded{Content: content}
	}
	return validateResponse(req.Schema, content)
}
