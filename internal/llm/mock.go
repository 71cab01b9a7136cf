package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockResponse is one scripted answer for MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	// Stop is the reported stop reason; empty means StopEnd.
	Stop string
	Err  error
	// Panic makes Generate panic with this value instead of returning.
	Panic any
}

// MockText scripts a plain-text answer.
func MockText(s string) MockResponse {
	return MockResponse{Content: json.RawMessage(s)}
}

// MockProvider replays scripted answers in order and records every request.
// Answers go through the same output checks as the real adapters, except
// that JSON mode without a schema accepts any text.
type MockProvider struct {
	mu      sync.Mutex
	script  []MockResponse
	Calls   []Request
	Delay   time.Duration // slept before answering; honours ctx
	ModelAs string        // reported model; "mock" when empty
}

func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{script: script}
}

// Generate pops the next scripted answer. An exhausted script reads as an
// unavailable upstream.
func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	var (
		next MockResponse
		ok   = len(m.script) > 0
	)
	if ok {
		next, m.script = m.script[0], m.script[1:]
	}
	delay, model := m.Delay, m.ModelAs
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	switch {
	case !ok:
		return nil, &ErrProviderUnavailable{}
	case next.Panic != nil:
		panic(next.Panic)
	case next.Err != nil:
		return nil, next.Err
	}

	stop := next.Stop
	if stop == "" {
		stop = StopEnd
	}
	if err := checkAnswer(req, next.Content, stop); err != nil {
		return nil, err
	}
	if model == "" {
		model = "mock"
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: model, StopReason: stop}, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

func (m *MockProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delay = d
}

// CallCount returns how many requests Generate has seen.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
