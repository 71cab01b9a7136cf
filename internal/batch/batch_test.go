package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/orchestrator"
)

type echoParams struct {
	Text  string `json:"text"`
	Sleep int    `json:"sleep_ms"`
}

func echoHandler(ctx context.Context, params json.RawMessage) orchestrator.Result {
	var p echoParams
	if err := DecodeParams(params, &p); err != nil {
		return orchestrator.FailedErr(err)
	}
	if p.Text == "" {
		return orchestrator.FailedErr(orchestrator.Validationf("text is required"))
	}
	if p.Sleep > 0 {
		select {
		case <-time.After(time.Duration(p.Sleep) * time.Millisecond):
		case <-ctx.Done():
			return orchestrator.Degrade(orchestrator.Payload{Text: p.Text}, orchestrator.SourceFallback, orchestrator.KindProviderTimeout)
		}
	}
	return orchestrator.Succeeded(orchestrator.Payload{Text: p.Text}, orchestrator.SourceComputed)
}

func testHandlers() map[string]Handler {
	return map[string]Handler{
		"echo": echoHandler,
		"panic": func(context.Context, json.RawMessage) orchestrator.Result {
			panic("handler bug")
		},
	}
}

func params(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRun_IsolatesFailingItem(t *testing.T) {
	p := New(testHandlers())
	ops := []Operation{
		{ID: "op-1", Type: "echo", Params: params(t, echoParams{Text: "one", Sleep: 30})},
		{ID: "op-2", Type: "echo", Params: params(t, echoParams{Text: "two"})},
		{ID: "op-3", Type: "echo", Params: params(t, echoParams{})},
		{ID: "op-4", Type: "echo", Params: params(t, echoParams{Text: "four", Sleep: 10})},
		{ID: "op-5", Type: "echo", Params: params(t, echoParams{Text: "five"})},
	}

	results := p.Run(context.Background(), ops)
	require.Len(t, results, 5)

	for i, r := range results {
		assert.Equal(t, ops[i].ID, r.ID, "order must follow input")
		if i == 2 {
			require.False(t, r.Result.IsSuccess())
			assert.Equal(t, orchestrator.KindValidation, r.Result.Failure.Kind)
			continue
		}
		require.True(t, r.Result.IsSuccess(), "item %d", i)
	}
	assert.Equal(t, "one", results[0].Result.Payload.Text)
	assert.Equal(t, "five", results[4].Result.Payload.Text)
}

func TestRun_UnknownTypeAndPanic(t *testing.T) {
	p := New(testHandlers())
	results := p.Run(context.Background(), []Operation{
		{ID: "a", Type: "nope"},
		{ID: "b", Type: "panic"},
		{ID: "c", Type: "echo", Params: json.RawMessage(`{"text":"still fine"}`)},
	})

	require.Len(t, results, 3)
	assert.Equal(t, orchestrator.KindUnknownOperationType, results[0].Result.Failure.Kind)
	assert.Equal(t, orchestrator.KindInternal, results[1].Result.Failure.Kind)
	assert.True(t, results[2].Result.IsSuccess())
}

func TestRun_InvalidParamsIsValidationFailure(t *testing.T) {
	p := New(testHandlers())
	results := p.Run(context.Background(), []Operation{
		{ID: "x", Type: "echo", Params: json.RawMessage(`[1,2]`)},
	})
	assert.Equal(t, orchestrator.KindValidation, results[0].Result.Failure.Kind)
}

func TestRun_GeneratesMissingIDs(t *testing.T) {
	p := New(testHandlers())
	results := p.Run(context.Background(), []Operation{
		{Type: "echo", Params: json.RawMessage(`{"text":"a"}`)},
		{Type: "echo", Params: json.RawMessage(`{"text":"b"}`)},
	})
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].ID)
	assert.NotEmpty(t, results[1].ID)
	assert.NotEqual(t, results[0].ID, results[1].ID)
}

func TestRun_Empty(t *testing.T) {
	results := New(testHandlers()).Run(context.Background(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRun_ItemTimeout(t *testing.T) {
	p := New(testHandlers(), WithItemTimeout(20*time.Millisecond))
	results := p.Run(context.Background(), []Operation{
		{ID: "slow", Type: "echo", Params: params(t, echoParams{Text: "slow", Sleep: 1000})},
		{ID: "fast", Type: "echo", Params: params(t, echoParams{Text: "fast"})},
	})
	assert.Equal(t, orchestrator.KindProviderTimeout, results[0].Result.Reason)
	assert.False(t, results[1].Result.Degraded)
}

func TestRun_ConcurrencyBound(t *testing.T) {
	var running, peak atomic.Int32
	handlers := map[string]Handler{
		"track": func(ctx context.Context, _ json.RawMessage) orchestrator.Result {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return orchestrator.Succeeded(orchestrator.Payload{Text: "ok"}, orchestrator.SourceComputed)
		},
	}

	p := New(handlers, WithConcurrency(2))
	ops := make([]Operation, 10)
	for i := range ops {
		ops[i] = Operation{Type: "track"}
	}
	p.Run(context.Background(), ops)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_Metrics(t *testing.T) {
	m := metrics.New(nil)
	p := New(testHandlers(), WithMetrics(m))
	p.Run(context.Background(), []Operation{
		{Type: "echo", Params: json.RawMessage(`{"text":"a"}`)},
		{Type: "nope"},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItems.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItems.WithLabelValues("failure")))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]ItemResult{
		{Result: orchestrator.Succeeded(orchestrator.Payload{}, orchestrator.SourceProvider)},
		{Result: orchestrator.Degrade(orchestrator.Payload{}, orchestrator.SourceFallback, orchestrator.KindRateLimitExceeded)},
		{Result: orchestrator.Failed(orchestrator.KindValidation, "x")},
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Degraded)
	assert.Equal(t, 1, s.BySource[orchestrator.SourceFallback])
	assert.Equal(t, 1, s.ByFailure[orchestrator.KindValidation])
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{"echo", "panic"}, New(testHandlers()).Types())
}

func TestReadOperations(t *testing.T) {
	arr := `[{"id":"1","type":"echo","params":{"text":"a"}}]`
	ops, err := ReadOperations(strings.NewReader(arr))
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.JSONEq(t, `{"text":"a"}`, string(ops[0].Params))

	doc := `{"operations":[{"type":"echo"},{"type":"guidance","params":{"question":"q"}}]}`
	ops, err = ReadOperations(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "guidance", ops[1].Type)

	_, err = ReadOperations(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, []ItemResult{
		{ID: "1", Type: "echo", Result: orchestrator.Succeeded(orchestrator.Payload{Text: "a"}, orchestrator.SourceComputed)},
	}))
	assert.JSONEq(t, `{"results":[{"id":"1","type":"echo","result":{"status":"success","source":"computed","text":"a"}}]}`, buf.String())
}
