package store

import (
	"context"
	"time"

	"github.com/abhisek/aptiq/internal/quiz"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To

	Operation string // both event kinds
	Outcome   string // LLM events only
	Identity  string // orchestration events only
}

// QuestionRepo persists the question bank.
type QuestionRepo interface {
	// Replace atomically swaps the stored bank for questions.
	Replace(ctx context.Context, questions []quiz.Question) error

	// Load returns the stored questions in their original order.
	Load(ctx context.Context) ([]quiz.Question, error)

	Count(ctx context.Context) (int, error)
}

// LLMRequestEventData is one provider attempt. Operation names the
// orchestrated operation the attempt served; Outcome is the provider
// middleware's classification (ok, timeout, rate_limited, rejected,
// invalid, truncated, unavailable, canceled).
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Operation    string
	Outcome      string
	InputTokens  int
	OutputTokens int
	CostUSD      float64 // zero when the model is not priced
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMOperationUsage aggregates provider usage for one operation.
type LLMOperationUsage struct {
	Operation    string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	AvgLatencyMs int64
}

// LLMModelUsage aggregates provider usage for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// OrchestrationEventData captures one orchestrated operation.
type OrchestrationEventData struct {
	Operation   string
	Identity    string
	Source      string // empty for failures
	Success     bool
	Degraded    bool
	Kind        string // degrade reason or failure kind
	Fingerprint string
	LatencyMs   int64
}

// OrchestrationEvent is a stored orchestration event.
type OrchestrationEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	OrchestrationEventData
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendOrchestration records one orchestrated operation.
	AppendOrchestration(ctx context.Context, data OrchestrationEventData) error

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns the event with id, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	LLMUsageByOperation(ctx context.Context) ([]LLMOperationUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)

	// QueryOrchestrationEvents returns orchestration events, newest first.
	QueryOrchestrationEvents(ctx context.Context, opts QueryOpts) ([]OrchestrationEvent, error)
}
