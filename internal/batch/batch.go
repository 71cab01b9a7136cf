// Package batch runs heterogeneous operations concurrently while keeping
// each item's outcome independent and results in input order.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/orchestrator"
)

const (
	DefaultConcurrency = 4
	DefaultItemTimeout = 20 * time.Second
)

// Operation is one item of a batch request.
type Operation struct {
	ID     string          `json:"id,omitempty"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ItemResult pairs an operation's correlation id with its result.
type ItemResult struct {
	ID     string              `json:"id"`
	Type   string              `json:"type"`
	Result orchestrator.Result `json:"result"`
}

// Handler executes one operation type. Handlers report every outcome in
// the returned Result.
type Handler func(ctx context.Context, params json.RawMessage) orchestrator.Result

// Processor runs batches against a fixed handler registry.
type Processor struct {
	handlers    map[string]Handler
	concurrency int
	itemTimeout time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Processor.
type Option func(*Processor)

// WithConcurrency bounds the number of items running at once.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithItemTimeout bounds each item's run time.
func WithItemTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.itemTimeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// New creates a Processor. The handler map is copied.
func New(handlers map[string]Handler, opts ...Option) *Processor {
	p := &Processor{
		handlers:    make(map[string]Handler, len(handlers)),
		concurrency: DefaultConcurrency,
		itemTimeout: DefaultItemTimeout,
		logger:      zerolog.Nop(),
	}
	for name, h := range handlers {
		p.handlers[name] = h
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Types returns the registered operation types, sorted.
func (p *Processor) Types() []string {
	out := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes ops and returns one result per op, in input order. An
// empty batch yields an empty slice.
func (p *Processor) Run(ctx context.Context, ops []Operation) []ItemResult {
	start := time.Now()
	results := make([]ItemResult, len(ops))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, op := range ops {
		id := op.ID
		if id == "" {
			id = uuid.NewString()
		}
		results[i] = ItemResult{ID: id, Type: op.Type}

		g.Go(func() error {
			results[i].Result = p.runItem(ctx, op)
			return nil
		})
	}
	_ = g.Wait()

	if p.metrics != nil {
		p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
		for _, r := range results {
			status := "success"
			if !r.Result.IsSuccess() {
				status = "failure"
			}
			p.metrics.BatchItems.WithLabelValues(status).Inc()
		}
	}

	p.logger.Info().
		Int("items", len(ops)).
		Dur("elapsed", time.Since(start)).
		Msg("batch complete")

	return results
}

func (p *Processor) runItem(ctx context.Context, op Operation) (res orchestrator.Result) {
	h, ok := p.handlers[op.Type]
	if !ok {
		return orchestrator.Failed(orchestrator.KindUnknownOperationType,
			fmt.Sprintf("unknown operation type %q", op.Type))
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Str("type", op.Type).Msg("batch handler panicked")
			res = orchestrator.Failed(orchestrator.KindInternal, fmt.Sprintf("handler panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.itemTimeout)
	defer cancel()

	return h(ctx, op.Params)
}

// Summary counts results by outcome for display.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Degraded  int
	BySource  map[orchestrator.Source]int
	ByFailure map[orchestrator.ErrorKind]int
}

// Summarize tallies results.
func Summarize(results []ItemResult) Summary {
	s := Summary{
		Total:     len(results),
		BySource:  make(map[orchestrator.Source]int),
		ByFailure: make(map[orchestrator.ErrorKind]int),
	}
	for _, r := range results {
		if !r.Result.IsSuccess() {
			s.Failed++
			s.ByFailure[r.Result.Failure.Kind]++
			continue
		}
		s.Succeeded++
		s.BySource[r.Result.Source]++
		if r.Result.Degraded {
			s.Degraded++
		}
	}
	return s
}

// DecodeParams unmarshals params into v, mapping decode errors to a
// validation error. Empty params decode as an empty object.
func DecodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(params, v); err != nil {
		return orchestrator.Validationf("invalid params: %v", err)
	}
	return nil
}
