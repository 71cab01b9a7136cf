package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo backed by the ent SQL builder and the
// global sequence counter.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "operation", "outcome",
	"input_tokens", "output_tokens", "cost_usd", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(LLMRequestEventsTable.Name).
		Columns(llmEventColumns[1:]...).
		Values(
			seqNum,
			time.Now().UTC(),
			data.Provider,
			data.Model,
			data.Operation,
			data.Outcome,
			data.InputTokens,
			data.OutputTokens,
			data.CostUSD,
			data.LatencyMs,
			data.Success,
			data.ErrorMessage,
			data.RequestBody,
			data.ResponseBody,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}

	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	sel := builder().
		Select(llmEventColumns...).
		From(builder().Table(LLMRequestEventsTable.Name))
	applyQueryOpts(sel, opts)
	if opts.Operation != "" {
		sel.Where(entsql.EQ("operation", opts.Operation))
	}
	if opts.Outcome != "" {
		sel.Where(entsql.EQ("outcome", opts.Outcome))
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error) {
	query, args := builder().
		Select(llmEventColumns...).
		From(builder().Table(LLMRequestEventsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	e, err := scanLLMEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LLMUsageByOperation sums tokens and recorded cost per operation. Failed
// attempts count as calls and as failures.
func (r *eventRepo) LLMUsageByOperation(ctx context.Context) ([]LLMOperationUsage, error) {
	query, args := builder().
		Select(
			"operation",
			entsql.Count("*"),
			"SUM(CASE WHEN success THEN 0 ELSE 1 END)",
			entsql.Sum("input_tokens"),
			entsql.Sum("output_tokens"),
			entsql.Sum("cost_usd"),
			entsql.Avg("latency_ms"),
		).
		From(builder().Table(LLMRequestEventsTable.Name)).
		GroupBy("operation").
		OrderBy("operation").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage by operation: %w", err)
	}
	defer rows.Close()

	var out []LLMOperationUsage
	for rows.Next() {
		var (
			u                   LLMOperationUsage
			failed, in, outTok sql.NullInt64
			cost, avg          sql.NullFloat64
		)
		if err := rows.Scan(&u.Operation, &u.Calls, &failed, &in, &outTok, &cost, &avg); err != nil {
			return nil, fmt.Errorf("scan operation usage: %w", err)
		}
		u.Failures = int(failed.Int64)
		u.InputTokens = int(in.Int64)
		u.OutputTokens = int(outTok.Int64)
		u.CostUSD = cost.Float64
		u.AvgLatencyMs = int64(avg.Float64)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error) {
	query, args := builder().
		Select(
			"model",
			entsql.Count("*"),
			entsql.Sum("input_tokens"),
			entsql.Sum("output_tokens"),
			entsql.Sum("cost_usd"),
		).
		From(builder().Table(LLMRequestEventsTable.Name)).
		GroupBy("model").
		OrderBy("model").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage by model: %w", err)
	}
	defer rows.Close()

	var out []LLMModelUsage
	for rows.Next() {
		var (
			u          LLMModelUsage
			in, outTok sql.NullInt64
			cost       sql.NullFloat64
		)
		if err := rows.Scan(&u.Model, &u.Calls, &in, &outTok, &cost); err != nil {
			return nil, fmt.Errorf("scan model usage: %w", err)
		}
		u.InputTokens = int(in.Int64)
		u.OutputTokens = int(outTok.Int64)
		u.CostUSD = cost.Float64
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLLMEvent(row rowScanner) (LLMEvent, error) {
	var e LLMEvent
	err := row.Scan(
		&e.ID, &e.Sequence, &e.Timestamp,
		&e.Provider, &e.Model, &e.Operation, &e.Outcome,
		&e.InputTokens, &e.OutputTokens, &e.CostUSD, &e.LatencyMs, &e.Success,
		&e.ErrorMessage, &e.RequestBody, &e.ResponseBody,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return e, err
	}
	if err != nil {
		return e, fmt.Errorf("scan LLM event: %w", err)
	}
	return e, nil
}

// applyQueryOpts adds the shared sequence/time filters, newest-first
// ordering and limit to sel.
func applyQueryOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", opts.To.UTC()))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}
