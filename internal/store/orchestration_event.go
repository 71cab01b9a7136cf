package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var orchestrationEventColumns = []string{
	"id", "sequence", "timestamp", "operation", "identity", "source",
	"success", "degraded", "kind", "fingerprint", "latency_ms",
}

func (r *eventRepo) AppendOrchestration(ctx context.Context, data OrchestrationEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(OrchestrationEventsTable.Name).
		Columns(orchestrationEventColumns[1:]...).
		Values(
			seqNum,
			time.Now().UTC(),
			data.Operation,
			data.Identity,
			data.Source,
			data.Success,
			data.Degraded,
			data.Kind,
			data.Fingerprint,
			data.LatencyMs,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save orchestration event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryOrchestrationEvents(ctx context.Context, opts QueryOpts) ([]OrchestrationEvent, error) {
	sel := builder().
		Select(orchestrationEventColumns...).
		From(builder().Table(OrchestrationEventsTable.Name))
	applyQueryOpts(sel, opts)
	if opts.Operation != "" {
		sel.Where(entsql.EQ("operation", opts.Operation))
	}
	if opts.Identity != "" {
		sel.Where(entsql.EQ("identity", opts.Identity))
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orchestration events: %w", err)
	}
	defer rows.Close()

	var out []OrchestrationEvent
	for rows.Next() {
		var e OrchestrationEvent
		if err := rows.Scan(
			&e.ID, &e.Sequence, &e.Timestamp,
			&e.Operation, &e.Identity, &e.Source,
			&e.Success, &e.Degraded, &e.Kind, &e.Fingerprint, &e.LatencyMs,
		); err != nil {
			return nil, fmt.Errorf("scan orchestration event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
