package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// sequenceRow is the id of the only row in event_sequence.
const sequenceRow = 1

// sequenceCounter hands out the sequence numbers that order LLM request
// events and orchestration events against each other. Each table keeps its
// own autoincrement id; only the shared sequence is comparable across them.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter seeds the counter row. The table itself is created by
// the schema migration.
func newSequenceCounter(ctx context.Context, db *sql.DB) (*sequenceCounter, error) {
	query, args := builder().Insert(EventSequenceTable.Name).
		Columns("id", "last_value").
		Values(sequenceRow, 0).
		OnConflict(entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed event sequence: %w", err)
	}
	return &sequenceCounter{db: db}, nil
}

// Next increments the counter and returns the new value. Values start at 1
// and never repeat, even across process restarts.
func (c *sequenceCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query, args := builder().Update(EventSequenceTable.Name).
		Add("last_value", 1).
		Where(entsql.EQ("id", sequenceRow)).
		Returning("last_value").
		Query()

	var seq int64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("advance event sequence: %w", err)
	}
	return seq, nil
}
