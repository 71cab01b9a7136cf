package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/aptiq/internal/quiz"
)

type questionRepo struct {
	db *sql.DB
}

func (r *questionRepo) Replace(ctx context.Context, questions []quiz.Question) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{AnswerOptionsTable.Name, QuestionsTable.Name} {
		query, args := builder().Delete(table).Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for qi, q := range questions {
		query, args := builder().Insert(QuestionsTable.Name).
			Columns("id", "position", "category", "prompt").
			Values(q.ID, qi, string(q.Category), q.Prompt).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}

		for oi, o := range q.Options {
			weights, err := json.Marshal(o.Weights)
			if err != nil {
				return fmt.Errorf("encode weights for %s/%s: %w", q.ID, o.ID, err)
			}
			query, args := builder().Insert(AnswerOptionsTable.Name).
				Columns("option_id", "position", "label", "weights", "question_id").
				Values(o.ID, oi, o.Label, string(weights), q.ID).
				Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert option %s/%s: %w", q.ID, o.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit question bank: %w", err)
	}
	return nil
}

func (r *questionRepo) Load(ctx context.Context) ([]quiz.Question, error) {
	query, args := builder().
		Select("id", "category", "prompt").
		From(builder().Table(QuestionsTable.Name)).
		OrderBy("position").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	var questions []quiz.Question
	index := make(map[string]int)
	for rows.Next() {
		var q quiz.Question
		var category string
		if err := rows.Scan(&q.ID, &category, &q.Prompt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Category = quiz.Category(category)
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	rows.Close()

	query, args = builder().
		Select("question_id", "option_id", "label", "weights").
		From(builder().Table(AnswerOptionsTable.Name)).
		OrderBy("question_id", "position").
		Query()
	rows, err = r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var questionID, weights string
		var o quiz.AnswerOption
		if err := rows.Scan(&questionID, &o.ID, &o.Label, &weights); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if err := json.Unmarshal([]byte(weights), &o.Weights); err != nil {
			return nil, fmt.Errorf("decode weights for %s/%s: %w", questionID, o.ID, err)
		}
		i, ok := index[questionID]
		if !ok {
			continue
		}
		questions[i].Options = append(questions[i].Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}

	return questions, nil
}

func (r *questionRepo) Count(ctx context.Context) (int, error) {
	query, args := builder().
		Select(entsql.Count("*")).
		From(builder().Table(QuestionsTable.Name)).
		Query()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}
