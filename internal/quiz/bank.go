package quiz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidBank is returned when a question bank fails load-time validation.
var ErrInvalidBank = errors.New("invalid question bank")

// Bank is a read-only lookup table of questions.
type Bank interface {
	// Question returns the question with the given id.
	Question(id string) (Question, bool)

	// Questions returns all questions in load order.
	Questions() []Question

	// Traits returns every trait the bank can score, sorted ascending.
	Traits() []string
}

// MemoryBank is an immutable, validated Bank.
type MemoryBank struct {
	questions []Question
	byID      map[string]int
	traits    []string
}

// NewBank validates questions and builds a bank. Extra traits are scored
// even when no option references them, so every result reports them as 0.
//
// Negative weights, duplicate ids and empty questions are rejected here so
// that scoring itself never fails.
func NewBank(questions []Question, extraTraits ...string) (*MemoryBank, error) {
	b := &MemoryBank{
		questions: make([]Question, 0, len(questions)),
		byID:      make(map[string]int, len(questions)),
	}
	traitSet := make(map[string]struct{})

	for _, t := range extraTraits {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("%w: empty trait name", ErrInvalidBank)
		}
		traitSet[t] = struct{}{}
	}

	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("%w: question %d has no id", ErrInvalidBank, i)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalidBank, q.ID)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("%w: question %q has no options", ErrInvalidBank, q.ID)
		}

		seen := make(map[string]struct{}, len(q.Options))
		options := make([]AnswerOption, len(q.Options))
		for j, o := range q.Options {
			if o.ID == "" {
				return nil, fmt.Errorf("%w: question %q option %d has no id", ErrInvalidBank, q.ID, j)
			}
			if _, dup := seen[o.ID]; dup {
				return nil, fmt.Errorf("%w: question %q has duplicate option %q", ErrInvalidBank, q.ID, o.ID)
			}
			seen[o.ID] = struct{}{}

			weights := make(map[string]int, len(o.Weights))
			for trait, w := range o.Weights {
				if strings.TrimSpace(trait) == "" {
					return nil, fmt.Errorf("%w: question %q option %q has an empty trait", ErrInvalidBank, q.ID, o.ID)
				}
				if w < 0 {
					return nil, fmt.Errorf("%w: question %q option %q has negative weight %d for %q",
						ErrInvalidBank, q.ID, o.ID, w, trait)
				}
				weights[trait] = w
				traitSet[trait] = struct{}{}
			}
			options[j] = AnswerOption{ID: o.ID, Label: o.Label, Weights: weights}
		}

		q.Options = options
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
	}

	b.traits = make([]string, 0, len(traitSet))
	for t := range traitSet {
		b.traits = append(b.traits, t)
	}
	sort.Strings(b.traits)

	return b, nil
}

func (b *MemoryBank) Question(id string) (Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

func (b *MemoryBank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

func (b *MemoryBank) Traits() []string {
	out := make([]string, len(b.traits))
	copy(out, b.traits)
	return out
}

// ByCategory returns the questions in the given category, in load order.
func (b *MemoryBank) ByCategory(c Category) []Question {
	var out []Question
	for _, q := range b.questions {
		if q.Category == c {
			out = append(out, q)
		}
	}
	return out
}
