// Package quiz implements the aptitude questionnaire scoring engine: a pure
// reduction from answers to a trait score vector and a ranked list of
// recommendations.
package quiz

import "sort"

// Category groups questions by the dimension they measure.
type Category string

const (
	CategoryInterests   Category = "interests"
	CategoryAptitude    Category = "aptitude"
	CategoryPersonality Category = "personality"
	CategoryValues      Category = "values"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryInterests, CategoryAptitude, CategoryPersonality, CategoryValues:
		return true
	}
	return false
}

// AnswerOption is one selectable answer. Weights maps a trait name to a
// non-negative contribution.
type AnswerOption struct {
	ID      string         `json:"id" yaml:"id"`
	Label   string         `json:"label" yaml:"label"`
	Weights map[string]int `json:"weights" yaml:"weights"`
}

// Question is an immutable entry of the question bank.
type Question struct {
	ID       string         `json:"id" yaml:"id"`
	Category Category       `json:"category" yaml:"category"`
	Prompt   string         `json:"prompt" yaml:"prompt"`
	Options  []AnswerOption `json:"options" yaml:"options"`
}

// Option returns the option with the given id.
func (q Question) Option(id string) (AnswerOption, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return AnswerOption{}, false
}

// Answer is a caller's selection for one question. Multi-select questions
// carry more than one option id.
type Answer struct {
	QuestionID string   `json:"question_id"`
	OptionIDs  []string `json:"option_ids"`
}

// ScoreVector maps trait names to accumulated scores.
type ScoreVector map[string]int

// Clone returns an independent copy of the vector.
func (sv ScoreVector) Clone() ScoreVector {
	out := make(ScoreVector, len(sv))
	for k, v := range sv {
		out[k] = v
	}
	return out
}

// Traits returns the trait names in ascending order.
func (sv ScoreVector) Traits() []string {
	traits := make([]string, 0, len(sv))
	for t := range sv {
		traits = append(traits, t)
	}
	sort.Strings(traits)
	return traits
}

// Recommendation is a ranked trait derived from a ScoreVector.
type Recommendation struct {
	Trait      string `json:"trait"`
	Score      int    `json:"score"`
	Percentage int    `json:"percentage"`
	Rank       int    `json:"rank"`
}

// Result is the output of ScoreQuiz.
type Result struct {
	Scores          ScoreVector      `json:"score_vector"`
	Recommendations []Recommendation `json:"recommendations"`
}
