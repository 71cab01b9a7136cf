package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/abhisek/aptiq/internal/cache"
	"github.com/abhisek/aptiq/internal/llm"
	"github.com/abhisek/aptiq/internal/quiz"
)

// OpRecommendStream is the operation name for stream recommendation.
const OpRecommendStream = "recommend_stream"

// StreamInput carries a score vector and optional preferences.
type StreamInput struct {
	Scores      quiz.ScoreVector `json:"scores"`
	Preferences []string         `json:"preferences,omitempty"`
}

// StreamRecommendation is the structured stream payload.
type StreamRecommendation struct {
	Stream    string   `json:"stream"`
	Reasoning string   `json:"reasoning"`
	Careers   []string `json:"careers"`
	Subjects  []string `json:"subjects"`
}

func (in StreamInput) validate() error {
	if len(in.Scores) == 0 {
		return Validationf("scores must not be empty")
	}
	seen := make(map[string]string, len(in.Scores))
	for trait, score := range in.Scores {
		name := cache.NormalizeKey(trait)
		if name == "" {
			return Validationf("trait names must not be empty")
		}
		if score < 0 {
			return Validationf("score for %q must not be negative", trait)
		}
		if prev, dup := seen[name]; dup {
			return Validationf("traits %q and %q name the same trait", prev, trait)
		}
		seen[name] = trait
	}
	return nil
}

// canonicalScores lowercases trait names and drops zero scores, which carry
// no affinity. An all-zero vector is kept whole so ranking still has traits.
// Call only after validate.
func (in StreamInput) canonicalScores() quiz.ScoreVector {
	all := make(quiz.ScoreVector, len(in.Scores))
	nonZero := make(quiz.ScoreVector, len(in.Scores))
	for trait, score := range in.Scores {
		name := cache.NormalizeKey(trait)
		all[name] = score
		if score > 0 {
			nonZero[name] = score
		}
	}
	if len(nonZero) == 0 {
		return all
	}
	return nonZero
}

// normalizedPreferences returns trimmed, lowercased, de-duplicated and
// sorted preferences.
func (in StreamInput) normalizedPreferences() []string {
	seen := make(map[string]bool, len(in.Preferences))
	out := make([]string, 0, len(in.Preferences))
	for _, p := range in.Preferences {
		n := cache.NormalizeKey(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func streamFallback(ranked []quiz.Recommendation) func() Payload {
	return func() Payload {
		top := ranked[0]
		s := quiz.StreamFor(top.Trait)
		rec := StreamRecommendation{
			Stream: s.Name,
			Reasoning: fmt.Sprintf("Your strongest trait is %s (score %d). %s is the stream most aligned with it.",
				top.Trait, top.Score, s.Name),
			Careers:  s.Careers,
			Subjects: s.Subjects,
		}
		data, _ := json.Marshal(rec)
		return Payload{Data: data, Text: rec.Stream + ": " + rec.Reasoning}
	}
}

// RecommendStream suggests an academic stream for a score vector.
func (o *Orchestrator) RecommendStream(ctx context.Context, in StreamInput) Result {
	if err := in.validate(); err != nil {
		return o.Reject(ctx, OpRecommendStream, err)
	}

	scores := in.canonicalScores()
	prefs := in.normalizedPreferences()
	fp, err := cache.Fingerprint(OpRecommendStream, map[string]any{
		"scores":      scores,
		"preferences": prefs,
	})
	if err != nil {
		return o.Reject(ctx, OpRecommendStream, Validationf("unencodable input: %v", err))
	}

	ranked := quiz.Rank(scores, 0)
	system, user := streamPrompt(StreamInput{Scores: scores, Preferences: prefs}, ranked)

	return o.Execute(ctx, Call{
		Operation:   OpRecommendStream,
		Fingerprint: fp,
		Request: llm.Request{
			System:   system,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
		},
		Schema:   streamSchema,
		Fallback: streamFallback(ranked),
	})
}
