package orchestrator

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/abhisek/aptiq/internal/cache"
	"github.com/abhisek/aptiq/internal/llm"
)

// OpGuidance is the operation name for career guidance.
const OpGuidance = "guidance"

// MaxQuestionLength bounds guidance questions, in characters.
const MaxQuestionLength = 2000

// GuidanceInput is a free-form question with optional profile context.
type GuidanceInput struct {
	Question string            `json:"question"`
	Profile  map[string]string `json:"profile,omitempty"`
}

// Guidance is the structured guidance payload.
type Guidance struct {
	Answer      string   `json:"answer"`
	Suggestions []string `json:"suggestions"`
}

func (in GuidanceInput) validate() error {
	q := strings.TrimSpace(in.Question)
	if q == "" {
		return Validationf("question is required")
	}
	if utf8.RuneCountInString(q) > MaxQuestionLength {
		return Validationf("question exceeds %d characters", MaxQuestionLength)
	}
	seen := make(map[string]string, len(in.Profile))
	for k := range in.Profile {
		name := cache.NormalizeKey(k)
		if name == "" {
			return Validationf("profile keys must not be empty")
		}
		if prev, dup := seen[name]; dup {
			return Validationf("profile keys %q and %q differ only in case or spacing", prev, k)
		}
		seen[name] = k
	}
	return nil
}

// fingerprint keys the normalized question and profile as sorted pairs.
// validate guarantees the normalized profile keys are distinct.
func (in GuidanceInput) fingerprint() (string, error) {
	profile := make([][2]string, 0, len(in.Profile))
	for k, v := range in.Profile {
		profile = append(profile, [2]string{cache.NormalizeKey(k), cache.NormalizeKey(v)})
	}
	sort.Slice(profile, func(i, j int) bool {
		if profile[i][0] != profile[j][0] {
			return profile[i][0] < profile[j][0]
		}
		return profile[i][1] < profile[j][1]
	})
	return cache.Fingerprint(OpGuidance, map[string]any{
		"question": cache.NormalizeKey(in.Question),
		"profile":  profile,
	})
}

func guidanceFallback() Payload {
	g := Guidance{
		Answer: "We could not generate personalised guidance right now. " +
			"Start from your strongest questionnaire traits and talk to a school counsellor about streams that match them.",
		Suggestions: []string{
			"Review your top-ranked traits from the questionnaire",
			"Discuss subject choices with a teacher or counsellor",
			"Try asking again in a few minutes",
		},
	}
	data, _ := json.Marshal(g)
	return Payload{Data: data, Text: g.Answer}
}

// GetGuidance answers a career question.
func (o *Orchestrator) GetGuidance(ctx context.Context, in GuidanceInput) Result {
	if err := in.validate(); err != nil {
		return o.Reject(ctx, OpGuidance, err)
	}
	fp, err := in.fingerprint()
	if err != nil {
		return o.Reject(ctx, OpGuidance, Validationf("unencodable input: %v", err))
	}

	system, user := guidancePrompt(in)
	return o.Execute(ctx, Call{
		Operation:   OpGuidance,
		Fingerprint: fp,
		Request: llm.Request{
			System:   system,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
		},
		Schema:   guidanceSchema,
		Fallback: guidanceFallback,
	})
}
