package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/aptiq/internal/quiz"
)

const counsellorRole = `You are a career counsellor for secondary school students choosing an academic stream.
Be encouraging, practical and specific. Never invent exam dates, fees or admission cut-offs.`

func jsonInstruction(shape string) string {
	return "Respond with a single JSON object and nothing else, shaped like:\n" + shape
}

func guidancePrompt(in GuidanceInput) (system, user string) {
	system = counsellorRole + "\n\n" + jsonInstruction(`{"answer": "...", "suggestions": ["...", "..."]}`)

	var b strings.Builder
	b.WriteString("Student question:\n")
	b.WriteString(strings.TrimSpace(in.Question))
	if len(in.Profile) > 0 {
		b.WriteString("\n\nStudent profile:\n")
		keys := make([]string, 0, len(in.Profile))
		for k := range in.Profile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, in.Profile[k])
		}
	}
	return system, b.String()
}

func streamPrompt(in StreamInput, ranked []quiz.Recommendation) (system, user string) {
	system = counsellorRole + "\n\n" + jsonInstruction(
		`{"stream": "...", "reasoning": "...", "careers": ["..."], "subjects": ["..."]}`)

	var b strings.Builder
	b.WriteString("Aptitude questionnaire results (trait: score, share of top score):\n")
	for _, r := range ranked {
		fmt.Fprintf(&b, "- %s: %d (%d%%)\n", r.Trait, r.Score, r.Percentage)
	}
	if len(in.Preferences) > 0 {
		b.WriteString("\nStated preferences: ")
		b.WriteString(strings.Join(in.Preferences, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nRecommend one academic stream, explain why, and list fitting careers and subjects.")
	return system, b.String()
}

func translatePrompt(in TranslateInput) (system, user string) {
	system = "You are a professional translator for educational content. Preserve meaning, tone and formatting.\n\n" +
		jsonInstruction(`{"translated_text": "..."}`)

	from := in.SourceLanguage
	if from == autoLanguage {
		from = "the detected source language"
	}
	user = fmt.Sprintf("Translate the following text from %s to %s.\n\n%s", from, in.TargetLanguage, in.Content)
	return system, user
}
