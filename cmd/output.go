package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/quiz"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusLine describes where a result came from.
func statusLine(res orchestrator.Result) string {
	if !res.IsSuccess() {
		return theme.Status("failed: "+string(res.Failure.Kind), false, false)
	}
	text := "source: " + string(res.Source)
	if res.Degraded {
		text += " (" + string(res.Reason) + ")"
	}
	return theme.Status(text, true, res.Degraded)
}

// printResult renders res for humans, or as JSON when asJSON is set.
// body renders the success payload; failures print their message. A
// failed result is returned as an error.
func printResult(w io.Writer, res orchestrator.Result, asJSON bool, body func() string) error {
	if asJSON {
		if err := writeJSON(w, res); err != nil {
			return err
		}
		return res.Err()
	}

	fmt.Fprintln(w, statusLine(res))
	if !res.IsSuccess() {
		return res.Err()
	}
	fmt.Fprintln(w, theme.Card.Render(body()))
	return nil
}

func printRecommendations(w io.Writer, recs []quiz.Recommendation) {
	for _, r := range recs {
		fmt.Fprintf(w, "%d. %-14s %4d  %s\n", r.Rank, r.Trait, r.Score, theme.Bar(r.Percentage, 24))
	}
}

func bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("\n  • ")
		b.WriteString(it)
	}
	return b.String()
}

// parseAnswers parses "question=option[,option]" pairs. Repeating a
// question merges its options.
func parseAnswers(raw []string) ([]quiz.Answer, error) {
	var out []quiz.Answer
	index := make(map[string]int)
	for _, s := range raw {
		qid, opts, ok := strings.Cut(s, "=")
		qid = strings.TrimSpace(qid)
		if !ok || qid == "" || strings.TrimSpace(opts) == "" {
			return nil, fmt.Errorf("invalid answer %q: want question=option[,option]", s)
		}
		var ids []string
		for _, o := range strings.Split(opts, ",") {
			if o = strings.TrimSpace(o); o != "" {
				ids = append(ids, o)
			}
		}
		if i, seen := index[qid]; seen {
			out[i].OptionIDs = append(out[i].OptionIDs, ids...)
			continue
		}
		index[qid] = len(out)
		out = append(out, quiz.Answer{QuestionID: qid, OptionIDs: ids})
	}
	return out, nil
}

// parsePairs parses "key=value" pairs.
func parsePairs(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, s := range raw {
		k, v, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid pair %q: want key=value", s)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// parseScores parses "trait=n" pairs into a score vector.
func parseScores(raw []string) (quiz.ScoreVector, error) {
	pairs, err := parsePairs(raw)
	if err != nil {
		return nil, err
	}
	sv := make(quiz.ScoreVector, len(pairs))
	for k, v := range pairs {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid score for %q: %w", k, err)
		}
		sv[k] = n
	}
	return sv, nil
}
