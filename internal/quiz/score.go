package quiz

import (
	"errors"
	"math"
	"sort"
)

// ErrNoAnswers is returned by ScoreQuiz for an empty submission.
var ErrNoAnswers = errors.New("at least one answer is required")

// Score reduces answers into a fresh ScoreVector. Every bank trait starts at
// zero. Answers that reference unknown questions or options are skipped so a
// partial submission still scores. An option counts once per question no
// matter how often it is selected, including across repeated answers to the
// same question.
func Score(answers []Answer, bank Bank) ScoreVector {
	sv := make(ScoreVector)
	for _, t := range bank.Traits() {
		sv[t] = 0
	}

	chosen := make(map[string]map[string]bool, len(answers))
	for _, a := range answers {
		q, ok := bank.Question(a.QuestionID)
		if !ok {
			continue
		}
		seen := chosen[q.ID]
		if seen == nil {
			seen = make(map[string]bool, len(a.OptionIDs))
			chosen[q.ID] = seen
		}
		for _, optID := range a.OptionIDs {
			opt, ok := q.Option(optID)
			if !ok || seen[opt.ID] {
				continue
			}
			seen[opt.ID] = true
			for trait, w := range opt.Weights {
				sv[trait] += w
			}
		}
	}

	return sv
}

// Rank orders traits by score descending, breaking ties by trait name, and
// returns at most topN recommendations (all of them when topN <= 0).
// Percentages are relative to the highest score; an all-zero vector yields
// 0% everywhere.
func Rank(sv ScoreVector, topN int) []Recommendation {
	traits := sv.Traits()
	sort.SliceStable(traits, func(i, j int) bool {
		si, sj := sv[traits[i]], sv[traits[j]]
		if si != sj {
			return si > sj
		}
		return traits[i] < traits[j]
	})

	maxScore := 0
	for _, s := range sv {
		if s > maxScore {
			maxScore = s
		}
	}

	if topN <= 0 || topN > len(traits) {
		topN = len(traits)
	}

	recs := make([]Recommendation, topN)
	for i := 0; i < topN; i++ {
		t := traits[i]
		recs[i] = Recommendation{
			Trait:      t,
			Score:      sv[t],
			Percentage: percentage(sv[t], maxScore),
			Rank:       i + 1,
		}
	}
	return recs
}

func percentage(score, maxScore int) int {
	if maxScore <= 0 || score <= 0 {
		return 0
	}
	p := int(math.Round(float64(score) / float64(maxScore) * 100))
	if p > 100 {
		return 100
	}
	return p
}

// ScoreQuiz scores a submission and ranks the result.
func ScoreQuiz(bank Bank, answers []Answer, topN int) (Result, error) {
	if len(answers) == 0 {
		return Result{}, ErrNoAnswers
	}
	sv := Score(answers, bank)
	return Result{
		Scores:          sv,
		Recommendations: Rank(sv, topN),
	}, nil
}
