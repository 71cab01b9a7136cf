package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/aptiq/internal/batch"
	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/quiz"
)

// Batch operation types.
const (
	OpScoreQuiz       = "score_quiz"
	OpGuidance        = orchestrator.OpGuidance
	OpRecommendStream = orchestrator.OpRecommendStream
	OpTranslate       = orchestrator.OpTranslate
)

type scoreParams struct {
	Answers []quiz.Answer `json:"answers"`
	TopN    int           `json:"top_n"`
}

// streamParams accepts either a score vector or raw answers, which are
// scored against the active bank first.
type streamParams struct {
	Scores      quiz.ScoreVector `json:"scores"`
	Answers     []quiz.Answer    `json:"answers"`
	Preferences []string         `json:"preferences"`
}

func (s *Service) handlers() map[string]batch.Handler {
	return map[string]batch.Handler{
		OpScoreQuiz:       s.handleScore,
		OpGuidance:        s.handleGuidance,
		OpRecommendStream: s.handleStream,
		OpTranslate:       s.handleTranslate,
	}
}

func (s *Service) handleScore(_ context.Context, params json.RawMessage) orchestrator.Result {
	var p scoreParams
	if err := batch.DecodeParams(params, &p); err != nil {
		return orchestrator.FailedErr(err)
	}
	res, err := s.ScoreQuiz(p.Answers, p.TopN)
	if err != nil {
		return orchestrator.FailedErr(scoreError(err))
	}
	return ScoreResult(res)
}

func (s *Service) handleGuidance(ctx context.Context, params json.RawMessage) orchestrator.Result {
	var in orchestrator.GuidanceInput
	if err := batch.DecodeParams(params, &in); err != nil {
		return orchestrator.FailedErr(err)
	}
	return s.GetGuidance(ctx, in)
}

func (s *Service) handleStream(ctx context.Context, params json.RawMessage) orchestrator.Result {
	var p streamParams
	if err := batch.DecodeParams(params, &p); err != nil {
		return orchestrator.FailedErr(err)
	}
	scores := p.Scores
	if len(scores) == 0 && len(p.Answers) > 0 {
		scores = quiz.Score(p.Answers, s.Bank())
	}
	return s.RecommendStream(ctx, orchestrator.StreamInput{Scores: scores, Preferences: p.Preferences})
}

func (s *Service) handleTranslate(ctx context.Context, params json.RawMessage) orchestrator.Result {
	var in orchestrator.TranslateInput
	if err := batch.DecodeParams(params, &in); err != nil {
		return orchestrator.FailedErr(err)
	}
	return s.Translate(ctx, in)
}

func scoreError(err error) error {
	if errors.Is(err, quiz.ErrNoAnswers) {
		return orchestrator.Validationf("%v", err)
	}
	return err
}

// ScoreResult wraps a quiz result as a computed orchestration result.
func ScoreResult(res quiz.Result) orchestrator.Result {
	data, err := json.Marshal(res)
	if err != nil {
		return orchestrator.Failed(orchestrator.KindInternal, err.Error())
	}
	return orchestrator.Succeeded(orchestrator.Payload{Data: data, Text: SummarizeScore(res)}, orchestrator.SourceComputed)
}

// SummarizeScore renders the ranking as one line.
func SummarizeScore(res quiz.Result) string {
	parts := make([]string, 0, len(res.Recommendations))
	for _, r := range res.Recommendations {
		parts = append(parts, fmt.Sprintf("%d. %s (%d%%)", r.Rank, r.Trait, r.Percentage))
	}
	return strings.Join(parts, ", ")
}
