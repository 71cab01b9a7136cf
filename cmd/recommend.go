package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/quiz"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend an academic stream from answers or scores",
	Example: "  aptiq recommend --answer int-weekend=lab --prefer biology\n" +
		"  aptiq recommend --score science=12 --score arts=4",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawAnswers, _ := cmd.Flags().GetStringArray("answer")
		rawScores, _ := cmd.Flags().GetStringArray("score")
		prefs, _ := cmd.Flags().GetStringSlice("prefer")
		asJSON, _ := cmd.Flags().GetBool("json")

		if len(rawAnswers) > 0 && len(rawScores) > 0 {
			return errors.New("use --answer or --score, not both")
		}

		svc, ctx, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		var scores quiz.ScoreVector
		if len(rawScores) > 0 {
			if scores, err = parseScores(rawScores); err != nil {
				return err
			}
		} else {
			answers, err := parseAnswers(rawAnswers)
			if err != nil {
				return err
			}
			res, err := svc.ScoreQuiz(answers, 0)
			if err != nil {
				return err
			}
			scores = res.Scores
		}

		out := cmd.OutOrStdout()
		res := svc.RecommendStream(ctx, orchestrator.StreamInput{Scores: scores, Preferences: prefs})
		return printResult(out, res, asJSON, func() string {
			return renderStream(res)
		})
	},
}

func renderStream(res orchestrator.Result) string {
	var rec orchestrator.StreamRecommendation
	if err := res.Decode(&rec); err != nil {
		return res.Payload.Text
	}
	body := theme.Title.Render(rec.Stream) + "\n" + theme.Body.Render(rec.Reasoning)
	if len(rec.Subjects) > 0 {
		body += "\n\n" + theme.Label.Render("Subjects") + bullets(rec.Subjects)
	}
	if len(rec.Careers) > 0 {
		body += "\n\n" + theme.Label.Render("Careers") + bullets(rec.Careers)
	}
	return body
}

func init() {
	recommendCmd.Flags().StringArrayP("answer", "a", nil, "Answer as question=option[,option] (repeatable)")
	recommendCmd.Flags().StringArrayP("score", "s", nil, "Trait score as trait=n (repeatable)")
	recommendCmd.Flags().StringSlice("prefer", nil, "Preferred subjects or fields")
	recommendCmd.Flags().Bool("json", false, "Print the result as JSON")
}
