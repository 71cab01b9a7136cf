package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/ui/theme"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score questionnaire answers",
	Example: "  aptiq score --answer int-weekend=lab --answer val-future=build,discover --top 3",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawAnswers, _ := cmd.Flags().GetStringArray("answer")
		topN, _ := cmd.Flags().GetInt("top")
		asJSON, _ := cmd.Flags().GetBool("json")

		answers, err := parseAnswers(rawAnswers)
		if err != nil {
			return err
		}

		svc, _, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.ScoreQuiz(answers, topN)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, res)
		}
		fmt.Fprintln(out, theme.Title.Render("Your strongest traits"))
		printRecommendations(out, res.Recommendations)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringArrayP("answer", "a", nil, "Answer as question=option[,option] (repeatable)")
	scoreCmd.Flags().IntP("top", "n", 0, "Number of recommendations to show (0 for all)")
	scoreCmd.Flags().Bool("json", false, "Print the result as JSON")
}
