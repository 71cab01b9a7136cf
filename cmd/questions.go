package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/quiz"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List the active question bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		category, _ := cmd.Flags().GetString("category")

		svc, _, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		bank := svc.Bank()
		questions := bank.Questions()
		if category != "" {
			c := quiz.Category(category)
			if !c.Valid() {
				return fmt.Errorf("unknown category %q", category)
			}
			questions = bank.ByCategory(c)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, questions)
		}

		for _, q := range questions {
			fmt.Fprintf(out, "%s  %s\n", theme.Label.Render(q.ID), theme.Hint.Render(string(q.Category)))
			fmt.Fprintf(out, "  %s\n", q.Prompt)
			for _, o := range q.Options {
				fmt.Fprintf(out, "    %-12s %s\n", o.ID, o.Label)
			}
		}
		fmt.Fprintf(out, "\n%d questions, traits: %s\n", len(questions), strings.Join(bank.Traits(), ", "))
		return nil
	},
}

var questionsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Validate a YAML question bank and make it the stored bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, ctx, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		bank, err := svc.ImportQuestions(ctx, args[0])
		if err != nil {
			return fmt.Errorf("import questions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions (%d traits).\n",
			len(bank.Questions()), len(bank.Traits()))
		return nil
	},
}

func init() {
	questionsCmd.Flags().Bool("json", false, "Print questions as JSON")
	questionsCmd.Flags().String("category", "", "Filter by category (interests, aptitude, personality, values)")

	questionsCmd.AddCommand(questionsImportCmd)
}
