package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

var translateCmd = &cobra.Command{
	Use:     "translate <text>",
	Short:   "Translate quiz or guidance text",
	Example: "  aptiq translate --to hi \"Which subjects do you enjoy most?\"",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		from, _ := cmd.Flags().GetString("from")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, ctx, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		res := svc.Translate(ctx, orchestrator.TranslateInput{
			Content:        strings.Join(args, " "),
			TargetLanguage: to,
			SourceLanguage: from,
		})
		return printResult(cmd.OutOrStdout(), res, asJSON, func() string {
			var tr orchestrator.Translation
			if err := res.Decode(&tr); err != nil {
				return res.Payload.Text
			}
			body := theme.Body.Render(tr.TranslatedText)
			if tr.Note != "" {
				body += "\n" + theme.Hint.Render(tr.Note)
			}
			return body
		})
	},
}

func init() {
	translateCmd.Flags().String("to", "", "Target language code (e.g. hi, ta, fr)")
	translateCmd.Flags().String("from", "", "Source language code (default: auto-detect)")
	translateCmd.Flags().Bool("json", false, "Print the result as JSON")
	_ = translateCmd.MarkFlagRequired("to")
}
