package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

var guidanceCmd = &cobra.Command{
	Use:   "guidance <question>",
	Short: "Ask a career guidance question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawProfile, _ := cmd.Flags().GetStringArray("profile")
		asJSON, _ := cmd.Flags().GetBool("json")

		profile, err := parsePairs(rawProfile)
		if err != nil {
			return err
		}

		svc, ctx, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		res := svc.GetGuidance(ctx, orchestrator.GuidanceInput{
			Question: strings.Join(args, " "),
			Profile:  profile,
		})
		return printResult(cmd.OutOrStdout(), res, asJSON, func() string {
			var g orchestrator.Guidance
			if err := res.Decode(&g); err != nil {
				return res.Payload.Text
			}
			body := theme.Body.Render(g.Answer)
			if len(g.Suggestions) > 0 {
				body += "\n\n" + theme.Label.Render("Next steps") + bullets(g.Suggestions)
			}
			return body
		})
	},
}

func init() {
	guidanceCmd.Flags().StringArrayP("profile", "p", nil, "Profile context as key=value (repeatable)")
	guidanceCmd.Flags().Bool("json", false, "Print the result as JSON")
}
