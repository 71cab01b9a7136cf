package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/store"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent orchestrated operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		operation, _ := cmd.Flags().GetString("operation")
		identity, _ := cmd.Flags().GetString("for")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryOrchestrationEvents(cmd.Context(), store.QueryOpts{
			Limit:     limit,
			Operation: operation,
			Identity:  identity,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No operations recorded yet.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-16s  %-16s  %-9s  %-28s  %s\n",
			"ID", "Timestamp", "Operation", "Identity", "Source", "Reason", "Ms")
		fmt.Fprintln(out, strings.Repeat("─", 110))

		for _, e := range events {
			source := e.Source
			if source == "" {
				source = "-"
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-16s  %-16s  %-9s  %-28s  %d\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Operation,
				truncate(e.Identity, 16),
				theme.Status(fmt.Sprintf("%-9s", source), e.Success, e.Degraded),
				e.Kind,
				e.LatencyMs,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	historyCmd.Flags().StringP("operation", "o", "", "Filter by operation (guidance, recommend_stream, translate)")
	historyCmd.Flags().String("for", "", "Filter by caller identity")
}
