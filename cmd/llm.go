package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/llm"
	"github.com/abhisek/aptiq/internal/store"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded provider attempts, token use and spend",
}

var llmEventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"list"},
	Short:   "List recent provider attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		operation, _ := cmd.Flags().GetString("operation")
		outcome, _ := cmd.Flags().GetString("outcome")
		asJSON, _ := cmd.Flags().GetBool("json")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{
			Limit:     limit,
			Operation: operation,
			Outcome:   outcome,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, events)
		}
		if len(events) == 0 {
			fmt.Fprintln(out, "No provider attempts recorded yet.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-16s  %-24s  %-12s  %7s  %7s  %9s  %6s\n",
			"ID", "Timestamp", "Operation", "Model", "Outcome", "In", "Out", "Cost", "Ms")
		fmt.Fprintln(out, theme.Divider(110))
		for _, e := range events {
			fmt.Fprintf(out, "%-5d  %-19s  %-16s  %-24s  %s  %7d  %7d  %9s  %6d\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.Operation, 16),
				truncate(e.Model, 24),
				theme.Status(fmt.Sprintf("%-12s", e.Outcome), e.Success, false),
				e.InputTokens,
				e.OutputTokens,
				formatCost(e.CostUSD),
				e.LatencyMs,
			)
		}
		return nil
	},
}

var llmShowCmd = &cobra.Command{
	Use:     "show <id>",
	Aliases: []string{"view"},
	Short:   "Show the captured prompt and answer of one attempt",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		out := cmd.OutOrStdout()
		field := func(name, value string) {
			fmt.Fprintf(out, "%s %s\n", theme.Label.Render(fmt.Sprintf("%-10s", name)), value)
		}
		field("Time", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		field("Provider", e.Provider)
		field("Model", e.Model)
		field("Operation", e.Operation)
		field("Outcome", theme.Status(e.Outcome, e.Success, false))
		field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens))
		field("Cost", formatCost(e.CostUSD))
		field("Latency", fmt.Sprintf("%dms", e.LatencyMs))
		if e.ErrorMessage != "" {
			field("Error", theme.Bad.Render(e.ErrorMessage))
		}

		section(out, "Prompt", e.RequestBody)
		section(out, "Answer", e.ResponseBody)
		return nil
	},
}

var llmUsageCmd = &cobra.Command{
	Use:     "usage",
	Aliases: []string{"stats"},
	Short:   "Summarize token use and estimated spend by operation and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byOp, err := s.EventRepo().LLMUsageByOperation(ctx)
		if err != nil {
			return fmt.Errorf("query operation usage: %w", err)
		}
		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(byOp) == 0 {
			fmt.Fprintln(out, "No provider usage recorded yet.")
			return nil
		}

		fmt.Fprintln(out, theme.Title.Render("By operation"))
		fmt.Fprintf(out, "%-16s  %6s  %6s  %10s  %10s  %9s  %7s\n",
			"Operation", "Calls", "Failed", "Input", "Output", "Cost", "Avg Ms")
		fmt.Fprintln(out, theme.Divider(78))
		var total store.LLMOperationUsage
		for _, u := range byOp {
			fmt.Fprintf(out, "%-16s  %6d  %6d  %10d  %10d  %9s  %7d\n",
				truncate(u.Operation, 16), u.Calls, u.Failures, u.InputTokens, u.OutputTokens,
				formatCost(u.CostUSD), u.AvgLatencyMs)
			total.Calls += u.Calls
			total.Failures += u.Failures
			total.InputTokens += u.InputTokens
			total.OutputTokens += u.OutputTokens
			total.CostUSD += u.CostUSD
		}
		fmt.Fprintln(out, theme.Divider(78))
		fmt.Fprintf(out, "%-16s  %6d  %6d  %10d  %10d  %9s\n",
			"TOTAL", total.Calls, total.Failures, total.InputTokens, total.OutputTokens, formatCost(total.CostUSD))

		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Title.Render("By model"))
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %9s\n", "Model", "Calls", "Input", "Output", "Cost")
		fmt.Fprintln(out, theme.Divider(78))
		var unpriced []string
		for _, u := range byModel {
			cost := formatCost(u.CostUSD)
			if llm.LookupCost(u.Model) == nil {
				cost = "?"
				unpriced = append(unpriced, u.Model)
			}
			fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %9s\n",
				truncate(u.Model, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
		}
		if len(unpriced) > 0 {
			fmt.Fprintln(out, theme.Hint.Render("No list price for: "+strings.Join(unpriced, ", ")))
		}
		return nil
	},
}

func section(w io.Writer, title, body string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Title.Render(title))
	fmt.Fprintln(w, theme.Divider(60))
	if body == "" {
		fmt.Fprintln(w, theme.Hint.Render("(not captured)"))
		return
	}
	fmt.Fprintln(w, body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	switch {
	case usd == 0:
		return "-"
	case usd < 0.01:
		return fmt.Sprintf("$%.4f", usd)
	default:
		return fmt.Sprintf("$%.2f", usd)
	}
}

func init() {
	llmEventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmEventsCmd.Flags().StringP("operation", "o", "", "Filter by operation (guidance, recommend_stream, translate)")
	llmEventsCmd.Flags().String("outcome", "", "Filter by outcome (ok, timeout, rate_limited, rejected, invalid, truncated, unavailable)")
	llmEventsCmd.Flags().Bool("json", false, "Print events as JSON")

	llmCmd.AddCommand(llmEventsCmd)
	llmCmd.AddCommand(llmShowCmd)
	llmCmd.AddCommand(llmUsageCmd)
}
