package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/batch"
	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/ui/theme"
)

var batchCmd = &cobra.Command{
	Use:   "batch <operations.json|->",
	Short: "Run a batch of operations and print ordered JSON results",
	Long: "Reads a JSON array of operations (or an object with an \"operations\" array) " +
		"and runs them concurrently. Each item carries an id, a type " +
		"(score_quiz, guidance, recommend_stream, translate) and params.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showMetrics, _ := cmd.Flags().GetBool("metrics")

		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			defer f.Close()
			in = f
		}
		ops, err := batch.ReadOperations(in)
		if err != nil {
			return err
		}

		svc, ctx, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		sweepCtx, stop := context.WithCancel(ctx)
		defer stop()
		go svc.Run(sweepCtx)

		results := svc.BatchProcess(ctx, ops)
		if err := batch.WriteResults(cmd.OutOrStdout(), results); err != nil {
			return err
		}

		if showMetrics {
			w := cmd.ErrOrStderr()
			printSummary(w, batch.Summarize(results))
			samples, err := svc.Metrics().Snapshot()
			if err != nil {
				return fmt.Errorf("read metrics: %w", err)
			}
			printSamples(w, samples)
		}
		return nil
	},
}

func printSummary(w io.Writer, s batch.Summary) {
	fmt.Fprintln(w, theme.Title.Render("Batch summary"))
	fmt.Fprintf(w, "%d items: %s, %s, %s\n", s.Total,
		theme.Status(fmt.Sprintf("%d succeeded", s.Succeeded), true, false),
		theme.Status(fmt.Sprintf("%d degraded", s.Degraded), true, true),
		theme.Status(fmt.Sprintf("%d failed", s.Failed), false, false))

	sources := make([]string, 0, len(s.BySource))
	for src, n := range s.BySource {
		sources = append(sources, fmt.Sprintf("%s=%d", src, n))
	}
	sort.Strings(sources)
	if len(sources) > 0 {
		fmt.Fprintf(w, "sources: %v\n", sources)
	}

	kinds := make([]string, 0, len(s.ByFailure))
	for k, n := range s.ByFailure {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(kinds)
	if len(kinds) > 0 {
		fmt.Fprintf(w, "failures: %v\n", kinds)
	}
}

func printSamples(w io.Writer, samples []metrics.Sample) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Title.Render("Metrics"))
	fmt.Fprintln(w, theme.Divider(72))
	for _, s := range samples {
		name := s.Name
		if s.Labels != "" {
			name += "{" + s.Labels + "}"
		}
		fmt.Fprintf(w, "%-60s  %10g\n", truncate(name, 60), s.Value)
	}
}

func init() {
	batchCmd.Flags().Bool("metrics", false, "Print a summary and metric totals to stderr")
}
