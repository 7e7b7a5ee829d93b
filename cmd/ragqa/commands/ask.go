package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragqa/internal/answer"
	"github.com/54b3r/ragqa/internal/logging"
)

// NewAskCmd constructs the `ragqa ask` command, which answers a single
// question and prints the answer to stdout.
func NewAskCmd() *cobra.Command {
	var pdfs []string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question from the ingested documents",
		Long: `Answer a natural language question using the fragments in the store.

PDFs passed with --pdf are ingested before the question is asked.

Examples:
  ragqa ask "what does the report say about revenue?"
  ragqa ask --pdf report.pdf "summarise the conclusions"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			if err := a.ingestSources(ctx, pdfs, nil); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			pipeline, _, _, err := a.newAnswerer(ctx)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			res := pipeline.Answer(ctx, strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			if res.Outcome == answer.OutcomeFailed {
				return fmt.Errorf("ask: %w", res.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&pdfs, "pdf", nil, "PDF file to ingest before asking (repeatable)")

	return cmd
}
