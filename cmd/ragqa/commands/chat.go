package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragqa/internal/answer"
	"github.com/54b3r/ragqa/internal/logging"
)

// exitCommand ends an interactive chat session.
const exitCommand = "exit"

// answerer is satisfied by *answer.Pipeline.
type answerer interface {
	Answer(ctx context.Context, question string) answer.Result
}

// NewChatCmd constructs the `ragqa chat` command, an interactive question
// loop over the ingested documents.
func NewChatCmd() *cobra.Command {
	var pdfs []string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively until 'exit'",
		Long: `Start an interactive session. Each line is answered from the fragments in
the store; type 'exit' or send EOF to quit.

Examples:
  ragqa chat --pdf handbook.pdf`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer a.Close()

			if err := a.ingestSources(ctx, pdfs, nil); err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			pipeline, _, _, err := a.newAnswerer(ctx)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), pipeline)
		},
	}

	cmd.Flags().StringArrayVar(&pdfs, "pdf", nil, "PDF file to ingest before the session starts (repeatable)")

	return cmd
}

// chatLoop reads one question per line from in and writes each answer to
// out. Blank lines are skipped rather than sent to the model.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, a answerer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Question: ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		switch {
		case q == "":
			continue
		case strings.EqualFold(q, exitCommand):
			return nil
		}

		res := a.Answer(ctx, q)
		fmt.Fprintf(out, "Answer:\n%s\n\n", res.Text)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
