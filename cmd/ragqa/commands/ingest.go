package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragqa/internal/logging"
)

// NewIngestCmd constructs the `ragqa ingest` command, which adds PDFs and web
// pages to the configured fragment store.
func NewIngestCmd() *cobra.Command {
	var pdfs []string
	var urls []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest PDFs and web pages into the fragment store",
		Long: `Extract text from PDFs and web pages and append it to the fragment store.

Each non-empty PDF page becomes one fragment labelled "<file>: page <n>". A web
page becomes a single fragment labelled with its URL. The index is rebuilt once
per source.

Ingestion only persists across runs with a SQLite store: set STORE_DB to a
database path, or to "default" for ~/.ragqa/fragments.db. Without STORE_DB the
fragments are discarded when the command exits. A document whose label is
already stored is skipped.

Examples:
  ragqa ingest --pdf report.pdf --pdf notes.pdf
  ragqa ingest --url https://go.dev/doc/effective_go`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if len(pdfs) == 0 && len(urls) == 0 {
				return fmt.Errorf("ingest: at least one --pdf or --url is required")
			}

			a, err := buildApp(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer a.Close()

			if a.settings.InMemoryStore() {
				log.Warn("ingest: in-memory store, fragments will not outlive this command; set STORE_DB to persist")
			}

			log.Info("starting ingestion", slog.Int("pdfs", len(pdfs)), slog.Int("urls", len(urls)))
			if err := a.ingestSources(ctx, pdfs, urls); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			total, _ := a.engine.Len(ctx)
			log.Info("ingestion complete", slog.Int("fragments_total", total))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&pdfs, "pdf", nil, "PDF file to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Web page URL to ingest (repeatable)")

	return cmd
}
