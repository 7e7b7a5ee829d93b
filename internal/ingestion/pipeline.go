// Package ingestion turns user-supplied sources into fragments: PDF files are
// split into page texts and web pages are reduced to visible text, then both
// are handed to the rag.Engine. Each successful ingest emits a
// DocumentIngested event. This package backs the `ragqa ingest` command and
// the HTTP upload endpoints.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/54b3r/ragqa/internal/events"
	"github.com/54b3r/ragqa/internal/rag"
)

// Engine is the subset of rag.Engine used for ingestion.
type Engine interface {
	IngestDocument(ctx context.Context, pages []string, label string) (int, error)
	IngestWebPage(ctx context.Context, text, url string) (int, error)
	Len(ctx context.Context) (int, error)
}

// PageExtractor returns one text per page of the file at path.
type PageExtractor func(path string) ([]string, error)

// PageFetcher returns the visible text of a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config holds the dependencies required to construct an Ingestor.
type Config struct {
	// Engine receives the extracted text. Required.
	Engine Engine
	// Extract splits PDFs into pages. Required for IngestFiles.
	Extract PageExtractor
	// Fetcher downloads web pages. Defaults to NewFetcher(nil).
	Fetcher PageFetcher
	// Publisher receives DocumentIngested events. Defaults to a NopPublisher.
	Publisher events.Publisher
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Report describes the outcome of ingesting one source.
type Report struct {
	// Source is the document label or normalised URL.
	Source string
	// Added is the number of fragments appended.
	Added int
	// Err is set when the source could not be ingested.
	Err error
}

// Ingestor coordinates extraction, engine ingestion and event publishing.
type Ingestor struct {
	engine    Engine
	extract   PageExtractor
	fetcher   PageFetcher
	publisher events.Publisher
	log       *slog.Logger
}

// NewIngestor constructs an Ingestor from cfg.
func NewIngestor(cfg *Config) (*Ingestor, error) {
	if cfg == nil || cfg.Engine == nil {
		return nil, fmt.Errorf("ingestion: engine must not be nil")
	}
	in := &Ingestor{
		engine:    cfg.Engine,
		extract:   cfg.Extract,
		fetcher:   cfg.Fetcher,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
	}
	if in.fetcher == nil {
		in.fetcher = NewFetcher(nil)
	}
	if in.publisher == nil {
		in.publisher = events.NewNopPublisher()
	}
	if in.log == nil {
		in.log = slog.Default()
	}
	return in, nil
}

// IngestFile extracts the pages of the PDF at path and ingests them under
// label. An empty label defaults to the file's base name.
func (in *Ingestor) IngestFile(ctx context.Context, path, label string) (int, error) {
	if in.extract == nil {
		return 0, fmt.Errorf("ingestion: no page extractor configured")
	}
	if label == "" {
		label = DocumentLabel(path)
	}
	pages, err := in.extract(path)
	if err != nil {
		return 0, fmt.Errorf("ingestion: extract %s: %w", label, err)
	}
	added, err := in.engine.IngestDocument(ctx, pages, label)
	if err != nil {
		return added, err
	}
	in.publish(ctx, label, events.KindPDF, added)
	return added, nil
}

// IngestFiles ingests each path in order, continuing past failures. The
// returned error joins every per-file error.
func (in *Ingestor) IngestFiles(ctx context.Context, paths []string) ([]Report, error) {
	reports := make([]Report, 0, len(paths))
	var errs []error
	for _, p := range paths {
		label := DocumentLabel(p)
		added, err := in.IngestFile(ctx, p, label)
		reports = append(reports, Report{Source: label, Added: added, Err: err})
		if err != nil {
			in.log.Error("ingest: file failed", slog.String("file", p), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// IngestURL fetches rawURL and ingests its text as a single fragment.
func (in *Ingestor) IngestURL(ctx context.Context, rawURL string) (string, int, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return rawURL, 0, fmt.Errorf("%w: %w", rag.ErrValidation, err)
	}
	text, err := in.fetcher.Fetch(ctx, u)
	if err != nil {
		return u, 0, err
	}
	added, err := in.engine.IngestWebPage(ctx, text, u)
	if err != nil {
		return u, added, err
	}
	in.publish(ctx, u, events.KindWebPage, added)
	return u, added, nil
}

// IngestURLs ingests each URL in order, continuing past failures.
func (in *Ingestor) IngestURLs(ctx context.Context, urls []string) ([]Report, error) {
	reports := make([]Report, 0, len(urls))
	var errs []error
	for _, raw := range urls {
		u, added, err := in.IngestURL(ctx, raw)
		reports = append(reports, Report{Source: u, Added: added, Err: err})
		if err != nil {
			in.log.Error("ingest: url failed", slog.String("url", raw), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// publish emits a DocumentIngested event. Sources that added nothing are not
// announced. Failures are logged only.
func (in *Ingestor) publish(ctx context.Context, source, kind string, added int) {
	if added == 0 {
		return
	}
	total, err := in.engine.Len(ctx)
	if err != nil {
		total = -1
	}
	ev := events.NewDocumentIngested(source, kind, added, total)
	if err := in.publisher.Publish(ctx, ev); err != nil {
		in.log.Warn("ingest: event publish failed",
			slog.String("source", source),
			slog.String("event_id", ev.EventID),
			slog.Any("error", err),
		)
	}
}
