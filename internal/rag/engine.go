package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineConfig holds the dependencies required to construct an Engine.
type EngineConfig struct {
	// Store is the authoritative fragment collection.
	Store FragmentStore

	// Indexer selects the indexing strategy.
	Indexer Indexer

	// Logger is used for rebuild and ingestion events. Defaults to slog.Default.
	Logger *slog.Logger

	// Registerer receives the engine's Prometheus collectors. If nil, a private
	// registry is used so the engine never touches the global default.
	Registerer prometheus.Registerer
}

// Engine owns the fragment store and its derived index. Ingestion (append
// then rebuild) holds the write lock and scoring holds the read lock, so a
// retrieval observes either the complete pre-rebuild or post-rebuild state.
// One Engine is created per process and shared by reference.
type Engine struct {
	// mu guards store mutations, index and stale.
	mu sync.RWMutex

	// store is the authoritative fragment collection.
	store FragmentStore

	// indexer rebuilds index from the full store contents.
	indexer Indexer

	// index is the current derived index; nil until the first rebuild.
	index Index

	// stale is set when the store changed but the rebuild failed.
	stale bool

	// log is the structured logger for engine events.
	log *slog.Logger

	// metrics holds the engine's Prometheus collectors.
	metrics *engineMetrics
}

// NewEngine constructs an Engine. Call Load before serving queries when the
// store may already hold fragments (e.g. a persistent SQLite store).
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg.Indexer == nil {
		return nil, fmt.Errorf("rag: indexer must not be nil")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Engine{
		store:   cfg.Store,
		indexer: cfg.Indexer,
		log:     log,
		metrics: newEngineMetrics(reg),
	}, nil
}

// Strategy returns the name of the configured indexing strategy.
func (e *Engine) Strategy() string { return e.indexer.Name() }

// Load rebuilds the index from whatever the store already contains.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildLocked(ctx)
}

// IngestDocument appends one fragment per non-blank page and then rebuilds
// the index exactly once. Pages are labelled "{label}: page {n}", where n
// counts the fragments added for this document starting at 1. A label whose
// first page is already stored is skipped. Returns the number of fragments
// added.
func (e *Engine) IngestDocument(ctx context.Context, pages []string, label string) (int, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, fmt.Errorf("rag: document label is required: %w", ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if ok, err := e.store.HasSource(ctx, fmt.Sprintf("%s: page %d", label, 1)); err != nil {
		return 0, fmt.Errorf("rag: check %q: %w", label, err)
	} else if ok {
		e.log.Info("ingest: document already stored, skipping", slog.String("document", label))
		return 0, nil
	}

	added := 0
	var appendErr error
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		source := fmt.Sprintf("%s: page %d", label, added+1)
		if _, err := e.store.Append(ctx, page, source); err != nil {
			appendErr = fmt.Errorf("rag: append %q: %w", source, err)
			break
		}
		added++
	}

	if added == 0 && appendErr == nil {
		e.log.Info("ingest: document has no text, skipping", slog.String("document", label))
		return 0, nil
	}

	// Rebuild even after a partial failure so the index matches the store.
	if err := e.rebuildLocked(ctx); err != nil {
		return added, err
	}
	if appendErr != nil {
		return added, appendErr
	}

	e.log.Info("ingest: document indexed",
		slog.String("document", label),
		slog.Int("fragments_added", added),
		slog.Int("fragments_total", e.index.Len()),
	)
	return added, nil
}

// IngestWebPage appends text as a single fragment sourced to url and rebuilds
// the index. Blank text and an already stored url are no-ops.
func (e *Engine) IngestWebPage(ctx context.Context, text, url string) (int, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, fmt.Errorf("rag: page url is required: %w", ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		e.log.Info("ingest: web page has no text, skipping", slog.String("url", url))
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if ok, err := e.store.HasSource(ctx, url); err != nil {
		return 0, fmt.Errorf("rag: check %q: %w", url, err)
	} else if ok {
		e.log.Info("ingest: web page already stored, skipping", slog.String("url", url))
		return 0, nil
	}

	if _, err := e.store.Append(ctx, text, url); err != nil {
		return 0, fmt.Errorf("rag: append %q: %w", url, err)
	}
	if err := e.rebuildLocked(ctx); err != nil {
		return 1, err
	}

	e.log.Info("ingest: web page indexed",
		slog.String("url", url),
		slog.Int("fragments_total", e.index.Len()),
	)
	return 1, nil
}

// Get returns the fragment at id.
func (e *Engine) Get(ctx context.Context, id FragmentID) (Fragment, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Get(ctx, id)
}

// Len returns the number of fragments in the store.
func (e *Engine) Len(ctx context.Context) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Len(ctx)
}

// rebuildLocked recomputes the index from the full store. The caller must
// hold the write lock. On failure the index is dropped and marked stale so
// it is never queried against a store it does not match.
func (e *Engine) rebuildLocked(ctx context.Context) error {
	start := time.Now()
	fragments, err := e.store.All(ctx)
	if err == nil {
		var idx Index
		idx, err = e.indexer.Rebuild(ctx, fragments)
		if err == nil && idx.Len() != len(fragments) {
			err = fmt.Errorf("rag: index covers %d fragments, store has %d", idx.Len(), len(fragments))
		}
		if err == nil {
			e.index = idx
			e.stale = false
			e.metrics.observeRebuild(e.indexer.Name(), "ok", time.Since(start), len(fragments))
			e.log.Debug("index rebuilt",
				slog.String("strategy", e.indexer.Name()),
				slog.Int("fragments", len(fragments)),
				slog.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}

	e.index = nil
	e.stale = true
	e.metrics.observeRebuild(e.indexer.Name(), "error", time.Since(start), -1)
	e.log.Error("index rebuild failed",
		slog.String("strategy", e.indexer.Name()),
		slog.Any("error", err),
	)
	return fmt.Errorf("rag: rebuild failed: %w", err)
}

// refreshIfStale retries a failed rebuild before a retrieval.
func (e *Engine) refreshIfStale(ctx context.Context) error {
	e.mu.RLock()
	stale := e.stale
	e.mu.RUnlock()
	if !stale {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.stale {
		return nil
	}
	return e.rebuildLocked(ctx)
}
