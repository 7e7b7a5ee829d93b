package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/ragqa/internal/answer"
	"github.com/54b3r/ragqa/internal/config"
	"github.com/54b3r/ragqa/internal/embedder"
	"github.com/54b3r/ragqa/internal/events"
	"github.com/54b3r/ragqa/internal/ingestion"
	"github.com/54b3r/ragqa/internal/pdftext"
	"github.com/54b3r/ragqa/internal/prompt"
	"github.com/54b3r/ragqa/internal/provider"
	"github.com/54b3r/ragqa/internal/rag"
	"github.com/54b3r/ragqa/internal/store"
	"github.com/54b3r/ragqa/internal/tracing"
)

// app bundles the long-lived components shared by every command. One app is
// built per process.
type app struct {
	settings *config.Settings
	engine   *rag.Engine
	ingestor *ingestion.Ingestor

	// sqlite is nil unless STORE_DB names a database.
	sqlite *store.SQLiteStore
	// qdrant is nil unless INDEX_STRATEGY=qdrant.
	qdrant *rag.QdrantIndexer

	closers []func() error
	log     *slog.Logger
}

// buildApp resolves settings, opens the fragment store, constructs the
// indexer for the configured strategy and loads any persisted fragments into
// the index. reg receives the engine metrics; nil keeps them private.
func buildApp(ctx context.Context, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	settings, err := config.ResolveSettings()
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings, log: log}

	fragments, err := a.openStore()
	if err != nil {
		return nil, err
	}

	indexer, err := a.buildIndexer()
	if err != nil {
		a.Close()
		return nil, err
	}

	engine, err := rag.NewEngine(&rag.EngineConfig{
		Store:      fragments,
		Indexer:    indexer,
		Logger:     log,
		Registerer: reg,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := engine.Load(ctx); err != nil {
		// The engine marks itself stale and retries on the first retrieval.
		log.Warn("engine: initial index build failed", slog.Any("error", err))
	}
	a.engine = engine

	publisher, err := events.NewFromEnv()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)

	ingestor, err := ingestion.NewIngestor(&ingestion.Config{
		Engine:    engine,
		Extract:   pdftext.Extract,
		Publisher: publisher,
		Logger:    log,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create ingestor: %w", err)
	}
	a.ingestor = ingestor

	n, _ := engine.Len(ctx)
	log.Info("engine ready",
		slog.String("strategy", engine.Strategy()),
		slog.Int("fragments", n),
	)
	return a, nil
}

// openStore returns an in-memory store unless STORE_DB names a SQLite
// database. STORE_DB=default selects ~/.ragqa/fragments.db.
func (a *app) openStore() (rag.FragmentStore, error) {
	if a.settings.InMemoryStore() {
		a.log.Info("store: in-memory, fragments are lost on exit")
		return store.NewMemoryStore(), nil
	}

	path := strings.TrimSpace(a.settings.StoreDB)
	if strings.EqualFold(path, config.StoreDefault) {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("store: could not resolve default DB path: %w", err)
		}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	a.sqlite = s
	a.closers = append(a.closers, s.Close)
	a.log.Info("store: opened", slog.String("path", path))
	return s, nil
}

// buildIndexer returns the indexer for INDEX_STRATEGY.
func (a *app) buildIndexer() (rag.Indexer, error) {
	strategy := a.settings.Strategy
	if strategy == config.StrategyTFIDF {
		return rag.NewTFIDFIndexer(), nil
	}

	if err := embedder.ValidateForStrategy(strategy, a.log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	a.log.Info("embedder initialised", slog.String("backend", embedder.ResolveBackend()))

	if strategy == config.StrategyDense {
		return rag.NewDenseIndexer(emb, 0)
	}

	q := a.settings.Qdrant
	qi, err := rag.NewQdrantIndexer(emb, &rag.QdrantConfig{
		Host:       q.Host,
		Port:       q.Port,
		Collection: q.Collection,
		APIKey:     q.APIKey,
		UseTLS:     q.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", q.Host, q.Port, err)
	}
	a.qdrant = qi
	a.closers = append(a.closers, qi.Close)
	a.log.Info("qdrant indexer ready",
		slog.String("host", q.Host),
		slog.Int("port", q.Port),
		slog.String("collection", q.Collection),
	)
	return qi, nil
}

// Close releases the store, the Qdrant client and the event publisher in
// reverse order of construction.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("shutdown: close failed", slog.Any("error", err))
	}
}

// tracingHandlers returns the handler from setup, or nil when tracing is not
// configured. The flush runs on Close.
func (a *app) tracingHandlers(setup func() (callbacks.Handler, func(), bool)) []callbacks.Handler {
	handler, flush, ok := setup()
	if !ok {
		a.log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
		return nil
	}
	a.closers = append(a.closers, func() error {
		flush()
		return nil
	})
	a.log.Info("langfuse tracing enabled")
	return []callbacks.Handler{handler}
}

// newAnswerer constructs the chat model from MODEL_PROVIDER and wires it into
// an answer pipeline over the app's engine, traced through Langfuse when
// configured. The provider config is returned for readiness probes.
func (a *app) newAnswerer(ctx context.Context) (*answer.Pipeline, *provider.ChatGenerator, *provider.Config, error) {
	chatModel, providerCfg, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	gen, err := provider.NewChatGenerator(chatModel, a.log, a.tracingHandlers(tracing.Setup)...)
	if err != nil {
		return nil, nil, nil, err
	}
	a.log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)

	pipeline, err := answer.New(&answer.Config{
		Retriever:       a.engine,
		Assembler:       prompt.New(a.settings.MaxContextTokens),
		Generator:       gen,
		TopK:            a.settings.TopK,
		GenerateTimeout: a.settings.GenerateTimeout,
		Logger:          a.log,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return pipeline, gen, providerCfg, nil
}

// ingestSources ingests PDFs then URLs, logging one line per source. It
// returns an error only when every source failed.
func (a *app) ingestSources(ctx context.Context, pdfs, urls []string) error {
	var reports []ingestion.Report
	if len(pdfs) > 0 {
		r, _ := a.ingestor.IngestFiles(ctx, pdfs)
		reports = append(reports, r...)
	}
	if len(urls) > 0 {
		r, _ := a.ingestor.IngestURLs(ctx, urls)
		reports = append(reports, r...)
	}

	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
			a.log.Error("ingest: source failed", slog.String("source", rep.Source), slog.Any("error", rep.Err))
			continue
		}
		a.log.Info("ingest: source added", slog.String("source", rep.Source), slog.Int("fragments", rep.Added))
	}
	if len(reports) > 0 && failed == len(reports) {
		return fmt.Errorf("all %d sources failed to ingest", failed)
	}
	return nil
}
