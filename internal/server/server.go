// Package server implements the HTTP front end for ragqa: PDF upload, URL
// ingestion, question answering, fragment inspection, and the health,
// readiness and metrics endpoints. A small upload/ask page is served at "/".
// The server is started by the `ragqa serve` CLI command.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/ragqa/internal/logging"
	"github.com/54b3r/ragqa/internal/rag"
	"github.com/54b3r/ragqa/internal/version"
)

//go:embed static
var staticFiles embed.FS

// New constructs a Server from the provided collaborators and config.
func New(deps *Deps, cfg *Config) (*Server, error) {
	if deps == nil || deps.Answerer == nil {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if deps.Ingestor == nil {
		return nil, fmt.Errorf("server: ingestor must not be nil")
	}
	if deps.Corpus == nil {
		return nil, fmt.Errorf("server: corpus must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		// Uploads of several PDFs need more than the usual header budget.
		cfg.ReadTimeout = 2 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		answerer: deps.Answerer,
		ingester: deps.Ingestor,
		corpus:   deps.Corpus,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log, s.metrics)
	s.stopRL = stopRL

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(rl),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the request multiplexer wrapped in the logging and metrics
// middleware. Endpoints that write to the corpus or call the model are rate
// limited per client IP.
func (s *Server) routes(rl *rateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/upload", rl.middleware(http.HandlerFunc(s.handleUpload)))
	mux.Handle("POST /api/ingest/url", rl.middleware(http.HandlerFunc(s.handleIngestURL)))
	mux.Handle("POST /api/ask", rl.middleware(http.HandlerFunc(s.handleAsk)))
	mux.HandleFunc("GET /api/fragments/{id}", s.handleFragment)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	static, err := fs.Sub(staticFiles, "static")
	if err == nil {
		mux.Handle("GET /", http.FileServer(http.FS(static)))
	}

	return requestLogger(s.log, s.instrument(mux))
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.log.Info("server stopped")
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version}, s.log)
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.corpus.Len(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("stats: count failed", slog.Any("error", err))
		http.Error(w, "failed to count fragments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Fragments: n, Strategy: s.corpus.Strategy()}, s.log)
}

// handleFragment handles GET /api/fragments/{id}.
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		http.Error(w, "fragment id must be a non-negative integer", http.StatusBadRequest)
		return
	}

	frag, err := s.corpus.Get(r.Context(), rag.FragmentID(id))
	switch {
	case errors.Is(err, rag.ErrNotFound):
		http.Error(w, "fragment not found", http.StatusNotFound)
		return
	case err != nil:
		logging.FromContext(r.Context()).Error("fragment lookup failed", slog.Int("id", id), slog.Any("error", err))
		http.Error(w, "failed to read fragment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, fragmentResponse{ID: id, Text: frag.Text, Source: frag.Source}, s.log)
}

// writeJSON encodes v with the given status. Encoding failures can only be
// logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && log != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
