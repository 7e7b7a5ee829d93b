package server

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/ragqa/internal/answer"
	"github.com/54b3r/ragqa/internal/ingestion"
	"github.com/54b3r/ragqa/internal/rag"
)

// ---------------------------------------------------------------------------
// Fakes for the handler collaborators
// ---------------------------------------------------------------------------

// fakeAnswerer returns a fixed Result and records the questions it saw.
type fakeAnswerer struct {
	mu        sync.Mutex
	result    answer.Result
	questions []string
}

func (f *fakeAnswerer) Answer(_ context.Context, q string) answer.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, q)
	return f.result
}

// fakeIngester records ingested paths. Files whose content equals "broken"
// fail like an unreadable PDF.
type fakeIngester struct {
	mu     sync.Mutex
	paths  []string
	urls   []string
	urlErr error
}

func (f *fakeIngester) IngestFiles(_ context.Context, paths []string) ([]ingestion.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reports []ingestion.Report
	var failed error
	for _, p := range paths {
		f.paths = append(f.paths, p)
		rep := ingestion.Report{Source: ingestion.DocumentLabel(p), Added: 2}
		if data, err := os.ReadFile(p); err == nil && string(data) == "broken" {
			rep.Added = 0
			rep.Err = io.ErrUnexpectedEOF
			failed = rep.Err
		}
		reports = append(reports, rep)
	}
	return reports, failed
}

func (f *fakeIngester) IngestURL(_ context.Context, raw string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, raw)
	if f.urlErr != nil {
		return raw, 0, f.urlErr
	}
	return raw, 1, nil
}

// fakeCorpus serves fragments from a slice.
type fakeCorpus struct {
	fragments []rag.Fragment
	err       error
}

func (f *fakeCorpus) Get(_ context.Context, id rag.FragmentID) (rag.Fragment, error) {
	if f.err != nil {
		return rag.Fragment{}, f.err
	}
	if int(id) < 0 || int(id) >= len(f.fragments) {
		return rag.Fragment{}, rag.ErrNotFound
	}
	return f.fragments[id], nil
}

func (f *fakeCorpus) Len(context.Context) (int, error) {
	return len(f.fragments), f.err
}

func (f *fakeCorpus) Strategy() string { return "tfidf" }

// quietLogger discards all output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a *Server with fakes and an isolated metrics registry.
// Handlers can be called directly; use newRoutedServer to go through the mux.
func newTestServer() *Server {
	return &Server{
		answerer: &fakeAnswerer{result: answer.Result{Text: "- point 1", Outcome: answer.OutcomeAnswered}},
		ingester: &fakeIngester{},
		corpus:   &fakeCorpus{},
		cfg:      &Config{Port: 8080, MaxUploadBytes: defaultMaxUploadBytes},
		log:      quietLogger(),
		metrics:  newServerMetrics(prometheus.NewRegistry()),
	}
}

// newRoutedServer builds a full Server through New, returning its handler
// and registry so tests exercise routing, middleware and metrics together.
func newRoutedServer(t *testing.T, deps *Deps, cfg *Config) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Logger = quietLogger()
	cfg.MetricsRegistry = reg
	cfg.MetricsGatherer = reg
	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}
	s, err := New(deps, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, reg
}

// counterValue returns the value of the named counter with the given label
// pairs, or -1 if absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}
