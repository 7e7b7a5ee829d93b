package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/54b3r/ragqa/internal/events"
	"github.com/54b3r/ragqa/internal/rag"
	"github.com/54b3r/ragqa/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher keeps published events in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.DocumentIngested
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *events.DocumentIngested) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newEngine(t *testing.T) *rag.Engine {
	t.Helper()
	e, err := rag.NewEngine(&rag.EngineConfig{
		Store:   store.NewMemoryStore(),
		Indexer: rag.NewTFIDFIndexer(),
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func Test_htmlText_SkipsScriptsAndStyles(t *testing.T) {
	t.Parallel()
	page := `<html><head><title>T</title><style>body{color:red}</style></head>
<body><h1>Volcanoes</h1><script>var x = "hidden";</script>
<p>Lava   flows
downhill.</p><noscript>enable js</noscript><ul><li>Basalt</li><li>Andesite</li></ul></body></html>`
	got, err := htmlText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("htmlText: %v", err)
	}
	want := "Volcanoes\nLava flows downhill.\nBasalt\nAndesite"
	if got != want {
		t.Errorf("htmlText =\n%q\nwant\n%q", got, want)
	}
}

func Test_Fetcher_Fetch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<p>Hello <b>world</b></p>`))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("  line one  \n\n line two "))
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	ctx := context.Background()

	if got, err := f.Fetch(ctx, srv.URL+"/page"); err != nil || got != "Hello world" {
		t.Errorf("html: got %q err %v", got, err)
	}
	if got, err := f.Fetch(ctx, srv.URL+"/plain"); err != nil || got != "line one\nline two" {
		t.Errorf("plain: got %q err %v", got, err)
	}
	if _, err := f.Fetch(ctx, srv.URL+"/image"); err == nil {
		t.Error("image: expected unsupported content type error")
	}
	if _, err := f.Fetch(ctx, srv.URL+"/missing"); err == nil {
		t.Error("missing: expected status error")
	}
}

func Test_NormalizeURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"https://Example.com/docs#intro", "https://example.com/docs", false},
		{"  HTTP://go.dev  ", "http://go.dev", false},
		{"ftp://example.com/file", "", true},
		{"/relative/path", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeURL(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func Test_IngestFiles_ContinuesPastFailures(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	extract := func(path string) ([]string, error) {
		if strings.HasSuffix(path, "broken.pdf") {
			return nil, errors.New("xref table not found")
		}
		return []string{"The sky is blue.", "   ", "Grass is green."}, nil
	}
	in, err := NewIngestor(&Config{Engine: newEngine(t), Extract: extract, Publisher: pub, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}

	reports, err := in.IngestFiles(context.Background(), []string{"/tmp/up/doc1.pdf", "/tmp/up/broken.pdf"})
	if err == nil {
		t.Fatal("expected joined error for broken.pdf")
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	if reports[0].Source != "doc1.pdf" || reports[0].Added != 2 || reports[0].Err != nil {
		t.Errorf("report[0] = %+v", reports[0])
	}
	if reports[1].Err == nil {
		t.Errorf("report[1] = %+v, want error", reports[1])
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Source != "doc1.pdf" || ev.Kind != events.KindPDF || ev.FragmentsAdded != 2 || ev.FragmentsTotal != 2 {
		t.Errorf("event = %+v", ev)
	}
}

func Test_IngestURL(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/empty" {
			_, _ = w.Write([]byte(`<script>only()</script>`))
			return
		}
		_, _ = w.Write([]byte(`<p>Goroutines are lightweight threads.</p>`))
	}))
	defer srv.Close()

	pub := &recordingPublisher{err: errors.New("broker down")}
	e := newEngine(t)
	in, _ := NewIngestor(&Config{Engine: e, Publisher: pub, Logger: quietLogger()})
	ctx := context.Background()

	u, added, err := in.IngestURL(ctx, srv.URL+"/go#top")
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}
	if added != 1 || u != srv.URL+"/go" {
		t.Errorf("u=%q added=%d", u, added)
	}
	// publish failure is not an ingest failure
	if len(pub.events) != 1 {
		t.Errorf("events = %d, want 1", len(pub.events))
	}

	if _, added, err := in.IngestURL(ctx, srv.URL+"/empty"); err != nil || added != 0 {
		t.Errorf("empty page: added=%d err=%v", added, err)
	}
	if _, _, err := in.IngestURL(ctx, "mailto:someone"); !errors.Is(err, rag.ErrValidation) {
		t.Errorf("bad url err = %v, want ErrValidation", err)
	}

	res, err := e.Retrieve(ctx, "goroutines", 1)
	if err != nil || len(res) != 1 || res[0].Fragment.Source != srv.URL+"/go" {
		t.Errorf("retrieve = %+v err %v", res, err)
	}
}

func Test_NewIngestor_RequiresEngine(t *testing.T) {
	t.Parallel()
	if _, err := NewIngestor(&Config{}); err == nil {
		t.Error("expected error for nil engine")
	}
	in, _ := NewIngestor(&Config{Engine: newEngine(t)})
	if _, err := in.IngestFile(context.Background(), "a.pdf", ""); err == nil {
		t.Error("expected error without extractor")
	}
}
