package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/ragqa/internal/answer"
	"github.com/54b3r/ragqa/internal/rag"
)

func Test_Metrics_EndpointServesRegistry(t *testing.T) {
	t.Parallel()
	s, _ := newRoutedServer(t, &Deps{
		Answerer: &fakeAnswerer{},
		Ingestor: &fakeIngester{},
		Corpus:   &fakeCorpus{},
	}, nil)

	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)

	// One request so the http counters have a sample.
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_HTTPCounterUsesPattern(t *testing.T) {
	t.Parallel()
	s, reg := newRoutedServer(t, &Deps{
		Answerer: &fakeAnswerer{},
		Ingestor: &fakeIngester{},
		Corpus:   &fakeCorpus{fragments: []rag.Fragment{{Text: "a", Source: "doc.pdf: page 1"}}},
	}, nil)

	for _, path := range []string{"/api/fragments/0", "/api/fragments/7"} {
		w := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	pattern := "GET /api/fragments/{id}"
	if got := counterValue(t, reg, "ragqa_http_requests_total", map[string]string{labelHandler: pattern, "code": "200"}); got != 1 {
		t.Errorf("200 count for %q = %v, want 1", pattern, got)
	}
	if got := counterValue(t, reg, "ragqa_http_requests_total", map[string]string{labelHandler: pattern, "code": "404"}); got != 1 {
		t.Errorf("404 count for %q = %v, want 1", pattern, got)
	}
}

func Test_Metrics_AskOutcomeCounter(t *testing.T) {
	t.Parallel()
	s, reg := newRoutedServer(t, &Deps{
		Answerer: &fakeAnswerer{result: answer.Result{Text: answer.MessageNoDocuments, Outcome: answer.OutcomeNoDocuments}},
		Ingestor: &fakeIngester{},
		Corpus:   &fakeCorpus{},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("question=anything"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "192.0.2.1:4000"
	s.httpServer.Handler.ServeHTTP(httptest.NewRecorder(), req)

	if got := counterValue(t, reg, "ragqa_ask_requests_total", map[string]string{"outcome": "no_documents"}); got != 1 {
		t.Errorf("ragqa_ask_requests_total{outcome=no_documents} = %v, want 1", got)
	}
}

func Test_Metrics_RateLimitedCounter(t *testing.T) {
	t.Parallel()
	s, reg := newRoutedServer(t, &Deps{
		Answerer: &fakeAnswerer{},
		Ingestor: &fakeIngester{},
		Corpus:   &fakeCorpus{},
	}, &Config{RateLimit: 0.001, RateBurst: 1})

	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"q"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "198.51.100.7:5000"
		s.httpServer.Handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := counterValue(t, reg, "ragqa_http_rate_limited_total", map[string]string{labelHandler: "POST /api/ask"}); got != 2 {
		t.Errorf("rate limited count = %v, want 2", got)
	}
}
