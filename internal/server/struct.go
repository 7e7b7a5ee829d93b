package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/ragqa/internal/answer"
	"github.com/54b3r/ragqa/internal/ingestion"
	"github.com/54b3r/ragqa/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover the slowest model call plus upload extraction.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// UploadDir is where uploaded PDFs are saved (default: ./uploads).
	UploadDir string
	// MaxUploadBytes caps the size of one multipart upload request.
	// Defaults to 64 MiB.
	MaxUploadBytes int64
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Deps are the domain collaborators the handlers call.
type Deps struct {
	// Answerer answers questions. Required.
	Answerer answerer
	// Ingestor stores uploaded PDFs and fetched pages. Required.
	Ingestor ingester
	// Corpus exposes fragment lookup and counts. Required.
	Corpus corpus
}

// answerer is the interface handleAsk calls. *answer.Pipeline satisfies it;
// tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, question string) answer.Result
}

// ingester is the interface the upload handlers call. *ingestion.Ingestor
// satisfies it.
type ingester interface {
	IngestFiles(ctx context.Context, paths []string) ([]ingestion.Report, error)
	IngestURL(ctx context.Context, rawURL string) (string, int, error)
}

// corpus is the read-only view of the engine used by the stats and fragment
// handlers. *rag.Engine satisfies it.
type corpus interface {
	Get(ctx context.Context, id rag.FragmentID) (rag.Fragment, error)
	Len(ctx context.Context) (int, error)
	Strategy() string
}

// Server is the HTTP front end for the question-answering pipeline.
type Server struct {
	// answerer handles POST /api/ask.
	answerer answerer
	// ingester handles uploads and URL ingestion.
	ingester ingester
	// corpus backs the stats and fragment endpoints.
	corpus corpus
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	// Answer is the model output or a fallback message.
	Answer string `json:"answer"`
	// Outcome is one of answered, no_documents, invalid, failed.
	Outcome string `json:"outcome"`
	// Sources lists the fragments that were placed in the prompt.
	Sources []sourceRef `json:"sources"`
}

// sourceRef identifies one retrieved fragment in an ask response.
type sourceRef struct {
	ID     int     `json:"id"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// ingestURLRequest is the JSON body for POST /api/ingest/url.
type ingestURLRequest struct {
	// URL is the absolute http(s) address of the page to ingest.
	URL string `json:"url"`
}

// ingestResponse is the JSON response for POST /api/ingest/url and for
// POST /api/upload when the client accepts JSON.
type ingestResponse struct {
	// Sources holds one entry per uploaded file or URL.
	Sources []ingestResult `json:"sources"`
	// Total is the fragment count after ingestion.
	Total int `json:"total"`
}

// ingestResult reports the outcome for one source.
type ingestResult struct {
	Source string `json:"source"`
	Added  int    `json:"added"`
	Error  string `json:"error,omitempty"`
}

// fragmentResponse is the JSON response for GET /api/fragments/{id}.
type fragmentResponse struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// statsResponse is the JSON response for GET /api/stats.
type statsResponse struct {
	// Fragments is the number of stored fragments.
	Fragments int `json:"fragments"`
	// Strategy is the active index strategy.
	Strategy string `json:"strategy"`
}
