package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/54b3r/ragqa/internal/answer"
	"github.com/54b3r/ragqa/internal/ingestion"
	"github.com/54b3r/ragqa/internal/logging"
	"github.com/54b3r/ragqa/internal/rag"
)

// defaultMaxUploadBytes caps one multipart upload request.
const defaultMaxUploadBytes = 64 << 20

// uploadField is the multipart field that carries PDFs.
const uploadField = "pdfs"

// messageUploaded is the plain-text reply for a fully successful upload.
const messageUploaded = "PDFs uploaded and processed successfully!"

// handleUpload handles POST /api/upload. Every file in the "pdfs" field is
// saved to the upload directory, split into pages and ingested. Files are
// processed independently: one bad PDF does not block the others.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		http.Error(w, `no files uploaded (expected multipart field "pdfs")`, http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		log.Error("upload: cannot create upload dir", slog.String("dir", s.cfg.UploadDir), slog.Any("error", err))
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := s.saveUpload(fh)
		if err != nil {
			log.Warn("upload: rejected file", slog.String("filename", fh.Filename), slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		paths = append(paths, path)
	}

	reports, ingestErr := s.ingester.IngestFiles(r.Context(), paths)
	resp := ingestResponse{Sources: make([]ingestResult, 0, len(reports))}
	failed := 0
	for _, rep := range reports {
		res := ingestResult{Source: rep.Source, Added: rep.Added}
		if rep.Err != nil {
			res.Error = rep.Err.Error()
			failed++
		}
		s.metrics.ingestedFragmentsTotal.WithLabelValues("pdf").Add(float64(rep.Added))
		resp.Sources = append(resp.Sources, res)
	}
	resp.Total, _ = s.corpus.Len(r.Context())

	log.Info("upload: processed",
		slog.Int("files", len(paths)),
		slog.Int("failed", failed),
		slog.Int("fragments_total", resp.Total),
	)

	status := http.StatusOK
	if ingestErr != nil {
		status = http.StatusUnprocessableEntity
	}
	if acceptsJSON(r) {
		writeJSON(w, status, resp, log)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if ingestErr == nil {
		_, _ = io.WriteString(w, messageUploaded)
		return
	}
	var names []string
	for _, res := range resp.Sources {
		if res.Error != "" {
			names = append(names, res.Source)
		}
	}
	_, _ = fmt.Fprintf(w, "Processed %d of %d PDFs. Failed: %s", len(paths)-failed, len(paths), strings.Join(names, ", "))
}

// saveUpload writes one multipart file into the upload directory under its
// base name and returns the path.
func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid file name %q", fh.Filename)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	defer src.Close()

	path := filepath.Join(s.cfg.UploadDir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path, nil
}

// handleIngestURL handles POST /api/ingest/url.
func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req ingestURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	u, added, err := s.ingester.IngestURL(r.Context(), req.URL)
	switch {
	case errors.Is(err, rag.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		log.Warn("ingest url failed", slog.String("url", u), slog.Any("error", err))
		http.Error(w, "failed to ingest url: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.metrics.ingestedFragmentsTotal.WithLabelValues("web_page").Add(float64(added))

	total, _ := s.corpus.Len(r.Context())
	writeJSON(w, http.StatusOK, ingestResponse{
		Sources: []ingestResult{{Source: u, Added: added}},
		Total:   total,
	}, log)
}

// handleAsk handles POST /api/ask. A form-encoded "question" field receives a
// plain-text answer; a JSON body receives a JSON answer with sources.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	jsonMode := isJSON(r.Header.Get("Content-Type"))
	var question string
	if jsonMode {
		var req askRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		question = req.Question
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}
		question = r.PostFormValue("question")
	}

	start := time.Now()
	res := s.answerer.Answer(r.Context(), question)
	outcome := string(res.Outcome)
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if res.Err != nil && res.Outcome == answer.OutcomeFailed {
		log.Error("ask failed", slog.Any("error", res.Err))
	}

	status := askStatus(res.Outcome)
	if jsonMode {
		resp := askResponse{Answer: res.Text, Outcome: outcome, Sources: make([]sourceRef, 0, len(res.Sources))}
		for _, sc := range res.Sources {
			resp.Sources = append(resp.Sources, sourceRef{ID: int(sc.ID), Source: sc.Fragment.Source, Score: sc.Score})
		}
		writeJSON(w, status, resp, log)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, res.Text)
}

// askStatus maps an answer outcome to an HTTP status.
func askStatus(o answer.Outcome) int {
	switch o {
	case answer.OutcomeInvalid:
		return http.StatusBadRequest
	case answer.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// isJSON reports whether a Content-Type header names JSON.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// acceptsJSON reports whether the client asked for a JSON response.
func acceptsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isJSON(strings.TrimSpace(part)) {
			return true
		}
	}
	return false
}

// compile-time check that the production types satisfy the handler interfaces.
var (
	_ answerer = (*answer.Pipeline)(nil)
	_ ingester = (*ingestion.Ingestor)(nil)
	_ corpus   = (*rag.Engine)(nil)
)
