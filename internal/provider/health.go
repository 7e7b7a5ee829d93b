package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaHealthCheck probes an Ollama server via GET /api/tags, which lists
// local models without loading one.
type OllamaHealthCheck struct {
	// host is the Ollama base URL.
	host string
	// client performs the probe request.
	client *http.Client
}

// NewOllamaHealthCheck constructs a health check against host.
func NewOllamaHealthCheck(host string) *OllamaHealthCheck {
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaHealthCheck{
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// HealthCheck returns nil when the server answers 2xx.
func (h *OllamaHealthCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("provider: ollama health request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: ollama health returned HTTP %d", resp.StatusCode)
	}
	return nil
}
