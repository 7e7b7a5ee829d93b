package ingestion

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// DocumentLabel returns the provenance label for a file: its base name.
func DocumentLabel(path string) string {
	return filepath.Base(path)
}

// NormalizeURL validates raw as an absolute http(s) URL and strips the
// fragment, so "page#intro" and "page#usage" are recorded as one source.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("ingestion: url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("ingestion: invalid url %q: %w", raw, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("ingestion: url %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("ingestion: url %q has no host", raw)
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	return parsed.String(), nil
}
