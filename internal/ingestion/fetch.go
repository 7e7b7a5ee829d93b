package ingestion

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// defaultMaxBytes caps the size of a fetched page body.
const defaultMaxBytes = 5 << 20

// FetcherConfig holds the settings for constructing a Fetcher.
type FetcherConfig struct {
	// HTTPTimeout is the timeout for each fetch request. Defaults to 30s.
	HTTPTimeout time.Duration
	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
	// MaxBytes caps the response body size. Defaults to 5 MiB.
	MaxBytes int64
}

// Fetcher downloads web pages and reduces them to visible text.
type Fetcher struct {
	cfg        FetcherConfig
	httpClient *http.Client
}

// NewFetcher constructs a Fetcher, applying defaults to zero fields.
func NewFetcher(cfg *FetcherConfig) *Fetcher {
	c := FetcherConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "ragqa/1.0 (document ingestion)"
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
	return &Fetcher{cfg: c, httpClient: &http.Client{Timeout: c.HTTPTimeout}}
}

// Fetch retrieves url and returns its visible text. HTML is stripped of
// markup, scripts and styles; text/plain is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("ingestion: creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ingestion: http get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ingestion: unexpected status %d for %s", resp.StatusCode, url)
	}

	body := io.LimitReader(resp.Body, f.cfg.MaxBytes)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/plain":
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("ingestion: reading body: %w", err)
		}
		return collapseSpace(string(raw)), nil
	case "", "text/html", "application/xhtml+xml":
		text, err := htmlText(body)
		if err != nil {
			return "", fmt.Errorf("ingestion: parsing html from %s: %w", url, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("ingestion: unsupported content type %q for %s", mediaType, url)
	}
}

// skipElements are elements whose text is never visible.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

// blockElements end a line of text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true,
	"article": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "pre": true, "blockquote": true, "table": true, "ul": true, "ol": true,
}

// htmlText parses r and returns its visible text with whitespace collapsed.
func htmlText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteByte('\n')
		}
	}
	walk(doc)
	return collapseSpace(sb.String()), nil
}

// collapseSpace trims each line, squeezes runs of spaces, and drops blank lines.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
