// Package pdftext extracts plain text from PDF files, one string per page.
package pdftext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract returns the text of every page of the PDF at path, in page order.
// Pages without extractable text (scans, blank pages) yield an empty string
// so page positions are preserved.
func Extract(path string) (pages []string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdftext: open %s: %w", path, err)
	}
	defer f.Close()

	// The parser panics on some malformed content streams.
	defer func() {
		if p := recover(); p != nil {
			pages = nil
			err = fmt.Errorf("pdftext: malformed pdf %s: %v", path, p)
		}
	}()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdftext: page %d of %s: %w", i, path, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}
