// Package prompt assembles the single prompt string sent to the generator:
// an instruction template constraining the answer format, the retrieved
// fragments in rank order, and the verbatim question.
package prompt

import (
	"fmt"
	"strings"

	"github.com/54b3r/ragqa/internal/budget"
	"github.com/54b3r/ragqa/internal/rag"
)

// sectionSep separates fragments in the context section.
const sectionSep = "\n\n"

// NoContext replaces the context section when nothing relevant was retrieved.
const NoContext = "(no relevant context found in the loaded documents)"

// template is the fixed instruction wrapper. The first %s is the context
// section, the second the question.
const template = `Answer strictly in simple bullet points. Make answer short, clear and easy.
Do NOT write long paragraphs. Use only the PDF content below. If the content
does not answer the question, say so in one bullet point.

Context:
%s

Question:
%s

Your answer format:
- point 1
- point 2
- point 3`

// Assembler builds bounded prompts. The zero value applies no budget.
type Assembler struct {
	// MaxContextTokens caps the estimated token size of the context section.
	// Values <= 0 disable the cap.
	MaxContextTokens int
}

// New returns an Assembler with the given context budget in tokens.
func New(maxContextTokens int) *Assembler {
	return &Assembler{MaxContextTokens: maxContextTokens}
}

// Build returns the prompt for question over retrieved, which must be in rank
// order. Fragments are dropped from the lowest-ranked end until the context
// fits the budget. Build never fails; empty input yields a well-formed prompt
// with the NoContext marker.
func (a *Assembler) Build(question string, retrieved []rag.Scored) string {
	prompt, _ := a.BuildWithCount(question, retrieved)
	return prompt
}

// BuildWithCount is Build that also reports how many fragments were kept.
func (a *Assembler) BuildWithCount(question string, retrieved []rag.Scored) (string, int) {
	sections := make([]string, len(retrieved))
	for i, r := range retrieved {
		sections[i] = formatFragment(r.Fragment)
	}
	kept := budget.Fit(sections, sectionSep, a.MaxContextTokens)

	context := NoContext
	if kept > 0 {
		context = strings.Join(sections[:kept], sectionSep)
	}
	return fmt.Sprintf(template, context, strings.TrimSpace(question)), kept
}

// formatFragment renders one fragment with its provenance label.
func formatFragment(f rag.Fragment) string {
	return fmt.Sprintf("[%s]\n%s", f.Source, f.Text)
}
