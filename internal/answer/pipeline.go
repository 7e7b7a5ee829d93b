// Package answer orchestrates a question end to end: retrieval from the
// engine, prompt assembly, and the bounded generator call. Every failure is
// folded into a Result carrying a user-facing message so callers never have
// to branch on raw errors.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/ragqa/internal/prompt"
	"github.com/54b3r/ragqa/internal/provider"
	"github.com/54b3r/ragqa/internal/rag"
)

// Outcome classifies how a question was handled.
type Outcome string

const (
	// OutcomeAnswered means the generator produced an answer.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoDocuments means nothing has been ingested yet.
	OutcomeNoDocuments Outcome = "no_documents"
	// OutcomeInvalid means the question was empty.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeFailed means retrieval or generation failed.
	OutcomeFailed Outcome = "failed"
)

// User-facing messages for non-answered outcomes.
const (
	MessageInvalid     = "Please enter a question."
	MessageNoDocuments = "No documents loaded yet. Upload a PDF first."
	MessageFailed      = "Sorry, something went wrong while generating the answer. Please try again."
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultGenerateTimeout = 60 * time.Second
)

// Result is the outcome of one question. Text is always a non-empty string
// suitable for showing to the user.
type Result struct {
	// Text is the model's answer or a fixed fallback message.
	Text string
	// Outcome classifies the result.
	Outcome Outcome
	// Sources are the fragments placed in the prompt, in rank order.
	Sources []rag.Scored
	// Err is the underlying error for OutcomeInvalid and OutcomeFailed.
	Err error
}

// Retriever is the subset of rag.Engine the pipeline depends on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]rag.Scored, error)
}

// Config holds the dependencies required to construct a Pipeline.
type Config struct {
	// Retriever ranks fragments for a question. Required.
	Retriever Retriever
	// Assembler builds the prompt. Required.
	Assembler *prompt.Assembler
	// Generator produces the answer. Required.
	Generator provider.Generator
	// TopK is the number of fragments retrieved. Defaults to rag.DefaultTopK.
	TopK int
	// GenerateTimeout bounds the generator call. Defaults to DefaultGenerateTimeout.
	GenerateTimeout time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Pipeline answers questions against a shared engine. It is safe for
// concurrent use.
type Pipeline struct {
	retriever Retriever
	assembler *prompt.Assembler
	generator provider.Generator
	topK      int
	timeout   time.Duration
	log       *slog.Logger
}

// New constructs a Pipeline from cfg.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil || cfg.Retriever == nil {
		return nil, fmt.Errorf("answer: retriever must not be nil")
	}
	if cfg.Assembler == nil {
		return nil, fmt.Errorf("answer: assembler must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("answer: generator must not be nil")
	}
	p := &Pipeline{
		retriever: cfg.Retriever,
		assembler: cfg.Assembler,
		generator: cfg.Generator,
		topK:      cfg.TopK,
		timeout:   cfg.GenerateTimeout,
		log:       cfg.Logger,
	}
	if p.topK < 1 {
		p.topK = rag.DefaultTopK
	}
	if p.timeout <= 0 {
		p.timeout = DefaultGenerateTimeout
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p, nil
}

// Answer runs retrieval, prompt assembly and generation for question.
// It never returns a Go error; inspect Result.Outcome instead.
func (p *Pipeline) Answer(ctx context.Context, question string) Result {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{
			Text:    MessageInvalid,
			Outcome: OutcomeInvalid,
			Err:     fmt.Errorf("answer: question is empty: %w", rag.ErrValidation),
		}
	}

	retrieved, err := p.retriever.Retrieve(ctx, question, p.topK)
	switch {
	case errors.Is(err, rag.ErrEmptyIndex):
		p.log.Info("answer: no documents loaded")
		return Result{Text: MessageNoDocuments, Outcome: OutcomeNoDocuments}
	case err != nil:
		p.log.Error("answer: retrieval failed", slog.Any("error", err))
		return Result{Text: MessageFailed, Outcome: OutcomeFailed, Err: err}
	}

	// The engine lock is released by now; the prompt is a local copy.
	text, kept := p.assembler.BuildWithCount(question, retrieved)
	sources := retrieved[:kept]
	if kept < len(retrieved) {
		p.log.Debug("answer: context trimmed to budget",
			slog.Int("retrieved", len(retrieved)),
			slog.Int("kept", kept),
		)
	}

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	out, err := p.generator.Generate(genCtx, text)
	// Result.Text is never blank, so a whitespace-only reply counts as a
	// failed generation. Any other reply is returned byte for byte.
	if err == nil && strings.TrimSpace(out) == "" {
		err = fmt.Errorf("empty answer")
	}
	if err != nil {
		genErr := fmt.Errorf("answer: %w: %w", rag.ErrGeneration, err)
		p.log.Error("answer: generation failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.Bool("timeout", errors.Is(genCtx.Err(), context.DeadlineExceeded)),
			slog.Any("error", err),
		)
		return Result{Text: MessageFailed, Outcome: OutcomeFailed, Sources: sources, Err: genErr}
	}

	p.log.Info("answer: generated",
		slog.Int("sources", len(sources)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return Result{Text: out, Outcome: OutcomeAnswered, Sources: sources}
}
