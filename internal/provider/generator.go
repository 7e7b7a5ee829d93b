package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/ragqa/internal/budget"
)

// ChatGenerator adapts an eino chat model to the Generator interface by
// sending the prompt as a single user message.
type ChatGenerator struct {
	// model is the backend chat model.
	model model.BaseChatModel
	// handlers are eino callback handlers (e.g. Langfuse) attached to every call.
	handlers []callbacks.Handler
	// log records per-call diagnostics.
	log *slog.Logger
}

// NewChatGenerator wraps m. handlers may be empty.
func NewChatGenerator(m model.BaseChatModel, log *slog.Logger, handlers ...callbacks.Handler) (*ChatGenerator, error) {
	if m == nil {
		return nil, fmt.Errorf("provider: chat model must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChatGenerator{model: m, handlers: handlers, log: log}, nil
}

// Generate sends prompt to the model and returns the answer text unmodified.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msgs := []*schema.Message{schema.UserMessage(prompt)}
	if len(g.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      "answer",
			Component: components.ComponentOfChatModel,
		}, g.handlers...)
	}

	g.log.Debug("generator: sending prompt", slog.Int("estimated_tokens", budget.EstimateMessages(msgs)))

	resp, err := g.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("provider: generate: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("provider: model returned an empty response")
	}
	return resp.Content, nil
}
