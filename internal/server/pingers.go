package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/ragqa/internal/provider"
)

// LLMPinger probes the generation backend for GET /api/ready. A zero-cost
// HealthChecker is used when the backend has one; otherwise the probe falls
// back to a one-word generation, which consumes tokens.
type LLMPinger struct {
	// healthCheck is the token-free probe, nil for hosted backends without one.
	healthCheck provider.HealthChecker
	// generator is the fallback probe.
	generator provider.Generator
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
	// log records fallback probes.
	log *slog.Logger
}

// NewLLMPinger constructs an LLMPinger. hc may be nil.
func NewLLMPinger(hc provider.HealthChecker, gen provider.Generator, name string, log *slog.Logger) *LLMPinger {
	if log == nil {
		log = slog.Default()
	}
	return &LLMPinger{healthCheck: hc, generator: gen, name: name, log: log}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping probes the LLM backend for readiness.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck != nil {
		if err := p.healthCheck.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}
	if p.generator == nil {
		return fmt.Errorf("%s: no probe configured", p.name)
	}

	p.log.Debug("pinger: generate-based health check, tokens will be consumed",
		slog.String("backend", p.name),
	)
	if _, err := p.generator.Generate(ctx, "Reply with the single word: ok"); err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
