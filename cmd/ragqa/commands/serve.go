package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/ragqa/internal/logging"
	"github.com/54b3r/ragqa/internal/provider"
	"github.com/54b3r/ragqa/internal/server"
)

// NewServeCmd constructs the `ragqa serve` command, which starts the HTTP
// server and serves the web UI.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragqa HTTP server and web UI",
		Long: `Start the ragqa HTTP server.

The web UI uploads PDFs and asks questions about them. The same operations
are available as a JSON API under /api, alongside /api/health, /api/ready
and /metrics.

Examples:
  ragqa serve
  ragqa serve --port 9090
  INDEX_STRATEGY=dense MODEL_PROVIDER=openai ragqa serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			pipeline, gen, providerCfg, err := a.newAnswerer(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			if !cmd.Flags().Changed("host") {
				host = a.settings.Host
			}
			if !cmd.Flags().Changed("port") {
				port = a.settings.Port
			}

			srv, err := server.New(&server.Deps{
				Answerer: pipeline,
				Ingestor: a.ingestor,
				Corpus:   a.engine,
			}, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   a.pingers(providerCfg, gen),
				RateLimit: a.settings.RateLimitRPS,
				RateBurst: a.settings.RateLimitBurst,
				UploadDir: a.settings.UploadDir,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (overrides RAGQA_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (overrides RAGQA_PORT)")

	return cmd
}

// pingers returns the readiness probes in report order: the model backend,
// then the fragment store and Qdrant when they are in use.
func (a *app) pingers(cfg *provider.Config, gen provider.Generator) []server.Pinger {
	pingers := []server.Pinger{
		server.NewLLMPinger(provider.NewHealthCheck(cfg), gen, string(cfg.Backend), a.log),
	}
	if a.sqlite != nil {
		pingers = append(pingers, a.sqlite)
	}
	if a.qdrant != nil {
		pingers = append(pingers, server.NewQdrantPinger(a.qdrant.Client()))
	}
	return pingers
}
