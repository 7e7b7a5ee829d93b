// Package commands defines all Cobra CLI commands for the ragqa binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/ragqa/internal/audit"
	"github.com/54b3r/ragqa/internal/config"
	"github.com/54b3r/ragqa/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragqa",
		Short: "ragqa answers questions about your documents",
		Long: `ragqa ingests PDFs and web pages, indexes them, and answers questions
using only the retrieved passages as context.

The index strategy is selected via INDEX_STRATEGY (tfidf, dense, qdrant) and
the model backend via MODEL_PROVIDER, or a YAML config file
(~/.ragqa/config.yaml). A .env file in the working directory is loaded first.
See 'ragqa --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// .env never overrides variables already set in the environment.
			dotenvFiles, err := config.LoadDotEnv(log)
			if err != nil {
				return err
			}

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			audit.LogCommandStart(log, cmd.Name(), path, dotenvFiles)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragqa/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewChatCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewVersionCmd(),
	)

	return root
}
