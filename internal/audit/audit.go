// Package audit provides a structured audit logger for CLI command invocations.
// It logs command name, resolved configuration sources, and sanitised
// environment state so operators can trace which provider, index strategy and
// store a run used without exposing secret values.
//
// Secrets are logged as presence/absence only: never their values.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// secretEnvKeys lists environment variable names whose values must never be
// logged. Only presence ("set") or absence ("unset") is recorded.
var secretEnvKeys = map[string]bool{
	"OPENAI_API_KEY":       true,
	"AZURE_OPENAI_API_KEY": true,
	"GOOGLE_API_KEY":       true,
	"GROQ_API_KEY":         true,
	"ARK_API_KEY":          true,
	"EMBEDDING_API_KEY":    true,
	"QDRANT_API_KEY":       true,
	"LANGFUSE_PUBLIC_KEY":  true,
	"LANGFUSE_SECRET_KEY":  true,
}

// auditKeys is the ordered list of env vars included in every audit log entry.
var auditKeys = []string{
	"MODEL_PROVIDER",
	"OLLAMA_HOST",
	"OLLAMA_MODEL",
	"OPENAI_API_KEY",
	"OPENAI_MODEL",
	"AZURE_OPENAI_API_KEY",
	"AZURE_OPENAI_ENDPOINT",
	"AZURE_OPENAI_DEPLOYMENT",
	"GROQ_API_KEY",
	"GROQ_MODEL",
	"ARK_API_KEY",
	"ARK_MODEL",
	"GOOGLE_API_KEY",
	"GEMINI_MODEL",
	"EMBEDDING_PROVIDER",
	"EMBEDDING_MODEL",
	"EMBEDDING_API_KEY",
	"INDEX_STRATEGY",
	"RETRIEVAL_TOP_K",
	"STORE_DB",
	"UPLOAD_DIR",
	"QDRANT_HOST",
	"QDRANT_PORT",
	"QDRANT_COLLECTION",
	"QDRANT_API_KEY",
	"KAFKA_BROKERS",
	"KAFKA_TOPIC",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LANGFUSE_PUBLIC_KEY",
	"LANGFUSE_SECRET_KEY",
}

// LogCommandStart emits a structured audit log entry when a CLI command begins.
// It records the command name, the YAML and .env files that were applied, and
// the sanitised environment.
func LogCommandStart(log *slog.Logger, command, configPath string, dotenvFiles []string) {
	attrs := make([]slog.Attr, 0, len(auditKeys)+3)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
		slog.Int("dotenv_files", len(dotenvFiles)),
	)
	for _, key := range auditKeys {
		attrs = append(attrs, slog.String(key, SanitiseKey(key, os.Getenv(key))))
	}

	log.LogAttrs(context.Background(), slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the actual
// value for non-secret keys. This is safe to use in log messages.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
