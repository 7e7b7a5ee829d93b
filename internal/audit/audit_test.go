package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitiseKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key, value, want string
	}{
		{"GROQ_API_KEY", "gsk_abc123", "set"},
		{"GROQ_API_KEY", "", "unset"},
		{"QDRANT_API_KEY", "secret", "set"},
		{"INDEX_STRATEGY", "tfidf", "tfidf"},
		{"STORE_DB", "", "unset"},
	}
	for _, tt := range tests {
		if got := SanitiseKey(tt.key, tt.value); got != tt.want {
			t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".ragqa", "config.yaml")
		if got := sanitiseConfigPath(p); got != "~/.ragqa/config.yaml" {
			t.Errorf("expected '~/.ragqa/config.yaml', got %q", got)
		}
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_do_not_log")
	t.Setenv("INDEX_STRATEGY", "dense")

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	LogCommandStart(log, "serve", "", []string{".env"})

	if bytes.Contains(buf.Bytes(), []byte("gsk_do_not_log")) {
		t.Fatalf("secret value leaked into audit log: %s", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode audit entry: %v", err)
	}
	checks := map[string]any{
		"command":        "serve",
		"config_file":    "none",
		"dotenv_files":   float64(1),
		"GROQ_API_KEY":   "set",
		"INDEX_STRATEGY": "dense",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
}
