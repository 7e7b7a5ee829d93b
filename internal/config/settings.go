package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Index strategies accepted by INDEX_STRATEGY.
const (
	StrategyTFIDF  = "tfidf"
	StrategyDense  = "dense"
	StrategyQdrant = "qdrant"
)

// STORE_DB values with special meaning. Any other non-empty value is a
// SQLite path.
const (
	// StoreMemory keeps fragments in memory only. Unset STORE_DB means the same.
	StoreMemory = "memory"
	// StoreDefault opens SQLite at ~/.ragqa/fragments.db.
	StoreDefault = "default"
)

// Defaults applied by ResolveSettings when the env var is unset.
const (
	DefaultTopK             = 3
	DefaultMaxContextTokens = 3000
	DefaultGenerateTimeout  = 60 * time.Second
	DefaultUploadDir        = "uploads"
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 8080
	DefaultRateLimitRPS     = 10
	DefaultRateLimitBurst   = 20
)

// Settings is the typed view of the env-driven runtime configuration shared by
// the CLI commands and the HTTP server.
type Settings struct {
	// Strategy is the index strategy (tfidf, dense, qdrant).
	Strategy string
	// TopK is the number of fragments retrieved per question.
	TopK int
	// MaxContextTokens caps the prompt context. Zero or less disables the cap.
	MaxContextTokens int
	// GenerateTimeout bounds a single model call.
	GenerateTimeout time.Duration
	// StoreDB is a SQLite path, StoreDefault, or "" / StoreMemory for memory.
	StoreDB string
	// UploadDir is where uploaded PDFs are saved.
	UploadDir string
	// Host is the HTTP bind address.
	Host string
	// Port is the HTTP port.
	Port int
	// RateLimitRPS is the per-IP sustained request rate.
	RateLimitRPS float64
	// RateLimitBurst is the per-IP burst size.
	RateLimitBurst int
	// Qdrant holds connection settings for the qdrant strategy.
	Qdrant QdrantSettings
}

// QdrantSettings holds the resolved Qdrant connection settings.
type QdrantSettings struct {
	Host       string
	Port       int
	Collection string
	APIKey     string
	TLS        bool
}

// ResolveSettings reads Settings from the environment, applying defaults to
// unset keys. Malformed values are reported with the offending env var name.
func ResolveSettings() (*Settings, error) {
	s := &Settings{
		Strategy:  strings.ToLower(envOrDefault("INDEX_STRATEGY", StrategyTFIDF)),
		StoreDB:   os.Getenv("STORE_DB"),
		UploadDir: envOrDefault("UPLOAD_DIR", DefaultUploadDir),
		Host:      envOrDefault("RAGQA_HOST", DefaultHost),
		Qdrant: QdrantSettings{
			Host:       envOrDefault("QDRANT_HOST", "localhost"),
			Collection: envOrDefault("QDRANT_COLLECTION", "ragqa-fragments"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			TLS:        os.Getenv("QDRANT_TLS") == "true",
		},
	}

	switch s.Strategy {
	case StrategyTFIDF, StrategyDense, StrategyQdrant:
	default:
		return nil, fmt.Errorf("config: INDEX_STRATEGY %q is not one of tfidf, dense, qdrant", s.Strategy)
	}

	var err error
	if s.TopK, err = envInt("RETRIEVAL_TOP_K", DefaultTopK); err != nil {
		return nil, err
	}
	if s.TopK < 1 {
		return nil, fmt.Errorf("config: RETRIEVAL_TOP_K must be at least 1, got %d", s.TopK)
	}
	if s.MaxContextTokens, err = envInt("MAX_CONTEXT_TOKENS", DefaultMaxContextTokens); err != nil {
		return nil, err
	}
	if s.GenerateTimeout, err = envDuration("GENERATE_TIMEOUT", DefaultGenerateTimeout); err != nil {
		return nil, err
	}
	if s.Port, err = envInt("RAGQA_PORT", DefaultPort); err != nil {
		return nil, err
	}
	if s.RateLimitRPS, err = envFloat("RAGQA_RATE_LIMIT_RPS", DefaultRateLimitRPS); err != nil {
		return nil, err
	}
	if s.RateLimitBurst, err = envInt("RAGQA_RATE_LIMIT_BURST", DefaultRateLimitBurst); err != nil {
		return nil, err
	}
	if s.Qdrant.Port, err = envInt("QDRANT_PORT", 6334); err != nil {
		return nil, err
	}
	return s, nil
}

// InMemoryStore reports whether fragments should not be persisted.
func (s *Settings) InMemoryStore() bool {
	db := strings.TrimSpace(s.StoreDB)
	return db == "" || strings.EqualFold(db, StoreMemory)
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a number", key, v)
	}
	return f, nil
}

// envDuration accepts Go durations ("90s", "2m") and bare seconds ("90").
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration", key, v)
	}
	return d, nil
}
