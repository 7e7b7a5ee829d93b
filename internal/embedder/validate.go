package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding. If EMBEDDING_MODEL matches any
// of these, a warning is emitted so the operator knows they may have
// misconfigured the pipeline.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"gpt-oss",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// ValidateForStrategy checks that the embedder configuration is usable for
// the given index strategy. The tfidf strategy needs no embedder, so nothing
// is checked. For dense and qdrant it returns an error if the configuration
// is clearly broken and logs a warning if EMBEDDING_MODEL looks like a chat
// model.
//
// Call it before constructing the embedder so operators get a clear error at
// startup rather than a cryptic failure during the first rebuild.
func ValidateForStrategy(strategy string, log *slog.Logger) error {
	if strategy == "" || strategy == "tfidf" {
		return nil
	}

	backend := ResolveBackend()
	if os.Getenv("EMBEDDING_PROVIDER") == "" {
		log.Info("embedder: EMBEDDING_PROVIDER not set, resolved from MODEL_PROVIDER",
			slog.String("backend", backend),
			slog.String("strategy", strategy),
		)
	}

	switch backend {
	case "ollama":
	case "openai":
		if getEnv("EMBEDDING_API_KEY") == "" && getEnv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("embedder: INDEX_STRATEGY=%s but no OpenAI API key found, set OPENAI_API_KEY or EMBEDDING_API_KEY", strategy)
		}
	case "azure":
		if getEnv("EMBEDDING_API_KEY") == "" && getEnv("AZURE_OPENAI_API_KEY") == "" {
			return fmt.Errorf("embedder: INDEX_STRATEGY=%s but no Azure API key found, set AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY", strategy)
		}
		if getEnv("EMBEDDING_ENDPOINT") == "" && getEnv("AZURE_OPENAI_ENDPOINT") == "" {
			return fmt.Errorf("embedder: INDEX_STRATEGY=%s but no Azure endpoint found, set AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT", strategy)
		}
	default:
		return fmt.Errorf("embedder: EMBEDDING_PROVIDER %q is not supported, use ollama, openai or azure", backend)
	}

	if model := getEnv("EMBEDDING_MODEL"); model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
		)
	}
	return nil
}
