// Package provider selects and constructs the generative model that answers
// questions. Backends are eino chat models: Ollama, OpenAI, Azure OpenAI,
// Groq (OpenAI-compatible), Volcengine Ark and Google Gemini.
package provider

import (
	"context"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendGroq selects Groq's OpenAI-compatible endpoint.
	BackendGroq Backend = "groq"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the block matching
// Backend is consulted.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Groq        ProviderGroq
	Ark         ProviderArk
	Gemini      ProviderGemini

	// Tuning applies to every backend that supports it.
	Tuning SharedTuning
}

// ProviderOllama configures a local Ollama server.
type ProviderOllama struct {
	Host  string // OLLAMA_HOST
	Model string // OLLAMA_MODEL
}

// ProviderOpenAI configures the OpenAI API.
type ProviderOpenAI struct {
	APIKey string // OPENAI_API_KEY
	Model  string // OPENAI_MODEL
}

// ProviderAzureOpenAI configures an Azure OpenAI deployment.
type ProviderAzureOpenAI struct {
	APIKey     string // AZURE_OPENAI_API_KEY
	Endpoint   string // AZURE_OPENAI_ENDPOINT
	Deployment string // AZURE_OPENAI_DEPLOYMENT
	APIVersion string // AZURE_OPENAI_API_VERSION
}

// ProviderGroq configures Groq's OpenAI-compatible chat endpoint.
type ProviderGroq struct {
	APIKey  string // GROQ_API_KEY
	Model   string // GROQ_MODEL
	BaseURL string // GROQ_BASE_URL
}

// ProviderArk configures Volcengine Ark.
type ProviderArk struct {
	APIKey  string // ARK_API_KEY
	Model   string // ARK_MODEL (endpoint ID)
	BaseURL string // ARK_BASE_URL (optional)
}

// ProviderGemini configures Google Gemini.
type ProviderGemini struct {
	APIKey string // GOOGLE_API_KEY
	Model  string // GEMINI_MODEL
}

// SharedTuning holds generation parameters common to all backends.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Generator is the black-box generative collaborator: prompt in, answer out.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HealthChecker probes a backend without consuming tokens.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
