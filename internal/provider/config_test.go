package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3"},
			},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg: Config{
				Backend: BackendOpenAI,
				OpenAI:  ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o"},
			},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o"}},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "openai/missing model",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-test"}},
			wantErr: "OPENAI_MODEL",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					APIKey:     "key",
					Endpoint:   "https://my.openai.azure.com",
					Deployment: "gpt-4o",
					APIVersion: "2024-02-01",
				},
			},
		},
		{
			name: "azure/missing api key",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{Endpoint: "https://my.openai.azure.com", Deployment: "gpt-4o"},
			},
			wantErr: "AZURE_OPENAI_API_KEY",
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{APIKey: "key", Deployment: "gpt-4o"},
			},
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{APIKey: "key", Endpoint: "https://my.openai.azure.com"},
			},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},

		// ── Groq ──────────────────────────────────────────────────────────────
		{
			name: "groq/valid",
			cfg:  Config{Backend: BackendGroq, Groq: ProviderGroq{APIKey: "gsk-test", Model: "openai/gpt-oss-120b"}},
		},
		{
			name:    "groq/missing api key",
			cfg:     Config{Backend: BackendGroq, Groq: ProviderGroq{Model: "openai/gpt-oss-120b"}},
			wantErr: "GROQ_API_KEY",
		},

		// ── Ark ───────────────────────────────────────────────────────────────
		{
			name: "ark/valid",
			cfg:  Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "ark-key", Model: "ep-123"}},
		},
		{
			name:    "ark/missing model",
			cfg:     Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "ark-key"}},
			wantErr: "ARK_MODEL",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name: "gemini/valid",
			cfg: Config{
				Backend: BackendGemini,
				Gemini:  ProviderGemini{APIKey: "AIza-test", Model: "gemini-1.5-pro"},
			},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-1.5-pro"}},
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name:    "gemini/missing model",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "AIza-test"}},
			wantErr: "GEMINI_MODEL",
		},

		// ── Unknown backend ───────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "unknown"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deployment string
		want       bool
	}{
		{"o1", true},
		{"o1-preview", true},
		{"o3-mini", true},
		{"o4-mini", true},
		{"O3-Mini", true}, // case-insensitive
		{"codex-mini", true},
		{"gpt-5.2-codex", false}, // "codex" not at start
		{"gpt-4o", false},
		{"gpt-4.1", false},
		{"gpt-35-turbo", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.deployment, func(t *testing.T) {
			t.Parallel()
			if got := isAzureReasoningModel(tc.deployment); got != tc.want {
				t.Errorf("isAzureReasoningModel(%q) = %v, want %v", tc.deployment, got, tc.want)
			}
		})
	}
}

func TestConfigFromEnv_GroqDefaults(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("GROQ_MODEL", "")
	t.Setenv("GROQ_BASE_URL", "")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendGroq {
		t.Fatalf("Backend = %q, want groq", cfg.Backend)
	}
	if cfg.Groq.Model != "openai/gpt-oss-120b" {
		t.Errorf("Groq.Model = %q", cfg.Groq.Model)
	}
	if cfg.Groq.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("Groq.BaseURL = %q", cfg.Groq.BaseURL)
	}
	if cfg.ModelName() != "openai/gpt-oss-120b" {
		t.Errorf("ModelName = %q", cfg.ModelName())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestNewHealthCheck(t *testing.T) {
	t.Parallel()
	if hc := NewHealthCheck(&Config{Backend: BackendOpenAI}); hc != nil {
		t.Errorf("openai health check = %v, want nil", hc)
	}
	if hc := NewHealthCheck(&Config{Backend: BackendOllama}); hc == nil {
		t.Error("ollama health check is nil")
	}
}

func TestOllamaHealthCheck(t *testing.T) {
	t.Parallel()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer ok.Close()
	if err := NewOllamaHealthCheck(ok.URL + "/").HealthCheck(context.Background()); err != nil {
		t.Errorf("healthy server: %v", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	if err := NewOllamaHealthCheck(bad.URL).HealthCheck(context.Background()); err == nil {
		t.Error("expected error for 503")
	}
}

// stubChatModel is a model.BaseChatModel returning a canned response. Like
// the eino-ext models it reports the call to any callbacks in ctx.
type stubChatModel struct {
	content string
	err     error
	got     []*schema.Message
}

func (s *stubChatModel) Generate(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	callbacks.OnStart(ctx, msgs)
	s.got = msgs
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.content, nil), nil
}

func (s *stubChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestChatGenerator_Generate(t *testing.T) {
	t.Parallel()
	m := &stubChatModel{content: "- the sky is blue"}
	g, err := NewChatGenerator(m, nil)
	if err != nil {
		t.Fatalf("NewChatGenerator: %v", err)
	}
	got, err := g.Generate(context.Background(), "PROMPT")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "- the sky is blue" {
		t.Errorf("answer = %q", got)
	}
	if len(m.got) != 1 || m.got[0].Role != schema.User || m.got[0].Content != "PROMPT" {
		t.Errorf("messages = %+v", m.got)
	}
}

func TestChatGenerator_InvokesHandlers(t *testing.T) {
	t.Parallel()
	var runs []string
	handler := callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			runs = append(runs, info.Name)
			return ctx
		}).
		Build()

	g, err := NewChatGenerator(&stubChatModel{content: "answer"}, nil, handler)
	if err != nil {
		t.Fatalf("NewChatGenerator: %v", err)
	}
	if _, err := g.Generate(context.Background(), "PROMPT"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(runs) != 1 || runs[0] != "answer" {
		t.Errorf("handler runs = %v, want [answer]", runs)
	}
}

func TestChatGenerator_Errors(t *testing.T) {
	t.Parallel()
	if _, err := NewChatGenerator(nil, nil); err == nil {
		t.Error("expected error for nil model")
	}

	g, _ := NewChatGenerator(&stubChatModel{err: errors.New("quota exceeded")}, nil)
	if _, err := g.Generate(context.Background(), "p"); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v, want wrapped quota error", err)
	}

	g, _ = NewChatGenerator(&stubChatModel{content: "   "}, nil)
	if _, err := g.Generate(context.Background(), "p"); err == nil {
		t.Error("expected error for empty response")
	}
}
