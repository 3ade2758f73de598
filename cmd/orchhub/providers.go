package main

import (
	"github.com/nextlevelbuilder/orchhub/internal/config"
	"github.com/nextlevelbuilder/orchhub/internal/embedder"
	"github.com/nextlevelbuilder/orchhub/internal/llmgateway"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
)

// defaultEmbeddingModel is the model name registered for a configured
// provider when building the embedder Registry. KnowledgeBase rows name
// their embedding_model explicitly (§3); a deployment pointing a KB at a
// different model needs that model wired here too.
var defaultEmbeddingModel = map[string]string{
	"openai": "text-embedding-3-small",
	"cohere": "embed-english-v3.0",
}

// buildEmbedderRegistry registers one embedder per configured provider
// credential under its default model name (§4.4, §6).
func buildEmbedderRegistry(cfg config.ProvidersConfig) *embedder.Registry {
	reg := embedder.NewRegistry()

	if cfg.OpenAI.APIKey != "" {
		model := defaultEmbeddingModel["openai"]
		if e, err := embedder.New(embedder.Config{Provider: "openai", APIKey: cfg.OpenAI.APIKey, Model: model}); err == nil {
			reg.Register(model, e)
		}
	}
	if cfg.Cohere.APIKey != "" {
		model := defaultEmbeddingModel["cohere"]
		if e, err := embedder.New(embedder.Config{Provider: "cohere", APIKey: cfg.Cohere.APIKey, Model: model}); err == nil {
			reg.Register(model, e)
		}
	}

	return reg
}

// registerProviders constructs a providers.Provider for every configured
// LLM credential and registers it with the gateway. Priority follows
// declaration order (§4.6 StrategyPriority); cost is left zero since no
// per-token pricing is configured in §6 — StrategyLeastCost is unused
// unless an operator switches strategies and supplies pricing later.
//
// Cohere and HuggingFace appear in §6's provider credential list but
// internal/providers has no chat-completion client for either — only
// embedder.New supports them, for RAG indexing. Wiring a chat provider
// for them would mean inventing an untested client against an API no
// pack example exercises, so COHERE_API_KEY/HUGGINGFACE_API_KEY are
// consumed only by buildEmbedderRegistry; see DESIGN.md.
//
// DashScope (Alibaba's OpenAI-compatible Qwen endpoint) is not named in
// §6, but internal/providers already carries a complete client for it;
// DASHSCOPE_API_KEY extends the credential list the same way Ollama/LM
// Studio extend it — an additional OpenAI-compatible backend, not a new
// dependency.
func registerProviders(gateway *llmgateway.Gateway, cfg config.ProvidersConfig) {
	priority := 0
	register := func(p providers.Provider) {
		priority++
		gateway.Register(p, priority, llmgateway.ProviderCost{})
	}

	if cfg.Anthropic.APIKey != "" {
		opts := []providers.AnthropicOption{}
		if cfg.Anthropic.APIBase != "" {
			opts = append(opts, providers.WithAnthropicBaseURL(cfg.Anthropic.APIBase))
		}
		register(providers.NewAnthropicProvider(cfg.Anthropic.APIKey, opts...))
	}
	if cfg.OpenAI.APIKey != "" {
		register(providers.NewOpenAIProvider("openai", cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, "gpt-4o-mini"))
	}
	if cfg.Google.APIKey != "" {
		base := cfg.Google.APIBase
		if base == "" {
			base = "https://generativelanguage.googleapis.com/v1beta/openai"
		}
		register(providers.NewOpenAIProvider("google", cfg.Google.APIKey, base, "gemini-1.5-flash"))
	}
	if cfg.DashScope.APIKey != "" {
		register(providers.NewDashScopeProvider(cfg.DashScope.APIKey, cfg.DashScope.APIBase, ""))
	}
	if cfg.Ollama.BaseURL != "" {
		register(providers.NewOpenAIProvider("ollama", "ollama", cfg.Ollama.BaseURL, "llama3"))
	}
	if cfg.LMStudio.BaseURL != "" {
		register(providers.NewOpenAIProvider("lmstudio", "lm-studio", cfg.LMStudio.BaseURL, "local-model"))
	}
}
