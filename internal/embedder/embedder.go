// Package embedder produces dense vector embeddings for RAG indexing and
// query-time search, grounded on kadirpekel-hector's pkg/embedder.Embedder
// interface and v2/embedder/factory.go's provider-keyed construction.
package embedder

import "context"

// Embedder converts text to vector embeddings for a fixed model/dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Config selects and configures one embedder instance, mirroring
// hector's config.EmbedderConfig shape trimmed to the fields orchhub
// actually uses (a Knowledge Base's embedding_model reference, §3).
type Config struct {
	Provider  string // "openai" | "cohere"
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
}

// New builds an Embedder from cfg, dispatching on Provider per hector's
// factory.go pattern.
func New(cfg Config) (Embedder, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	switch cfg.Provider {
	case "openai":
		return newOpenAIEmbedder(cfg), nil
	case "cohere":
		return newCohereEmbedder(cfg), nil
	default:
		return nil, errUnsupportedProvider(cfg.Provider)
	}
}

type unsupportedProviderError struct{ provider string }

func (e unsupportedProviderError) Error() string {
	return "unsupported embedder provider: " + e.provider + " (supported: openai, cohere)"
}

func errUnsupportedProvider(provider string) error {
	return unsupportedProviderError{provider: provider}
}
