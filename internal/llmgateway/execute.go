package llmgateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
)

// Chat selects a provider per the configured strategy, executes req with
// retry + circuit breaking, and falls over to the next healthy provider on
// failure when fallback is enabled (§4.6).
func (g *Gateway) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	candidates := g.order()
	if len(candidates) == 0 {
		return nil, errkind.ErrNoProviderAvailable
	}

	var lastErr error
	for i, e := range candidates {
		resp, err := g.callOne(ctx, e, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		slog.Warn("llmgateway.provider_failed", "provider", e.provider.Name(), "error", err)
		if !g.fallbackEnabled || i == len(candidates)-1 {
			break
		}
	}
	return nil, errkind.New(errkind.KindUnavailable, "llmgateway.chat", lastErr)
}

// ChatStream is Chat's streaming counterpart; streaming is only attempted on
// the primary candidate — providers mid-stream cannot be safely rewound onto
// a fallback once the client has begun receiving chunks.
func (g *Gateway) ChatStream(ctx context.Context, req providers.ChatRequest, onChunk func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	candidates := g.order()
	if len(candidates) == 0 {
		return nil, errkind.ErrNoProviderAvailable
	}
	e := candidates[0]

	start := time.Now()
	resp, err := e.breaker.Execute(func() (*providers.ChatResponse, error) {
		return providers.RetryDo(ctx, g.retryConfig, func() (*providers.ChatResponse, error) {
			return e.provider.ChatStream(ctx, req, onChunk)
		})
	})
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "llmgateway.chat_stream", err)
	}
	e.recordLatency(time.Since(start))
	stampProvider(resp, e, req.Model)
	return resp, nil
}

func (g *Gateway) callOne(ctx context.Context, e *entry, req providers.ChatRequest) (*providers.ChatResponse, error) {
	start := time.Now()
	resp, err := e.breaker.Execute(func() (*providers.ChatResponse, error) {
		return providers.RetryDo(ctx, g.retryConfig, func() (*providers.ChatResponse, error) {
			return e.provider.Chat(ctx, req)
		})
	})
	if err != nil {
		return nil, err
	}
	e.recordLatency(time.Since(start))
	stampProvider(resp, e, req.Model)
	return resp, nil
}

// stampProvider records which provider/model served resp so callers can
// attribute cost and persistence fields without re-deriving selection.
func stampProvider(resp *providers.ChatResponse, e *entry, requestedModel string) {
	resp.Provider = e.provider.Name()
	resp.Model = requestedModel
	if resp.Model == "" {
		resp.Model = e.provider.DefaultModel()
	}
}

// IsHealthy reports whether at least one registered provider's breaker is
// not open.
func (g *Gateway) IsHealthy() bool {
	return len(g.healthyEntries()) > 0
}

// Cost computes input*price_in + output*price_out for the named provider
// (§4.6 Token accounting).
func (g *Gateway) Cost(providerName string, usage providers.Usage) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.entries {
		if e.provider.Name() == providerName {
			return float64(usage.PromptTokens)*e.cost.PricePerInputToken +
				float64(usage.CompletionTokens)*e.cost.PricePerOutputToken
		}
	}
	return 0
}
