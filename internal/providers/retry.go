package providers

import (
	"context"
	"log/slog"
	"time"
)

// Option keys recognized in ChatRequest.Options, shared across providers.
const (
	OptMaxTokens      = "max_tokens"
	OptTemperature    = "temperature"
	OptThinkingLevel  = "thinking_level"
	OptEnableThinking = "enable_thinking"
	OptThinkingBudget = "thinking_budget"
)

// ThinkingCapable is implemented by providers that support an extended
// "thinking" mode (Anthropic extended thinking, DashScope reasoning).
type ThinkingCapable interface {
	SupportsThinking() bool
}

// RetryConfig controls RetryDo's exponential backoff (§4.6 Retry).
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	Multiplier  float64
}

// DefaultRetryConfig matches §4.6: retryDelay 1s, retryAttempts 3.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Second, Multiplier: 2}
}

// retryHookKey is the context key for the per-run retry observer.
type retryHookKey struct{}

// RetryHook is invoked on every retry attempt so callers (e.g. a channel
// updating a "thinking..." placeholder) can observe progress.
type RetryHook func(attempt, maxAttempts int, err error)

// WithRetryHook attaches a RetryHook to ctx for RetryDo to invoke.
func WithRetryHook(ctx context.Context, hook RetryHook) context.Context {
	return context.WithValue(ctx, retryHookKey{}, hook)
}

func retryHookFrom(ctx context.Context) RetryHook {
	if h, ok := ctx.Value(retryHookKey{}).(RetryHook); ok {
		return h
	}
	return nil
}

// RetryDo runs fn up to cfg.MaxAttempts times with exponential backoff,
// doubling the wait each attempt starting at cfg.InitialWait.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	wait := cfg.InitialWait
	if wait <= 0 {
		wait = time.Second
	}
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 2
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if hook := retryHookFrom(ctx); hook != nil {
			hook(attempt, maxAttempts, err)
		}
		if attempt == maxAttempts {
			break
		}
		slog.Debug("providers.retry", "attempt", attempt, "max_attempts", maxAttempts, "error", err, "wait", wait)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
		wait = time.Duration(float64(wait) * mult)
	}
	return zero, lastErr
}
