// Package llmgateway implements the LLM Gateway (§4.6): a uniform
// {complete, stream, isHealthy} interface over N provider backends with
// health-aware selection, circuit breaking, retry, and fallback. Builds on
// internal/providers' Provider/ChatRequest/ChatResponse shapes, which are
// kept essentially verbatim since they already match the canonical forms
// this component needs.
package llmgateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
)

// Strategy names a provider selection strategy (§4.6).
type Strategy string

const (
	StrategyRoundRobin  Strategy = "round_robin"
	StrategyLeastLatency Strategy = "least_latency"
	StrategyLeastCost   Strategy = "least_cost"
	StrategyPriority    Strategy = "priority"
)

// ProviderCost carries the per-token prices used by the least-cost strategy.
type ProviderCost struct {
	PricePerInputToken  float64
	PricePerOutputToken float64
}

// entry bundles one configured provider with its gateway-owned state.
type entry struct {
	provider providers.Provider
	priority int
	cost     ProviderCost
	breaker  *gobreaker.CircuitBreaker[*providers.ChatResponse]

	mu        sync.Mutex
	latencies []time.Duration // rolling window, most-recent last
}

const latencyWindow = 100

func (e *entry) recordLatency(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latencies = append(e.latencies, d)
	if len(e.latencies) > latencyWindow {
		e.latencies = e.latencies[len(e.latencies)-latencyWindow:]
	}
}

func (e *entry) avgLatency() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.latencies) == 0 {
		return time.Duration(1<<63 - 1) // Infinity per §4.6
	}
	var sum time.Duration
	for _, l := range e.latencies {
		sum += l
	}
	return sum / time.Duration(len(e.latencies))
}

// Gateway selects among configured providers and executes calls with circuit
// breaking, retry, and fallback (§4.6).
type Gateway struct {
	mu       sync.RWMutex
	entries  []*entry
	strategy Strategy
	rrIndex  int

	fallbackEnabled bool
	retryConfig     providers.RetryConfig

	resetTimeout        time.Duration
	consecutiveFailures uint32
}

// Config configures a Gateway.
type Config struct {
	Strategy        Strategy
	FallbackEnabled bool
	Retry           providers.RetryConfig
	// ResetTimeout is the circuit breaker's half-open probe delay (§4.6,
	// default 60s).
	ResetTimeout time.Duration
	// ConsecutiveFailures is K, the threshold to open the breaker (§4.6,
	// default 5).
	ConsecutiveFailures uint32
}

// New creates an empty Gateway; use Register to add providers.
func New(cfg Config) *Gateway {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyPriority
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = providers.DefaultRetryConfig()
	}
	return &Gateway{
		strategy:            cfg.Strategy,
		fallbackEnabled:     cfg.FallbackEnabled,
		retryConfig:         cfg.Retry,
		resetTimeout:        cfg.ResetTimeout,
		consecutiveFailures: cfg.ConsecutiveFailures,
	}
}

// Register adds a provider to the selection pool with its priority (lower
// index = higher priority for StrategyPriority) and per-token cost.
func (g *Gateway) Register(p providers.Provider, priority int, cost ProviderCost) {
	g.mu.Lock()
	defer g.mu.Unlock()

	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1, // one half-open probe, per §4.6
		Interval:    0,
		Timeout:     g.resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= g.consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("llmgateway.circuit_state", "provider", name, "from", from.String(), "to", to.String())
		},
	}
	e := &entry{
		provider: p,
		priority: priority,
		cost:     cost,
		breaker:  gobreaker.NewCircuitBreaker[*providers.ChatResponse](settings),
	}
	g.entries = append(g.entries, e)
}
