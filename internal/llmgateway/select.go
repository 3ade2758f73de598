package llmgateway

import "github.com/sony/gobreaker"

// healthyEntries returns entries whose breaker is not open, in registration
// order.
func (g *Gateway) healthyEntries() []*entry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*entry, 0, len(g.entries))
	for _, e := range g.entries {
		if e.breaker.State() != gobreaker.StateOpen {
			out = append(out, e)
		}
	}
	return out
}

// order returns the full candidate list for one call, ranked by the
// configured strategy — the first element is tried first, the rest are the
// fallback iteration order (§4.6 Fallback).
func (g *Gateway) order() []*entry {
	healthy := g.healthyEntries()
	if len(healthy) == 0 {
		return nil
	}

	switch g.strategy {
	case StrategyLeastLatency:
		return sortByKey(healthy, func(e *entry) float64 { return float64(e.avgLatency()) })
	case StrategyLeastCost:
		return sortByKey(healthy, func(e *entry) float64 {
			return e.cost.PricePerInputToken + e.cost.PricePerOutputToken
		})
	case StrategyRoundRobin:
		g.mu.Lock()
		start := g.rrIndex % len(healthy)
		g.rrIndex++
		g.mu.Unlock()
		rotated := make([]*entry, len(healthy))
		for i := range healthy {
			rotated[i] = healthy[(start+i)%len(healthy)]
		}
		return rotated
	default: // StrategyPriority
		return sortByKey(healthy, func(e *entry) float64 { return float64(e.priority) })
	}
}

func sortByKey(entries []*entry, key func(*entry) float64) []*entry {
	out := make([]*entry, len(entries))
	copy(out, entries)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && key(out[j]) < key(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
