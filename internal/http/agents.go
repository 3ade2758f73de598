package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// AgentPublicHandler backs `GET /api/agents/{agentId}/public` (§6): the
// public slice of a Flow ("agent configuration" per the GLOSSARY) — name,
// greeting, and the channel types it's reachable from. Never exposes the
// system prompt, enabled tools, or routing rules, which are admin-only.
type AgentPublicHandler struct {
	Flows store.FlowStore
}

type agentPublicResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Greeting   string   `json:"greeting,omitempty"`
	ChannelIDs []string `json:"channelIds"`
}

func (h *AgentPublicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	agentID, err := uuid.Parse(r.PathValue("agentId"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	flow, err := h.Flows.Get(r.Context(), agentID)
	if err != nil {
		slog.Error("http.agent_public.lookup_failed", "agentId", agentID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if flow == nil || !flow.Active {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(agentPublicResponse{
		ID:         flow.ID.String(),
		Name:       flow.Name,
		Greeting:   flow.Greeting,
		ChannelIDs: channelTypesOf(flow),
	})
}

// channelTypesOf collects the distinct channel types named across a
// Flow's declarative routing rules (§4.2 step 3) — the closest public
// proxy to "which channels this agent answers on" without exposing the
// rules themselves.
func channelTypesOf(flow *store.Flow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, cond := range flow.Routing {
		for _, ct := range cond.ChannelTypes {
			if !seen[ct] {
				seen[ct] = true
				out = append(out, ct)
			}
		}
	}
	return out
}
