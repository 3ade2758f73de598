package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nextlevelbuilder/orchhub/internal/idempotency"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// Deliverer dispatches already-composed content out a channel. Matches
// ingress.Deliverer's shape exactly so *sendqueue.Sender satisfies both
// with no adapter.
type Deliverer interface {
	Deliver(ctx context.Context, channelType, channelUserID, content string) error
}

// integrationsEnvelope is the context-merge body shared by both
// Integrations API endpoints (§6: "envelope {namespace, caseId, refs?,
// seed?, routing?}"). channelType/userId identify the target conversation,
// the way every other ingress path does (§4.1); the envelope itself
// carries no addressing fields of its own in spec.md.
type integrationsEnvelope struct {
	ChannelType string                      `json:"channelType"`
	UserID      string                      `json:"userId"`
	Namespace   string                      `json:"namespace"`
	CaseID      string                      `json:"caseId,omitempty"`
	Refs        map[string]any              `json:"refs,omitempty"`
	Seed        map[string]any              `json:"seed,omitempty"`
	Routing     *store.ExternalContextRoute `json:"routing,omitempty"`
}

func (e integrationsEnvelope) valid() bool {
	return e.ChannelType != "" && e.UserID != "" && e.Namespace != ""
}

func (e integrationsEnvelope) externalContext() store.ExternalContext {
	return store.ExternalContext{CaseID: e.CaseID, Refs: e.Refs, Seed: e.Seed, Routing: e.Routing}
}

// ContextUpsertHandler backs `POST /api/v1/integrations/context/upsert`
// (§6). The merge itself is `store.ConversationStore.UpsertExternalContext`,
// already idempotent (§8: "applying the same envelope twice yields the
// same metadata.external_context") — this handler is purely the HTTP
// front door onto it.
type ContextUpsertHandler struct {
	APIKey        string
	Conversations store.ConversationStore
}

func (h *ContextUpsertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !authenticate(r, h.APIKey, nil) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var env integrationsEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil || !env.valid() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	conv, err := h.Conversations.GetOrCreate(ctx, env.ChannelType, env.UserID, nil)
	if err != nil {
		slog.Error("http.integrations_context_upsert.conversation_failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.Conversations.UpsertExternalContext(ctx, conv.ID, env.Namespace, env.externalContext()); err != nil {
		slog.Error("http.integrations_context_upsert.failed", "conversation", conv.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// OutboundSendHandler backs `POST /api/v1/integrations/outbound/send`
// (§6): a combined context-upsert + outbound send, deduplicated by the
// caller-supplied `Idempotency-Key` header (§8: "produces at most one
// persisted outbound job").
type OutboundSendHandler struct {
	APIKey        string
	Conversations store.ConversationStore
	Deliver       Deliverer
	Idempotency   *idempotency.Guard
}

type outboundSendRequest struct {
	integrationsEnvelope
	Content string `json:"content"`
}

func (h *OutboundSendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !authenticate(r, h.APIKey, nil) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req outboundSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() || req.Content == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	claimed, err := h.Idempotency.Claim(ctx, key)
	if err != nil {
		slog.Error("http.integrations_outbound_send.idempotency_check_failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !claimed {
		// A prior request with this key already upserted context and
		// enqueued delivery; ack without repeating either side effect.
		w.WriteHeader(http.StatusOK)
		return
	}

	conv, err := h.Conversations.GetOrCreate(ctx, req.ChannelType, req.UserID, nil)
	if err != nil {
		slog.Error("http.integrations_outbound_send.conversation_failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.Conversations.UpsertExternalContext(ctx, conv.ID, req.Namespace, req.externalContext()); err != nil {
		slog.Error("http.integrations_outbound_send.upsert_failed", "conversation", conv.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.Deliver.Deliver(ctx, req.ChannelType, req.UserID, req.Content); err != nil {
		slog.Error("http.integrations_outbound_send.deliver_failed", "conversation", conv.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
