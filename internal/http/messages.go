package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/nextlevelbuilder/orchhub/internal/flowrouter"
	"github.com/nextlevelbuilder/orchhub/internal/orchestrator"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// Processor runs one conversational turn. Matches ingress.Processor's
// shape exactly, so *orchestrator.Orchestrator satisfies both with no
// adapter (§9 Design notes: narrow interfaces over concrete collaborators).
type Processor interface {
	ProcessTurn(ctx context.Context, req orchestrator.TurnRequest) (*orchestrator.ProcessingResult, error)
}

// MessagesSendHandler backs `POST /api/v1/messages/send` (§6): direct API
// ingress for callers that are not a webhook provider — a support tool, a
// CRM automation, a test harness. Unlike the webhook path it has no ack-
// before-async constraint (no provider is waiting on a fast HTTP 200), so
// it runs the turn synchronously and returns the reply inline.
type MessagesSendHandler struct {
	APIKey        string
	Verifier      BearerVerifier
	Conversations store.ConversationStore
	Router        *flowrouter.Router
	Orchestrator  Processor
}

type messagesSendRequest struct {
	ChannelType string         `json:"channelType"`
	UserID      string         `json:"userId"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type messagesSendResponse struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

func (h *MessagesSendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !authenticate(r, h.APIKey, h.Verifier) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req messagesSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelType == "" || req.UserID == "" || req.Content == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// req.Metadata accompanies the request but has no defined consumer in
	// the turn loop yet (TurnRequest carries no free-form metadata field);
	// accepted and validated, not threaded through. See DESIGN.md.

	ctx := r.Context()

	conv, err := h.Conversations.GetOrCreate(ctx, req.ChannelType, req.UserID, nil)
	if err != nil {
		slog.Error("http.messages_send.conversation_failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	flow, err := h.Router.Resolve(ctx, flowrouter.Request{
		ChannelType:   req.ChannelType,
		ChannelUserID: req.UserID,
		Conversation:  conv,
		Now:           time.Now(),
	})
	if err != nil {
		slog.Error("http.messages_send.flow_resolve_failed", "error", err)
		flow = nil
	}

	result, err := h.Orchestrator.ProcessTurn(ctx, orchestrator.TurnRequest{
		Conversation: conv,
		Flow:         flow,
		ChannelType:  req.ChannelType,
		UserMessage:  req.Content,
	})
	if err != nil {
		slog.Error("http.messages_send.process_turn_failed", "conversation", conv.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(messagesSendResponse{ConversationID: conv.ID.String(), Content: result.Content})
}
