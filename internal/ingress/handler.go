package ingress

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/channels"
	"github.com/nextlevelbuilder/orchhub/internal/flowrouter"
	"github.com/nextlevelbuilder/orchhub/internal/orchestrator"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// turnTimeout bounds the detached async turn (§5 Timeouts); the sync ack
// path itself targets ≤5s and is not governed by this value.
const turnTimeout = 120 * time.Second

// Processor runs one conversational turn. Narrow interface so ingress does
// not hold a back-reference to the full orchestrator wiring (§9 Design
// notes: break cyclic references with narrow interfaces).
type Processor interface {
	ProcessTurn(ctx context.Context, req orchestrator.TurnRequest) (*orchestrator.ProcessingResult, error)
}

// Deliverer dispatches the assistant's final content back out a channel,
// normally by enqueueing onto the Send Queue (§4.9).
type Deliverer interface {
	Deliver(ctx context.Context, channelType, channelUserID, content string) error
}

// Handler implements the §4.1 webhook state machine for the WhatsApp
// provider family (360dialog/Ultramsg/Twilio share one endpoint contract
// per §6).
type Handler struct {
	Channels      store.ChannelConfigStore
	Conversations store.ConversationStore
	Messages      store.MessageStore
	Router        *flowrouter.Router
	Orchestrator  Processor
	Deliver       Deliverer

	// VerifyTokens maps channelType to the configured hub.verify_token
	// secret, for the GET subscription-verification handshake.
	VerifyTokens map[string]string

	// RateLimiter bounds webhook delivery volume per sender, independent
	// of the per-tool rate limiting toolruntime applies (§4.7). Nil
	// disables the check.
	RateLimiter *channels.WebhookRateLimiter
}

// ackResponse is the synchronous reply shape of §6 ("returns {success:
// true} plus duplicate or processing markers").
type ackResponse struct {
	Success    bool `json:"success"`
	Duplicate  bool `json:"duplicate,omitempty"`
	Processing bool `json:"processing,omitempty"`
}

// ServeHTTP implements RECV → CLASSIFY → ... of §4.1. GET requests are the
// provider-verification handshake; POST requests carry webhook deliveries.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.handleVerify(w, r)
		return
	}
	h.handleWebhook(w, r)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	channelType := r.PathValue("channel")
	expected := h.VerifyTokens[channelType]

	if mode != "subscribe" || expected == "" || token != expected {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		// ack not yet sent: safe to 500 (§4.1 Failure semantics).
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	provider, payload := DetectProvider(body)
	if provider == ProviderUnknown {
		slog.Debug("ingress.unknown_payload", "bytes", len(body))
		writeAck(w, ackResponse{Success: true})
		return
	}

	kind, msg := Classify(provider, payload)
	switch kind {
	case KindStatus:
		writeAck(w, ackResponse{Success: true})
		return
	case KindUnknown:
		slog.Debug("ingress.unclassified_message", "provider", provider)
		writeAck(w, ackResponse{Success: true})
		return
	}

	if h.RateLimiter != nil && !h.RateLimiter.Allow(msg.ChannelUserID) {
		slog.Warn("ingress.rate_limited", "provider", provider, "sender", msg.ChannelUserID)
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	ctx := r.Context()

	channelCfg, err := IdentifyChannel(ctx, h.Channels, provider, msg.PrimaryKey, msg.ChannelUserID)
	if err != nil {
		slog.Error("ingress.identify_channel_failed", "provider", provider, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	channelType := string(provider)
	conv, err := h.Conversations.GetOrCreate(ctx, channelType, msg.ChannelUserID, nil)
	if err != nil {
		slog.Error("ingress.conversation_failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if msg.OriginalMessageID != "" {
		existing, err := h.Messages.FindByOriginalID(ctx, conv.ID, msg.OriginalMessageID)
		if err != nil {
			slog.Error("ingress.dedup_check_failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if existing != nil {
			writeAck(w, ackResponse{Success: true, Duplicate: true})
			return
		}
	}

	// ACK before SPAWN (§4.1): the provider gets a synchronous reply before
	// the turn begins, and the async process must never touch w after this.
	writeAck(w, ackResponse{Success: true, Processing: true})

	var channelConfigID uuid.UUID
	if channelCfg != nil {
		channelConfigID = channelCfg.ID
	}

	go h.processAsync(channelType, channelConfigID, conv, *msg)
}

func (h *Handler) processAsync(channelType string, channelConfigID uuid.UUID, conv *store.Conversation, msg NormalizedMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	flow, err := h.Router.Resolve(ctx, flowrouter.Request{
		ChannelType:     channelType,
		ChannelUserID:   msg.ChannelUserID,
		ChannelConfigID: channelConfigID,
		Conversation:    conv,
		Now:             time.Now(),
	})
	if err != nil {
		slog.Error("ingress.flow_resolve_failed", "error", err)
	}

	result, err := h.Orchestrator.ProcessTurn(ctx, orchestrator.TurnRequest{
		Conversation:      conv,
		Flow:              flow,
		ChannelType:       channelType,
		UserMessage:       msg.Content,
		OriginalMessageID: msg.OriginalMessageID,
	})
	if err != nil {
		slog.Error("ingress.process_turn_failed", "conversation", conv.ID, "error", err)
		// User-visible failure is always a polite message, never a stack
		// trace (§7 Propagation policy).
		_ = h.Deliver.Deliver(ctx, channelType, msg.ChannelUserID, "Sorry, an error occurred processing your message, please try again.")
		return
	}

	if err := h.Deliver.Deliver(ctx, channelType, msg.ChannelUserID, result.Content); err != nil {
		slog.Error("ingress.deliver_failed", "conversation", conv.ID, "error", err)
	}
}

func writeAck(w http.ResponseWriter, resp ackResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
