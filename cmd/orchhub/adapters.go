package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/flowrouter"
	"github.com/nextlevelbuilder/orchhub/internal/orchestrator"
	"github.com/nextlevelbuilder/orchhub/internal/sendqueue"
	"github.com/nextlevelbuilder/orchhub/internal/store"
	"github.com/nextlevelbuilder/orchhub/internal/wschannel"
)

// bearerVerifierAdapter adapts wschannel.TokenVerifier to
// orchhttp.BearerVerifier's single-bool-return shape: the messages/send
// endpoint only needs a pass/fail, not the parsed claims wschannel.Claims
// carries (userId/websiteId/flowId come from the request body instead).
type bearerVerifierAdapter struct {
	verifier wschannel.TokenVerifier
}

func (a *bearerVerifierAdapter) VerifyBearer(token string) bool {
	_, err := a.verifier.Verify(token)
	return err == nil
}

// webchatProcessor adapts the Orchestrator to wschannel.Processor's
// narrower (ctx, Inbound) -> (string, error) shape, resolving a
// conversation and flow the way ingress.Handler does for webhook-driven
// channels (§4.1, §4.2) before running the turn.
type webchatProcessor struct {
	orch          *orchestrator.Orchestrator
	router        *flowrouter.Router
	conversations store.ConversationStore
}

func (p *webchatProcessor) ProcessTurn(ctx context.Context, in wschannel.Inbound) (string, error) {
	var flowID *uuid.UUID
	if in.FlowID != "" {
		if id, err := uuid.Parse(in.FlowID); err == nil {
			flowID = &id
		}
	}

	conv, err := p.conversations.GetOrCreate(ctx, "webchat", in.UserID, flowID)
	if err != nil {
		return "", err
	}

	var channelConfigID uuid.UUID
	if id, err := uuid.Parse(in.WebsiteID); err == nil {
		channelConfigID = id
	}

	flow, err := p.router.Resolve(ctx, flowrouter.Request{
		ChannelType:     "webchat",
		ChannelUserID:   in.UserID,
		ChannelConfigID: channelConfigID,
		Conversation:    conv,
		Now:             time.Now(),
	})
	if err != nil {
		flow = nil
	}

	result, err := p.orch.ProcessTurn(ctx, orchestrator.TurnRequest{
		Conversation:      conv,
		Flow:              flow,
		ChannelType:       "webchat",
		UserMessage:       in.Content,
		OriginalMessageID: in.ClientMessageID,
	})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// greetingResolver looks up a Flow's configured greeting for
// wschannel.GreetingResolver (§4.10 "greeting-on-connect"): by flowID when
// it parses, otherwise via the highest-priority flow bound to websiteID,
// which must be active.
type greetingResolver struct {
	flows store.FlowStore
}

func (r *greetingResolver) Resolve(ctx context.Context, flowID, websiteID string) (string, bool, error) {
	id, err := uuid.Parse(flowID)
	byChannel := err != nil
	if byChannel {
		channelID, cerr := uuid.Parse(websiteID)
		if cerr != nil {
			return "", false, nil
		}
		bindings, berr := r.flows.BindingsForChannel(ctx, channelID)
		if berr != nil || len(bindings) == 0 {
			return "", false, berr
		}
		id = bindings[0].FlowID
	}
	flow, err := r.flows.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	if flow == nil || flow.Greeting == "" || (byChannel && !flow.Active) {
		return "", false, nil
	}
	return flow.Greeting, true, nil
}

// historyChecker reports whether a webchat conversation already has
// messages, so the session layer knows whether a greeting is owed
// (§4.10).
type historyChecker struct {
	conversations store.ConversationStore
	messages      store.MessageStore
}

func (h *historyChecker) HasPriorMessages(ctx context.Context, websiteID, userID string) (bool, error) {
	conv, err := h.conversations.GetOrCreate(ctx, "webchat", userID, nil)
	if err != nil {
		return false, err
	}
	history, err := h.messages.History(ctx, conv.ID, 1)
	if err != nil {
		return false, err
	}
	return len(history) > 0, nil
}

// emailProcessor adapts the Orchestrator to email.Processor: unlike the
// webhook-driven channels, email owns its own receive loop (IMAP polling)
// and hands the processor a bare (channelType, channelUserID, content)
// tuple per message, so this processor must resolve the conversation/flow
// and deliver the reply itself (§4.8, §4.9 — delivery still goes through
// the shared send queue, not a direct SMTP call).
type emailProcessor struct {
	orch          *orchestrator.Orchestrator
	conversations store.ConversationStore
	router        *flowrouter.Router
	deliver       *sendqueue.Sender
}

func (p *emailProcessor) ProcessTurn(ctx context.Context, channelType, channelUserID, content string) error {
	conv, err := p.conversations.GetOrCreate(ctx, channelType, channelUserID, nil)
	if err != nil {
		return err
	}

	flow, err := p.router.Resolve(ctx, flowrouter.Request{
		ChannelType:   channelType,
		ChannelUserID: channelUserID,
		Conversation:  conv,
		Now:           time.Now(),
	})
	if err != nil {
		flow = nil
	}

	result, err := p.orch.ProcessTurn(ctx, orchestrator.TurnRequest{
		Conversation: conv,
		Flow:         flow,
		ChannelType:  channelType,
		UserMessage:  content,
	})
	if err != nil {
		return p.deliver.Deliver(ctx, channelType, channelUserID, "Sorry, an error occurred processing your message, please try again.")
	}
	return p.deliver.Deliver(ctx, channelType, channelUserID, result.Content)
}
