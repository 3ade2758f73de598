// Package flowrouter implements the Flow Router (§4.2): given a normalized
// inbound message, resolve the flow that governs this turn. Ported from the
// teacher's internal/agent resolver idiom (resolve candidates, rank by
// priority/specificity, first match wins) and generalized from
// agent-resolution to flow-resolution over spec.md §4.2's four-step order.
package flowrouter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// Request carries the inputs the four resolution steps need.
type Request struct {
	ChannelType      string
	ChannelUserID    string
	ChannelConfigID  uuid.UUID // zero value if unresolved (§4.1 step 2 no-match)
	Conversation     *store.Conversation
	BotUsername      string
	Now              time.Time
}

// Router resolves flows per §4.2's four-step order, first hit wins.
type Router struct {
	flows store.FlowStore
}

func New(flows store.FlowStore) *Router {
	return &Router{flows: flows}
}

// Resolve returns the governing flow for req, or nil if no step matched
// (§4.2 step 4 — orchestrator falls back to default-model behavior).
func (r *Router) Resolve(ctx context.Context, req Request) (*store.Flow, error) {
	if flow, ok, err := r.conversationPinned(ctx, req); err != nil {
		return nil, err
	} else if ok {
		return flow, nil
	}

	if flow, ok, err := r.externalContextHint(ctx, req); err != nil {
		return nil, err
	} else if ok {
		return flow, nil
	}

	return r.declarativeRules(ctx, req)
}

// conversationPinned implements §4.2 step 1: a prior conversation's non-null
// flow_id wins if that flow is active and reachable from this channel.
func (r *Router) conversationPinned(ctx context.Context, req Request) (*store.Flow, bool, error) {
	if req.Conversation == nil || req.Conversation.FlowID == nil {
		return nil, false, nil
	}
	flow, err := r.flows.Get(ctx, *req.Conversation.FlowID)
	if err != nil {
		return nil, false, err
	}
	if flow == nil || !flow.Active {
		return nil, false, nil
	}
	if !r.reachableFromChannel(ctx, flow.ID, req.ChannelConfigID) {
		return nil, false, nil
	}
	return flow, true, nil
}

// externalContextHint implements §4.2 step 2: conversation metadata's
// external_context.{namespace}.routing.flowId names an active flow.
func (r *Router) externalContextHint(ctx context.Context, req Request) (*store.Flow, bool, error) {
	if req.Conversation == nil {
		return nil, false, nil
	}
	for _, ec := range req.Conversation.Metadata.ExternalContext {
		if ec.Routing == nil || ec.Routing.FlowID == "" {
			continue
		}
		flowID, err := uuid.Parse(ec.Routing.FlowID)
		if err != nil {
			continue
		}
		flow, err := r.flows.Get(ctx, flowID)
		if err != nil {
			return nil, false, err
		}
		if flow != nil && flow.Active {
			return flow, true, nil
		}
	}
	return nil, false, nil
}

// declarativeRules implements §4.2 step 3: iterate active flows by priority;
// a flow matches when any one of its routing conditions matches (matchesAny).
func (r *Router) declarativeRules(ctx context.Context, req Request) (*store.Flow, error) {
	flows, err := r.flows.ActiveByPriority(ctx)
	if err != nil {
		return nil, err
	}
	for i := range flows {
		if matchesAny(flows[i].Routing, req) {
			return &flows[i], nil
		}
	}
	return nil, nil
}

// matchesAny reports whether at least one routing condition matches req;
// within a condition, every populated field must match (conjunctive).
func matchesAny(conditions []store.RoutingCondition, req Request) bool {
	if len(conditions) == 0 {
		return false
	}
	for _, c := range conditions {
		if matches(c, req) {
			return true
		}
	}
	return false
}

func matches(c store.RoutingCondition, req Request) bool {
	if len(c.ChannelTypes) > 0 && !contains(c.ChannelTypes, req.ChannelType) {
		return false
	}
	if len(c.PhoneRegexes) > 0 && !matchesAnyRegex(c.PhoneRegexes, req.ChannelUserID) {
		return false
	}
	if len(c.BotUsernames) > 0 && !contains(c.BotUsernames, req.BotUsername) {
		return false
	}
	if len(c.TimeWindows) > 0 && !withinAnyWindow(c.TimeWindows, req.Now) {
		return false
	}
	return true
}

// reachableFromChannel reports whether flow has a binding to
// channelConfigID (always true when channelConfigID is uuid.Nil). It is a
// membership check only: bindings are not ranked and binding priority does
// not influence which flow is chosen.
func (r *Router) reachableFromChannel(ctx context.Context, flowID, channelConfigID uuid.UUID) bool {
	if channelConfigID == uuid.Nil {
		return true // no channel resolved; don't block a pinned flow over it
	}
	bindings, err := r.flows.BindingsForChannel(ctx, channelConfigID)
	if err != nil {
		return false
	}
	for _, b := range bindings {
		if b.FlowID == flowID {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
