package flowrouter

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

type fakeFlowStore struct {
	flows    map[uuid.UUID]*store.Flow
	active   []store.Flow
	bindings map[uuid.UUID][]store.FlowChannelBinding
}

func newFakeFlowStore() *fakeFlowStore {
	return &fakeFlowStore{flows: make(map[uuid.UUID]*store.Flow), bindings: make(map[uuid.UUID][]store.FlowChannelBinding)}
}

func (f *fakeFlowStore) Get(ctx context.Context, id uuid.UUID) (*store.Flow, error) {
	return f.flows[id], nil
}

func (f *fakeFlowStore) ActiveByPriority(ctx context.Context) ([]store.Flow, error) {
	return f.active, nil
}

func (f *fakeFlowStore) BindingsForChannel(ctx context.Context, channelConfigID uuid.UUID) ([]store.FlowChannelBinding, error) {
	return f.bindings[channelConfigID], nil
}

func TestResolve_ConversationPinnedWins(t *testing.T) {
	flows := newFakeFlowStore()
	pinned := &store.Flow{ID: uuid.New(), Active: true, Priority: 5}
	fallback := store.Flow{ID: uuid.New(), Active: true, Priority: 1, Routing: []store.RoutingCondition{{ChannelTypes: []string{"telegram"}}}}
	flows.flows[pinned.ID] = pinned
	flows.active = []store.Flow{fallback, *pinned}

	conv := &store.Conversation{FlowID: &pinned.ID}
	r := New(flows)

	got, err := r.Resolve(context.Background(), Request{ChannelType: "telegram", Conversation: conv, Now: time.Now()})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.ID != pinned.ID {
		t.Fatalf("expected pinned flow to win, got %+v", got)
	}
}

func TestResolve_ExternalContextHint(t *testing.T) {
	flows := newFakeFlowStore()
	hinted := &store.Flow{ID: uuid.New(), Active: true}
	flows.flows[hinted.ID] = hinted

	conv := &store.Conversation{
		Metadata: store.ConversationMetadata{
			ExternalContext: map[string]store.ExternalContext{
				"crm": {Routing: &store.ExternalContextRoute{FlowID: hinted.ID.String()}},
			},
		},
	}
	r := New(flows)

	got, err := r.Resolve(context.Background(), Request{ChannelType: "whatsapp", Conversation: conv, Now: time.Now()})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.ID != hinted.ID {
		t.Fatalf("expected external-context-hinted flow, got %+v", got)
	}
}

func TestResolve_DeclarativeRulesByPriority(t *testing.T) {
	flows := newFakeFlowStore()
	low := store.Flow{ID: uuid.New(), Active: true, Priority: 10, Routing: []store.RoutingCondition{{ChannelTypes: []string{"telegram"}}}}
	high := store.Flow{ID: uuid.New(), Active: true, Priority: 1, Routing: []store.RoutingCondition{{ChannelTypes: []string{"telegram"}}}}
	flows.active = []store.Flow{high, low} // priority-ordered by caller

	r := New(flows)
	got, err := r.Resolve(context.Background(), Request{ChannelType: "telegram", Now: time.Now()})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.ID != high.ID {
		t.Fatalf("expected highest-priority match, got %+v", got)
	}
}

func TestResolve_NoMatchReturnsNil(t *testing.T) {
	flows := newFakeFlowStore()
	flows.active = []store.Flow{{ID: uuid.New(), Active: true, Routing: []store.RoutingCondition{{ChannelTypes: []string{"email"}}}}}

	r := New(flows)
	got, err := r.Resolve(context.Background(), Request{ChannelType: "telegram", Now: time.Now()})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestWithinAnyWindow_WrapsPastMidnight(t *testing.T) {
	windows := []store.TimeWindow{{Timezone: "UTC", StartHHMM: "22:00", EndHHMM: "02:00"}}
	now := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	if !withinAnyWindow(windows, now) {
		t.Fatal("expected 23:30 to fall within a 22:00-02:00 window")
	}
	now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if withinAnyWindow(windows, now) {
		t.Fatal("expected noon to fall outside a 22:00-02:00 window")
	}
}
