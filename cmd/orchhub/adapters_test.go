package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/flowrouter"
	"github.com/nextlevelbuilder/orchhub/internal/store"
	"github.com/nextlevelbuilder/orchhub/internal/wschannel"
)

type fakeConversationStore struct {
	conv *store.Conversation
	err  error
}

func (f *fakeConversationStore) GetOrCreate(ctx context.Context, channelType, channelUserID string, flowID *uuid.UUID) (*store.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conv, nil
}
func (f *fakeConversationStore) Get(ctx context.Context, id uuid.UUID) (*store.Conversation, error) {
	return f.conv, nil
}
func (f *fakeConversationStore) TouchActivity(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeConversationStore) SetFlow(ctx context.Context, id uuid.UUID, flowID uuid.UUID) error {
	return nil
}
func (f *fakeConversationStore) UpsertExternalContext(ctx context.Context, id uuid.UUID, namespace string, ec store.ExternalContext) error {
	return nil
}
func (f *fakeConversationStore) SetStatus(ctx context.Context, id uuid.UUID, status store.ConversationStatus) error {
	return nil
}

type fakeMessageStore struct {
	history []store.Message
}

func (f *fakeMessageStore) Append(ctx context.Context, msg *store.Message) error { return nil }
func (f *fakeMessageStore) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]store.Message, error) {
	return f.history, nil
}
func (f *fakeMessageStore) FindByOriginalID(ctx context.Context, conversationID uuid.UUID, originalMessageID string) (*store.Message, error) {
	return nil, nil
}

type fakeFlowStore struct {
	flows map[uuid.UUID]*store.Flow
}

func (f *fakeFlowStore) Get(ctx context.Context, id uuid.UUID) (*store.Flow, error) {
	return f.flows[id], nil
}
func (f *fakeFlowStore) ActiveByPriority(ctx context.Context) ([]store.Flow, error) { return nil, nil }
func (f *fakeFlowStore) BindingsForChannel(ctx context.Context, channelConfigID uuid.UUID) ([]store.FlowChannelBinding, error) {
	return nil, nil
}

func TestWebchatProcessor_ConversationLookupErrorShortCircuits(t *testing.T) {
	p := &webchatProcessor{
		conversations: &fakeConversationStore{err: errors.New("db down")},
		router:        flowrouter.New(&fakeFlowStore{flows: map[uuid.UUID]*store.Flow{}}),
	}

	_, err := p.ProcessTurn(context.Background(), wschannel.Inbound{UserID: "u1", WebsiteID: uuid.NewString(), Content: "hi"})
	if err == nil {
		t.Fatal("expected error from conversation lookup to propagate")
	}
}

func TestEmailProcessor_ConversationLookupErrorShortCircuits(t *testing.T) {
	p := &emailProcessor{
		conversations: &fakeConversationStore{err: errors.New("db down")},
		router:        flowrouter.New(&fakeFlowStore{flows: map[uuid.UUID]*store.Flow{}}),
	}

	err := p.ProcessTurn(context.Background(), "email", "user@example.com", "hello")
	if err == nil {
		t.Fatal("expected error from conversation lookup to propagate")
	}
}

func TestGreetingResolver_NoGreetingConfigured(t *testing.T) {
	flowID := uuid.New()
	r := &greetingResolver{flows: &fakeFlowStore{flows: map[uuid.UUID]*store.Flow{
		flowID: {ID: flowID, Greeting: ""},
	}}}

	greeting, ok, err := r.Resolve(context.Background(), flowID.String(), "website-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || greeting != "" {
		t.Fatalf("expected no greeting, got %q, ok=%v", greeting, ok)
	}
}

func TestGreetingResolver_ReturnsConfiguredGreeting(t *testing.T) {
	flowID := uuid.New()
	r := &greetingResolver{flows: &fakeFlowStore{flows: map[uuid.UUID]*store.Flow{
		flowID: {ID: flowID, Greeting: "Welcome!"},
	}}}

	greeting, ok, err := r.Resolve(context.Background(), flowID.String(), "website-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || greeting != "Welcome!" {
		t.Fatalf("expected configured greeting, got %q, ok=%v", greeting, ok)
	}
}

func TestGreetingResolver_InvalidFlowIDIsNotAnError(t *testing.T) {
	r := &greetingResolver{flows: &fakeFlowStore{flows: map[uuid.UUID]*store.Flow{}}}

	greeting, ok, err := r.Resolve(context.Background(), "not-a-uuid", "website-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || greeting != "" {
		t.Fatalf("expected no greeting for unparseable flow id, got %q, ok=%v", greeting, ok)
	}
}

func TestHistoryChecker_NoPriorMessages(t *testing.T) {
	h := &historyChecker{
		conversations: &fakeConversationStore{conv: &store.Conversation{ID: uuid.New()}},
		messages:      &fakeMessageStore{},
	}

	has, err := h.HasPriorMessages(context.Background(), "website-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has {
		t.Fatal("expected no prior messages")
	}
}

func TestHistoryChecker_HasPriorMessages(t *testing.T) {
	h := &historyChecker{
		conversations: &fakeConversationStore{conv: &store.Conversation{ID: uuid.New()}},
		messages:      &fakeMessageStore{history: []store.Message{{Role: store.RoleUser, Content: "hi"}}},
	}

	has, err := h.HasPriorMessages(context.Background(), "website-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Fatal("expected prior messages to be reported")
	}
}
