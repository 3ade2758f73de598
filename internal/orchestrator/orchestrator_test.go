package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/ctxmgr"
	"github.com/nextlevelbuilder/orchhub/internal/embedder"
	"github.com/nextlevelbuilder/orchhub/internal/llmgateway"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
	"github.com/nextlevelbuilder/orchhub/internal/rag"
	"github.com/nextlevelbuilder/orchhub/internal/store"
	"github.com/nextlevelbuilder/orchhub/internal/toolruntime"
)

type fakeConversationStore struct{ conv *store.Conversation }

func (f *fakeConversationStore) GetOrCreate(ctx context.Context, channelType, channelUserID string, flowID *uuid.UUID) (*store.Conversation, error) {
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

type fakeMessageStore struct{ appended []*store.Message }

func (f *fakeMessageStore) Append(ctx context.Context, msg *store.Message) error {
	f.appended = append(f.appended, msg)
	return nil
}
func (f *fakeMessageStore) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]store.Message, error) {
	return nil, nil
}
func (f *fakeMessageStore) FindByOriginalID(ctx context.Context, conversationID uuid.UUID, originalMessageID string) (*store.Message, error) {
	return nil, nil
}

type fakeKBStore struct{}

func (fakeKBStore) Get(ctx context.Context, id uuid.UUID) (*store.KnowledgeBase, error) {
	return nil, nil
}
func (fakeKBStore) BindingsForFlow(ctx context.Context, flowID uuid.UUID) ([]store.KBBinding, error) {
	return nil, nil
}

type fakeEmbeddingStore struct{}

func (fakeEmbeddingStore) InsertDocument(ctx context.Context, doc *store.Document) error { return nil }
func (fakeEmbeddingStore) SetDocumentStatus(ctx context.Context, id uuid.UUID, status store.DocumentStatus, errMsg string) error {
	return nil
}
func (fakeEmbeddingStore) InsertChunks(ctx context.Context, chunks []store.EmbeddingChunk) error {
	return nil
}
func (fakeEmbeddingStore) Search(ctx context.Context, kbID uuid.UUID, query []float32, threshold float64, topK int) ([]store.ScoredChunk, error) {
	return nil, nil
}

type fakeToolDefStore struct{}

func (fakeToolDefStore) Get(ctx context.Context, name string) (*store.ToolDefinition, error) {
	return nil, nil
}
func (fakeToolDefStore) Active(ctx context.Context) ([]store.ToolDefinition, error) { return nil, nil }

type fakeToolExecStore struct{}

func (fakeToolExecStore) Insert(ctx context.Context, exec *store.ToolExecution) error { return nil }

// stubProvider answers every Chat call with a fixed final-answer response —
// no tool calls, so the turn loop terminates on the first iteration.
type stubProvider struct {
	content string
	usage   providers.Usage
}

func (p stubProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	return &providers.ChatResponse{Content: p.content, FinishReason: "stop", Usage: &p.usage}, nil
}
func (p stubProvider) ChatStream(ctx context.Context, req providers.ChatRequest, onChunk func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	return p.Chat(ctx, req)
}
func (p stubProvider) DefaultModel() string { return "stub-model" }
func (p stubProvider) Name() string         { return "stub" }

func newTestOrchestrator(t *testing.T, provider providers.Provider) (*Orchestrator, *fakeMessageStore) {
	t.Helper()
	messages := &fakeMessageStore{}
	sessions := ctxmgr.NewManager(&fakeConversationStore{}, messages, 0)

	gw := llmgateway.New(llmgateway.Config{})
	gw.Register(provider, 0, llmgateway.ProviderCost{})

	ragEngine := rag.NewEngine(fakeKBStore{}, fakeEmbeddingStore{}, embedder.NewRegistry())
	runtime := toolruntime.NewRuntime(toolruntime.NewRegistry(), fakeToolExecStore{}, nil, nil, nil)

	return New(Config{
		Sessions: sessions,
		RAG:      ragEngine,
		Gateway:  gw,
		Tools:    runtime,
		ToolDefs: fakeToolDefStore{},
	}), messages
}

func TestProcessTurn_NoToolCallsReturnsContent(t *testing.T) {
	provider := stubProvider{content: "hi there", usage: providers.Usage{PromptTokens: 10, CompletionTokens: 5}}
	o, messages := newTestOrchestrator(t, provider)

	conv := &store.Conversation{ID: uuid.New(), ChannelType: "telegram", ChannelUserID: "u1"}
	flow := &store.Flow{ID: uuid.New(), Name: "default", Config: store.FlowConfig{SystemPrompt: "be helpful"}}

	result, err := o.ProcessTurn(context.Background(), TurnRequest{
		Conversation: conv,
		Flow:         flow,
		ChannelType:  "telegram",
		UserMessage:  "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "hi there" {
		t.Fatalf("expected stub content, got %q", result.Content)
	}
	if len(messages.appended) != 2 {
		t.Fatalf("expected user+assistant messages persisted, got %d", len(messages.appended))
	}
	if result.ProcessingTime <= 0 {
		t.Fatal("expected a positive processing time")
	}
	_ = time.Now
}

func TestProcessTurn_NoHealthyProviderFailsFast(t *testing.T) {
	gw := llmgateway.New(llmgateway.Config{})
	sessions := ctxmgr.NewManager(&fakeConversationStore{}, &fakeMessageStore{}, 0)
	ragEngine := rag.NewEngine(fakeKBStore{}, fakeEmbeddingStore{}, embedder.NewRegistry())
	runtime := toolruntime.NewRuntime(toolruntime.NewRegistry(), fakeToolExecStore{}, nil, nil, nil)
	o := New(Config{Sessions: sessions, RAG: ragEngine, Gateway: gw, Tools: runtime, ToolDefs: fakeToolDefStore{}})

	_, err := o.ProcessTurn(context.Background(), TurnRequest{
		Conversation: &store.Conversation{ID: uuid.New()},
		UserMessage:  "hello",
	})
	if err == nil {
		t.Fatal("expected an error when no providers are registered")
	}
}
