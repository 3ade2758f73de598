package store

import (
	"context"

	"github.com/google/uuid"
)

// ConversationStore manages Conversation rows and enforces the §3 uniqueness
// invariant: at most one conversation per (channel_type, channel_user_id,
// flow_id), and exactly one "most recent" when flow_id is null.
type ConversationStore interface {
	// GetOrCreate returns the most-recent matching conversation or creates
	// one. flowID may be nil (see §3 invariant).
	GetOrCreate(ctx context.Context, channelType, channelUserID string, flowID *uuid.UUID) (*Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	TouchActivity(ctx context.Context, id uuid.UUID) error
	SetFlow(ctx context.Context, id uuid.UUID, flowID uuid.UUID) error
	UpsertExternalContext(ctx context.Context, id uuid.UUID, namespace string, ec ExternalContext) error
	SetStatus(ctx context.Context, id uuid.UUID, status ConversationStatus) error
}

// MessageStore manages the append-only Message log.
type MessageStore interface {
	Append(ctx context.Context, msg *Message) error
	// History returns up to limit most-recent messages for conversationID,
	// ordered ascending by timestamp (§4.3 Hydration).
	History(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
	// FindByOriginalID implements the dedup lookup of §4.1.
	FindByOriginalID(ctx context.Context, conversationID uuid.UUID, originalMessageID string) (*Message, error)
}

// FlowStore is the read path the core needs against the admin-owned Flow
// entity; writes are out of scope (§1).
type FlowStore interface {
	Get(ctx context.Context, id uuid.UUID) (*Flow, error)
	// ActiveByPriority returns all active flows ordered by priority ascending,
	// for the Flow Router's declarative-rule step (§4.2 step 3).
	ActiveByPriority(ctx context.Context) ([]Flow, error)
	// BindingsForChannel returns flow/channel bindings for channelConfigID,
	// ordered exact-match-first then priority (§4.2).
	BindingsForChannel(ctx context.Context, channelConfigID uuid.UUID) ([]FlowChannelBinding, error)
}

// ChannelConfigStore resolves provider-native identifiers to ChannelConfig
// rows via the three-step fallback of §4.1.
type ChannelConfigStore interface {
	Get(ctx context.Context, id uuid.UUID) (*ChannelConfig, error)
	// FindByPrimaryKey looks up by provider-specific primary key (instance
	// id, account SID, phone-number id).
	FindByPrimaryKey(ctx context.Context, channelType, primaryKey string) (*ChannelConfig, error)
	// FindByNormalizedKey compares digits-only after stripping a literal
	// "instance" prefix.
	FindByNormalizedKey(ctx context.Context, channelType, normalizedKey string) (*ChannelConfig, error)
	// FindByPhoneNumber is the final fallback.
	FindByPhoneNumber(ctx context.Context, channelType, phoneNumber string) (*ChannelConfig, error)
}

// KnowledgeBaseStore is the read path for KBs and their bindings.
type KnowledgeBaseStore interface {
	Get(ctx context.Context, id uuid.UUID) (*KnowledgeBase, error)
	BindingsForFlow(ctx context.Context, flowID uuid.UUID) ([]KBBinding, error)
}

// EmbeddingStore provides the vector similarity search of §4.4 step 4 and
// document/embedding writes for the (external) ingestion path.
type EmbeddingStore interface {
	InsertDocument(ctx context.Context, doc *Document) error
	SetDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, errMsg string) error
	InsertChunks(ctx context.Context, chunks []EmbeddingChunk) error
	// Search returns the topK chunks in kbID by cosine similarity to query,
	// filtered to similarity >= threshold.
	Search(ctx context.Context, kbID uuid.UUID, query []float32, threshold float64, topK int) ([]ScoredChunk, error)
}

// ToolDefinitionStore is the read path for registered tools.
type ToolDefinitionStore interface {
	Get(ctx context.Context, name string) (*ToolDefinition, error)
	Active(ctx context.Context) ([]ToolDefinition, error)
}

// ToolExecutionStore persists Tool Execution rows.
type ToolExecutionStore interface {
	Insert(ctx context.Context, exec *ToolExecution) error
}

// Stores is the top-level container for all storage backends the core
// depends on, mirroring the teacher's Stores container.
type Stores struct {
	Conversations ConversationStore
	Messages      MessageStore
	Flows         FlowStore
	Channels      ChannelConfigStore
	KnowledgeBases KnowledgeBaseStore
	Embeddings    EmbeddingStore
	ToolDefs      ToolDefinitionStore
	ToolExecs     ToolExecutionStore
}

// Config bundles the connection parameters needed to build a Stores.
type Config struct {
	PostgresDSN string
	MaxConns    int32 // bounded pool (§5, default 20)
}
