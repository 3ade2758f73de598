// Package store defines the persistence-facing entities of the hub (§3)
// and the interfaces components depend on. internal/store/pg provides the
// Postgres-backed implementation; components never import internal/store/pg
// directly, only internal/store.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ConversationStatus is the lifecycle state of a Conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationClosed   ConversationStatus = "closed"
	ConversationArchived ConversationStatus = "archived"
)

// ExternalContext is the per-namespace envelope merged into a Conversation's
// metadata by the integrations API (§6) and surfaced to the Context Manager.
type ExternalContext struct {
	CaseID  string                 `json:"caseId,omitempty"`
	Refs    map[string]any         `json:"refs,omitempty"`
	Seed    map[string]any         `json:"seed,omitempty"`
	Routing *ExternalContextRoute  `json:"routing,omitempty"`
	Extra   map[string]any         `json:"-"`
}

// ExternalContextRoute is the routing hint consumed by the Flow Router's
// step 2 (external-context hint).
type ExternalContextRoute struct {
	FlowID string `json:"flowId,omitempty"`
}

// ConversationMetadata is the typed metadata bag on a Conversation.
type ConversationMetadata struct {
	ExternalContext map[string]ExternalContext `json:"external_context,omitempty"`
}

// Conversation is the linear sequence of messages exchanged between one
// channel user and one flow (§3, GLOSSARY).
type Conversation struct {
	ID             uuid.UUID             `json:"id"`
	ChannelType    string                `json:"channelType"`
	ChannelUserID  string                `json:"channelUserId"`
	FlowID         *uuid.UUID            `json:"flowId,omitempty"`
	Status         ConversationStatus    `json:"status"`
	Metadata       ConversationMetadata  `json:"metadata"`
	CreatedAt      time.Time             `json:"createdAt"`
	LastActivity   time.Time             `json:"lastActivity"`
}

// MessageRole is the role of a Message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MessageMetadata carries assistant-turn accounting and the flow reference
// active when the message was produced.
type MessageMetadata struct {
	FlowID *uuid.UUID `json:"flowId,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Message is one append-only row within a Conversation (§3).
type Message struct {
	ID               uuid.UUID       `json:"id"`
	ConversationID   uuid.UUID       `json:"conversationId"`
	Role             MessageRole     `json:"role"`
	Content          string          `json:"content"`
	Provider         string          `json:"provider,omitempty"`
	Model            string          `json:"model,omitempty"`
	InputTokens      int64           `json:"inputTokens,omitempty"`
	OutputTokens     int64           `json:"outputTokens,omitempty"`
	CostUSD          float64         `json:"costUsd,omitempty"`
	Metadata         MessageMetadata `json:"metadata"`
	OriginalMessageID string         `json:"originalMessageId,omitempty"` // provider-assigned dedup key
	CreatedAt        time.Time       `json:"createdAt"`
}

// RoutingCondition is one declarative rule a Flow matches against (§4.2 step 3).
type RoutingCondition struct {
	ChannelTypes  []string `json:"channelTypes,omitempty"`
	PhoneRegexes  []string `json:"phoneRegexes,omitempty"`
	BotUsernames  []string `json:"botUsernames,omitempty"`
	TimeWindows   []TimeWindow `json:"timeWindows,omitempty"`
}

// TimeWindow is a time-of-day window with an IANA timezone.
type TimeWindow struct {
	Timezone string `json:"timezone"`
	StartHHMM string `json:"startHHMM"`
	EndHHMM   string `json:"endHHMM"`
}

// FlowConfig holds the flow's prompt and visual-graph payload; the graph is
// opaque to the core and only the system prompt is consumed here.
type FlowConfig struct {
	SystemPrompt string         `json:"systemPrompt"`
	Graph        map[string]any `json:"graph,omitempty"`
}

// Flow is an agent configuration (§3, GLOSSARY). Owned by the admin surface
// (§6); the core only reads it.
type Flow struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	LLMConfigID uuid.UUID          `json:"llmConfigId"`
	EnabledTools []string          `json:"enabledTools"`
	Config      FlowConfig         `json:"config"`
	Routing     []RoutingCondition `json:"routing,omitempty"`
	Priority    int                `json:"priority"`
	Active      bool               `json:"active"`
	Greeting    string             `json:"greeting,omitempty"`
}

// ChannelConfig is a provider-specific credentials/addressing record (§3).
type ChannelConfig struct {
	ID          uuid.UUID      `json:"id"`
	ChannelType string         `json:"channelType"` // whatsapp_360dialog, whatsapp_ultramsg, whatsapp_twilio, telegram, email, webchat
	Addressing  map[string]string `json:"addressing"` // instanceId, accountSid, phoneNumberId, etc.
	Active      bool           `json:"active"`
}

// FlowChannelBinding is the many-to-many bridge between Flow and
// ChannelConfig, carrying per-link priority (§3).
type FlowChannelBinding struct {
	FlowID          uuid.UUID `json:"flowId"`
	ChannelConfigID uuid.UUID `json:"channelConfigId"`
	Priority        int       `json:"priority"`
}

// ChunkingStrategy is the KB's text-splitting strategy.
type ChunkingStrategy string

const (
	ChunkingRecursive ChunkingStrategy = "recursive"
	ChunkingFixed     ChunkingStrategy = "fixed"
	ChunkingSemantic  ChunkingStrategy = "semantic"
)

// ChunkingParams controls how a KB's documents are split.
type ChunkingParams struct {
	Size     int              `json:"size"`
	Overlap  int              `json:"overlap"`
	Strategy ChunkingStrategy `json:"strategy"`
}

// KnowledgeBase is a named collection of documents whose chunks are indexed
// as vectors (§3, GLOSSARY).
type KnowledgeBase struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	EmbeddingModel   string         `json:"embeddingModel"`
	EmbeddingDimension int          `json:"embeddingDimension"`
	Chunking         ChunkingParams `json:"chunking"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Active           bool           `json:"active"`
}

// KBBinding is the Flow→KnowledgeBase binding consumed by the RAG Engine's
// resolution step (§4.4 step 1), carrying per-binding thresholds.
type KBBinding struct {
	FlowID              uuid.UUID `json:"flowId"`
	KnowledgeBaseID     uuid.UUID `json:"knowledgeBaseId"`
	Priority            int       `json:"priority"`
	SimilarityThreshold float64   `json:"similarityThreshold"` // default 0.70
	MaxResults          int       `json:"maxResults"`          // default 5
}

// DocumentStatus is the ingest lifecycle of a Document.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is raw source text owned by a KB (§3).
type Document struct {
	ID       uuid.UUID      `json:"id"`
	KBID     uuid.UUID      `json:"kbId"`
	Source   string         `json:"source"`
	Content  string         `json:"content"`
	Status   DocumentStatus `json:"status"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EmbeddingChunk is one vector-indexed span of a Document (§3).
type EmbeddingChunk struct {
	ID          uuid.UUID        `json:"id"`
	DocumentID  uuid.UUID        `json:"documentId"`
	KBID        uuid.UUID        `json:"kbId"`
	ChunkIndex  int              `json:"chunkIndex"`
	Content     string           `json:"content"`
	Vector      pgvector.Vector  `json:"-"`
	TokenCount  int              `json:"tokenCount"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// ScoredChunk pairs an EmbeddingChunk with its similarity and the binding it
// was retrieved through, plus the document title for §4.4 step 6 formatting.
type ScoredChunk struct {
	Chunk         EmbeddingChunk
	DocumentTitle string
	KBName        string
	Similarity    float64
	BindingPriority int
}

// ToolImplKind distinguishes the four tool kinds of §4.7.
type ToolImplKind string

const (
	ToolImplCode  ToolImplKind = "code"
	ToolImplEmail ToolImplKind = "email"
	ToolImplSQL   ToolImplKind = "sql"
	ToolImplREST  ToolImplKind = "rest"
)

// ToolPermissions gates dispatch-time tool access (§4.7).
type ToolPermissions struct {
	ChannelWhitelist []string `json:"channelWhitelist,omitempty"` // empty = all channels
	RateLimitPerMin  int      `json:"rateLimitPerMin,omitempty"`  // 0 = unbounded
}

// ToolDefinition is a registered tool (§3). ImplParams holds the declarative
// descriptor for email/sql/rest kinds; code tools are resolved by name
// against an in-process handler registry instead.
type ToolDefinition struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	ParameterSchema map[string]any `json:"parameterSchema"`
	ImplKind       ToolImplKind    `json:"implKind"`
	ImplParams     map[string]any  `json:"implParams,omitempty"`
	Permissions    ToolPermissions `json:"permissions"`
	Active         bool            `json:"active"`
}

// ToolExecutionStatus is the normalized status of a Tool Execution (§3);
// `failed` from legacy callers maps to `error` before persistence.
type ToolExecutionStatus string

const (
	ToolExecSuccess ToolExecutionStatus = "success"
	ToolExecError   ToolExecutionStatus = "error"
	ToolExecTimeout ToolExecutionStatus = "timeout"
)

// NormalizeToolStatus maps the legacy "failed" value onto "error" (§3, §8).
func NormalizeToolStatus(s string) ToolExecutionStatus {
	if s == "failed" {
		return ToolExecError
	}
	return ToolExecutionStatus(s)
}

// ToolExecution is the record of having run a tool call (§3).
type ToolExecution struct {
	ID              uuid.UUID           `json:"id"`
	MessageID       uuid.UUID           `json:"messageId"`
	ToolName        string              `json:"toolName"`
	Parameters      map[string]any      `json:"parameters"`
	Result          string              `json:"result,omitempty"`
	ExecutionTimeMS int64               `json:"executionTimeMs"`
	Status          ToolExecutionStatus `json:"status"`
	Error           string              `json:"error,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}
