package ctxmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/keyedmutex"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// DefaultHistoryCap is the default conversation-history window (§3, §4.3, §8).
const DefaultHistoryCap = 100

// ExternalContextCharCap is the hard cap on the JSON-form external-context
// block appended to the system prompt (§4.3, §8).
const ExternalContextCharCap = 4000

// Session is the in-memory projection of a Conversation (§3 "Session
// Context", GLOSSARY "Session").
type Session struct {
	ID             string
	ConversationID uuid.UUID
	ChannelType    string
	UserID         string
	History        []providers.Message
	Metadata       map[string]any
	UpdatedAt      time.Time
}

// Manager owns the Session graph: reconstructed lazily from the Store,
// cache-resident thereafter, generalizing the gateway's
// cache-over-store pattern (PGSessionStore's RWMutex-guarded map) with
// per-key serialization via keyedmutex (§4.3 Concurrency, §5).
type Manager struct {
	messages      store.MessageStore
	conversations store.ConversationStore
	historyCap    int

	mu       sync.RWMutex
	sessions map[string]*Session

	locks *keyedmutex.Map
}

// NewManager creates a Manager. historyCap<=0 uses DefaultHistoryCap.
func NewManager(conversations store.ConversationStore, messages store.MessageStore, historyCap int) *Manager {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Manager{
		messages:      messages,
		conversations: conversations,
		historyCap:    historyCap,
		sessions:      make(map[string]*Session),
		locks:         keyedmutex.New(),
	}
}

// Lock serializes all turns for the given session, returning an unlock
// function. Callers must hold this for the duration of a turn (§4.3
// Concurrency, §5 Locking discipline).
func (m *Manager) Lock(sessionID string) func() {
	return m.locks.Lock(sessionID)
}

// Hydrate loads or refreshes the session for conv, restoring up to
// historyCap most-recent messages ascending by timestamp (§4.3 Hydration).
// If the cached session holds fewer messages than persisted, it is cleared
// and reloaded — the persistent Store is authoritative.
func (m *Manager) Hydrate(ctx context.Context, conv *store.Conversation) (*Session, error) {
	id := SessionID(conv.ChannelType, conv.ChannelUserID, conv.ID)

	m.mu.RLock()
	existing, ok := m.sessions[id]
	m.mu.RUnlock()

	history, err := m.messages.History(ctx, conv.ID, m.historyCap)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "ctxmgr.hydrate", err)
	}

	if ok && len(existing.History) >= len(history) {
		return existing, nil
	}

	sess := &Session{
		ID:             id,
		ConversationID: conv.ID,
		ChannelType:    conv.ChannelType,
		UserID:         conv.ChannelUserID,
		History:        toProviderMessages(history),
		Metadata:       make(map[string]any),
		UpdatedAt:      time.Now().UTC(),
	}
	m.mergeExternalContext(sess, conv)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	slog.Debug("ctxmgr.hydrated", "session", id, "messages", len(sess.History))
	return sess, nil
}

// AppendMessage both persists msg and appends it to the in-memory history,
// dropping the oldest entry once historyCap is exceeded (§4.3 Per-message
// update).
func (m *Manager) AppendMessage(ctx context.Context, sess *Session, msg *store.Message) error {
	if err := m.messages.Append(ctx, msg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess.History = append(sess.History, toProviderMessage(msg))
	if len(sess.History) > m.historyCap {
		sess.History = sess.History[len(sess.History)-m.historyCap:]
	}
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// ExternalContextBlock renders the session's merged external-context
// metadata as a delimited, hard-capped block for system-prompt injection
// (§4.3 External-context merge).
func (m *Manager) ExternalContextBlock(sess *Session) string {
	ec, ok := sess.Metadata["external_context"]
	if !ok {
		return ""
	}
	raw, err := json.MarshalIndent(ec, "", "  ")
	if err != nil {
		return ""
	}
	body := string(raw)
	if len(body) > ExternalContextCharCap {
		body = body[:ExternalContextCharCap]
	}
	return fmt.Sprintf("--- EXTERNAL CONTEXT ---\n%s\n--- END EXTERNAL CONTEXT ---", body)
}

func (m *Manager) mergeExternalContext(sess *Session, conv *store.Conversation) {
	if len(conv.Metadata.ExternalContext) == 0 {
		return
	}
	sess.Metadata["external_context"] = conv.Metadata.ExternalContext
}

func toProviderMessages(msgs []store.Message) []providers.Message {
	out := make([]providers.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, toProviderMessage(&msgs[i]))
	}
	return out
}

func toProviderMessage(m *store.Message) providers.Message {
	return providers.Message{
		Role:    string(m.Role),
		Content: m.Content,
	}
}
