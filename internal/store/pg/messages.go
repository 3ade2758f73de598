package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// MessageStore is the pgx-backed store.MessageStore. Messages are
// append-only: no update/delete method is exposed (§3).
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore creates a MessageStore bound to pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Append inserts msg, stamping an id/timestamp if unset.
func (s *MessageStore) Append(ctx context.Context, msg *store.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return errkind.New(errkind.KindInternal, "store.messages.append", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, provider, model, input_tokens, output_tokens, cost_usd, metadata, original_message_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Provider, msg.Model,
		msg.InputTokens, msg.OutputTokens, msg.CostUSD, metaJSON, msg.OriginalMessageID, msg.CreatedAt,
	)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.messages.append", err)
	}
	return nil
}

// History returns up to limit most-recent messages ordered ascending by
// timestamp, implementing the §4.3 Hydration and §8 100-message cap.
func (s *MessageStore) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, provider, model, input_tokens, output_tokens, cost_usd, metadata, original_message_id, created_at
		FROM (
			SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent
		ORDER BY created_at ASC`, conversationID, limit)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.messages.history", err)
	}
	defer rows.Close()

	var out []store.Message
	for rows.Next() {
		var m store.Message
		var metaJSON []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Provider, &m.Model,
			&m.InputTokens, &m.OutputTokens, &m.CostUSD, &metaJSON, &m.OriginalMessageID, &m.CreatedAt); err != nil {
			return nil, errkind.New(errkind.KindInternal, "store.messages.history", err)
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &m.Metadata)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindByOriginalID implements the dedup lookup of §4.1.
func (s *MessageStore) FindByOriginalID(ctx context.Context, conversationID uuid.UUID, originalMessageID string) (*store.Message, error) {
	if originalMessageID == "" {
		return nil, nil
	}
	var m store.Message
	var metaJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, conversation_id, role, content, provider, model, input_tokens, output_tokens, cost_usd, metadata, original_message_id, created_at
		FROM messages WHERE conversation_id = $1 AND original_message_id = $2
		ORDER BY created_at ASC LIMIT 1`, conversationID, originalMessageID,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Provider, &m.Model,
		&m.InputTokens, &m.OutputTokens, &m.CostUSD, &metaJSON, &m.OriginalMessageID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.messages.find_by_original_id", err)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &m.Metadata)
	}
	return &m, nil
}
