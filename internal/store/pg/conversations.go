package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// ConversationStore is the pgx-backed store.ConversationStore.
type ConversationStore struct {
	pool *pgxpool.Pool
}

// NewConversationStore creates a ConversationStore bound to pool.
func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

// GetOrCreate implements the §3 invariant: when flowID is nil, the most
// recent conversation for (channelType, channelUserID) is returned; when set,
// at most one conversation exists for the full triple.
func (s *ConversationStore) GetOrCreate(ctx context.Context, channelType, channelUserID string, flowID *uuid.UUID) (*store.Conversation, error) {
	var row conversationRow
	var err error
	if flowID != nil {
		err = s.pool.QueryRow(ctx, `
			SELECT id, channel_type, channel_user_id, flow_id, status, metadata, created_at, last_activity
			FROM conversations
			WHERE channel_type = $1 AND channel_user_id = $2 AND flow_id = $3`,
			channelType, channelUserID, *flowID,
		).Scan(&row.id, &row.channelType, &row.channelUserID, &row.flowID, &row.status, &row.metadata, &row.createdAt, &row.lastActivity)
	} else {
		err = s.pool.QueryRow(ctx, `
			SELECT id, channel_type, channel_user_id, flow_id, status, metadata, created_at, last_activity
			FROM conversations
			WHERE channel_type = $1 AND channel_user_id = $2 AND flow_id IS NULL
			ORDER BY last_activity DESC
			LIMIT 1`,
			channelType, channelUserID,
		).Scan(&row.id, &row.channelType, &row.channelUserID, &row.flowID, &row.status, &row.metadata, &row.createdAt, &row.lastActivity)
	}

	if err == nil {
		return row.toConversation()
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errkind.New(errkind.KindUnavailable, "store.conversations.get", err)
	}

	now := time.Now().UTC()
	c := &store.Conversation{
		ID:            uuid.New(),
		ChannelType:   channelType,
		ChannelUserID: channelUserID,
		FlowID:        flowID,
		Status:        store.ConversationActive,
		CreatedAt:     now,
		LastActivity:  now,
	}
	metaJSON, _ := json.Marshal(c.Metadata)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversations (id, channel_type, channel_user_id, flow_id, status, metadata, created_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.ChannelType, c.ChannelUserID, c.FlowID, c.Status, metaJSON, c.CreatedAt, c.LastActivity,
	)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.conversations.create", err)
	}
	return c, nil
}

// Get loads a conversation by id.
func (s *ConversationStore) Get(ctx context.Context, id uuid.UUID) (*store.Conversation, error) {
	var row conversationRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, channel_type, channel_user_id, flow_id, status, metadata, created_at, last_activity
		FROM conversations WHERE id = $1`, id,
	).Scan(&row.id, &row.channelType, &row.channelUserID, &row.flowID, &row.status, &row.metadata, &row.createdAt, &row.lastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errkind.Wrap(errkind.KindNotFound, "store.conversations.get", "conversation not found")
	}
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.conversations.get", err)
	}
	return row.toConversation()
}

// TouchActivity updates last_activity to now (§3 Lifecycle).
func (s *ConversationStore) TouchActivity(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE conversations SET last_activity = now() WHERE id = $1`, id)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.conversations.touch", err)
	}
	return nil
}

// SetFlow pins a conversation to a flow (Flow Router step 1's write side).
func (s *ConversationStore) SetFlow(ctx context.Context, id uuid.UUID, flowID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE conversations SET flow_id = $2 WHERE id = $1`, id, flowID)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.conversations.set_flow", err)
	}
	return nil
}

// UpsertExternalContext merges envelope into metadata.external_context[namespace],
// latest-wins for overlapping keys, making repeated calls idempotent (§8).
func (s *ConversationStore) UpsertExternalContext(ctx context.Context, id uuid.UUID, namespace string, ec store.ExternalContext) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.conversations.upsert_ec", err)
	}
	defer tx.Rollback(ctx)

	var metaJSON []byte
	err = tx.QueryRow(ctx, `SELECT metadata FROM conversations WHERE id = $1 FOR UPDATE`, id).Scan(&metaJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return errkind.Wrap(errkind.KindNotFound, "store.conversations.upsert_ec", "conversation not found")
	}
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.conversations.upsert_ec", err)
	}

	var meta store.ConversationMetadata
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &meta)
	}
	if meta.ExternalContext == nil {
		meta.ExternalContext = make(map[string]store.ExternalContext)
	}
	meta.ExternalContext[namespace] = ec

	newJSON, err := json.Marshal(meta)
	if err != nil {
		return errkind.New(errkind.KindInternal, "store.conversations.upsert_ec", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE conversations SET metadata = $2 WHERE id = $1`, id, newJSON); err != nil {
		return errkind.New(errkind.KindUnavailable, "store.conversations.upsert_ec", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errkind.New(errkind.KindUnavailable, "store.conversations.upsert_ec", err)
	}
	return nil
}

// SetStatus transitions the conversation's lifecycle status.
func (s *ConversationStore) SetStatus(ctx context.Context, id uuid.UUID, status store.ConversationStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE conversations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.conversations.set_status", err)
	}
	return nil
}

type conversationRow struct {
	id            uuid.UUID
	channelType   string
	channelUserID string
	flowID        *uuid.UUID
	status        string
	metadata      []byte
	createdAt     time.Time
	lastActivity  time.Time
}

func (r conversationRow) toConversation() (*store.Conversation, error) {
	c := &store.Conversation{
		ID:            r.id,
		ChannelType:   r.channelType,
		ChannelUserID: r.channelUserID,
		FlowID:        r.flowID,
		Status:        store.ConversationStatus(r.status),
		CreatedAt:     r.createdAt,
		LastActivity:  r.lastActivity,
	}
	if len(r.metadata) > 0 {
		if err := json.Unmarshal(r.metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal conversation metadata: %w", err)
		}
	}
	return c, nil
}
