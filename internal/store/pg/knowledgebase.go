package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// KnowledgeBaseStore is the pgx-backed store.KnowledgeBaseStore.
type KnowledgeBaseStore struct {
	pool *pgxpool.Pool
}

// NewKnowledgeBaseStore creates a KnowledgeBaseStore bound to pool.
func NewKnowledgeBaseStore(pool *pgxpool.Pool) *KnowledgeBaseStore {
	return &KnowledgeBaseStore{pool: pool}
}

func (s *KnowledgeBaseStore) Get(ctx context.Context, id uuid.UUID) (*store.KnowledgeBase, error) {
	var kb store.KnowledgeBase
	var chunkingJSON, metaJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, embedding_model, embedding_dimension, chunking, metadata, active
		FROM knowledge_bases WHERE id = $1`, id,
	).Scan(&kb.ID, &kb.Name, &kb.EmbeddingModel, &kb.EmbeddingDimension, &chunkingJSON, &metaJSON, &kb.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errkind.Wrap(errkind.KindNotFound, "store.kb.get", "knowledge base not found")
	}
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.kb.get", err)
	}
	_ = json.Unmarshal(chunkingJSON, &kb.Chunking)
	_ = json.Unmarshal(metaJSON, &kb.Metadata)
	return &kb, nil
}

// BindingsForFlow returns KB bindings ordered by priority ascending (§4.4 step 1).
func (s *KnowledgeBaseStore) BindingsForFlow(ctx context.Context, flowID uuid.UUID) ([]store.KBBinding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT flow_id, knowledge_base_id, priority, similarity_threshold, max_results
		FROM kb_bindings
		JOIN knowledge_bases kb ON kb.id = kb_bindings.knowledge_base_id
		WHERE flow_id = $1 AND kb.active = true
		ORDER BY priority ASC`, flowID)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.kb.bindings_for_flow", err)
	}
	defer rows.Close()

	var out []store.KBBinding
	for rows.Next() {
		var b store.KBBinding
		if err := rows.Scan(&b.FlowID, &b.KnowledgeBaseID, &b.Priority, &b.SimilarityThreshold, &b.MaxResults); err != nil {
			return nil, errkind.New(errkind.KindInternal, "store.kb.bindings_for_flow", err)
		}
		if b.SimilarityThreshold == 0 {
			b.SimilarityThreshold = 0.70
		}
		if b.MaxResults == 0 {
			b.MaxResults = 5
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
