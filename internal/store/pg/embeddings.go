package pg

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// EmbeddingStore is the pgx+pgvector-backed store.EmbeddingStore.
type EmbeddingStore struct {
	pool *pgxpool.Pool
}

// NewEmbeddingStore creates an EmbeddingStore bound to pool.
func NewEmbeddingStore(pool *pgxpool.Pool) *EmbeddingStore {
	return &EmbeddingStore{pool: pool}
}

func (s *EmbeddingStore) InsertDocument(ctx context.Context, doc *store.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	metaJSON, _ := json.Marshal(doc.Metadata)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, kb_id, source, content, status, error, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		doc.ID, doc.KBID, doc.Source, doc.Content, doc.Status, doc.Error, metaJSON)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.embeddings.insert_document", err)
	}
	return nil
}

// SetDocumentStatus records the ingest outcome, including the precise error
// message on a dimension-mismatch failure (§8 Boundary behaviors).
func (s *EmbeddingStore) SetDocumentStatus(ctx context.Context, id uuid.UUID, status store.DocumentStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE documents SET status = $2, error = $3 WHERE id = $1`, id, status, errMsg)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.embeddings.set_document_status", err)
	}
	return nil
}

// InsertChunks bulk-inserts embedding chunks inside one transaction; callers
// must have already validated vector dimension against the KB (§3).
func (s *EmbeddingStore) InsertChunks(ctx context.Context, chunks []store.EmbeddingChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.embeddings.insert_chunks", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		metaJSON, _ := json.Marshal(c.Metadata)
		batch.Queue(`
			INSERT INTO embedding_chunks (id, document_id, kb_id, chunk_index, content, vector, token_count, metadata)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			id, c.DocumentID, c.KBID, c.ChunkIndex, c.Content, c.Vector, c.TokenCount, metaJSON)
	}
	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return errkind.New(errkind.KindUnavailable, "store.embeddings.insert_chunks", err)
		}
	}
	if err := br.Close(); err != nil {
		return errkind.New(errkind.KindUnavailable, "store.embeddings.insert_chunks", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errkind.New(errkind.KindUnavailable, "store.embeddings.insert_chunks", err)
	}
	return nil
}

// Search runs a cosine-distance nearest-neighbor query (pgvector's `<=>`
// operator) and filters to similarity >= threshold, implementing §4.4 step 4.
// Similarity is computed as 1 - cosine_distance.
func (s *EmbeddingStore) Search(ctx context.Context, kbID uuid.UUID, query []float32, threshold float64, topK int) ([]store.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	qv := pgvector.NewVector(query)
	rows, err := s.pool.Query(ctx, `
		SELECT ec.id, ec.document_id, ec.kb_id, ec.chunk_index, ec.content, ec.token_count, ec.metadata,
		       d.source, kb.name,
		       1 - (ec.vector <=> $2) AS similarity
		FROM embedding_chunks ec
		JOIN documents d ON d.id = ec.document_id
		JOIN knowledge_bases kb ON kb.id = ec.kb_id
		WHERE ec.kb_id = $1
		ORDER BY ec.vector <=> $2
		LIMIT $3`, kbID, qv, topK)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.embeddings.search", err)
	}
	defer rows.Close()

	var out []store.ScoredChunk
	for rows.Next() {
		var sc store.ScoredChunk
		var metaJSON []byte
		if err := rows.Scan(&sc.Chunk.ID, &sc.Chunk.DocumentID, &sc.Chunk.KBID, &sc.Chunk.ChunkIndex,
			&sc.Chunk.Content, &sc.Chunk.TokenCount, &metaJSON, &sc.DocumentTitle, &sc.KBName, &sc.Similarity); err != nil {
			return nil, errkind.New(errkind.KindInternal, "store.embeddings.search", err)
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &sc.Chunk.Metadata)
		}
		if sc.Similarity >= threshold {
			out = append(out, sc)
		}
	}
	return out, rows.Err()
}
