// Package pg is the Postgres-backed implementation of internal/store's
// interfaces, built on pgx/v5 (the gateway's existing driver) with the
// embedding_chunks vector column typed via pgvector-go.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// Open creates a bounded connection pool (§5: max 20 by default) and
// registers the pgvector type on every new connection so
// EmbeddingChunk.Vector round-trips through pgx.Rows.Scan directly.
func Open(ctx context.Context, cfg store.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 20
	}
	poolCfg.MaxConns = maxConns
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return pool, nil
}

// NewStores wires every store.Stores member against a shared pool.
func NewStores(pool *pgxpool.Pool) *store.Stores {
	return &store.Stores{
		Conversations:  NewConversationStore(pool),
		Messages:       NewMessageStore(pool),
		Flows:          NewFlowStore(pool),
		Channels:       NewChannelConfigStore(pool),
		KnowledgeBases: NewKnowledgeBaseStore(pool),
		Embeddings:     NewEmbeddingStore(pool),
		ToolDefs:       NewToolDefinitionStore(pool),
		ToolExecs:      NewToolExecutionStore(pool),
	}
}

// vectorLiteral formats a float32 slice as a pgvector.Vector for query args.
func vectorLiteral(v []float32) pgvector.Vector {
	return pgvector.NewVector(v)
}
