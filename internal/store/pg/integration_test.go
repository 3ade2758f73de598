//go:build integration

package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nextlevelbuilder/orchhub/internal/store"
	"github.com/nextlevelbuilder/orchhub/internal/store/pg"
)

// TestConversationStore_GetOrCreateRoundTrip runs the declarative schema
// against a disposable Postgres container and exercises ConversationStore
// the way a real deployment would, complementing the in-process fakes the
// rest of the tree tests against. Build-tagged "integration" (§2's test
// tooling): it needs a Docker daemon and is not part of the default
// `go test ./...` run.
func TestConversationStore_GetOrCreateRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	migration, err := os.ReadFile("migrations/0001_init.up.sql")
	require.NoError(t, err)

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("orchhub"),
		postgres.WithUsername("orchhub"),
		postgres.WithPassword("orchhub"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pg.Open(ctx, store.Config{PostgresDSN: dsn, MaxConns: 5})
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, string(migration))
	require.NoError(t, err)

	stores := pg.NewStores(pool)

	conv, err := stores.Conversations.GetOrCreate(ctx, "webchat", "user-1", nil)
	require.NoError(t, err)
	require.NotNil(t, conv)

	again, err := stores.Conversations.GetOrCreate(ctx, "webchat", "user-1", nil)
	require.NoError(t, err)
	require.Equal(t, conv.ID, again.ID)
}
