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

// ToolDefinitionStore is the pgx-backed store.ToolDefinitionStore.
type ToolDefinitionStore struct {
	pool *pgxpool.Pool
}

// NewToolDefinitionStore creates a ToolDefinitionStore bound to pool.
func NewToolDefinitionStore(pool *pgxpool.Pool) *ToolDefinitionStore {
	return &ToolDefinitionStore{pool: pool}
}

func (s *ToolDefinitionStore) Get(ctx context.Context, name string) (*store.ToolDefinition, error) {
	var td store.ToolDefinition
	var schemaJSON, implJSON, permsJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, parameter_schema, impl_kind, impl_params, permissions, active
		FROM tool_definitions WHERE name = $1`, name,
	).Scan(&td.ID, &td.Name, &schemaJSON, &td.ImplKind, &implJSON, &permsJSON, &td.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errkind.Wrap(errkind.KindNotFound, "store.tools.get", "tool not found: "+name)
	}
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.tools.get", err)
	}
	_ = json.Unmarshal(schemaJSON, &td.ParameterSchema)
	_ = json.Unmarshal(implJSON, &td.ImplParams)
	_ = json.Unmarshal(permsJSON, &td.Permissions)
	return &td, nil
}

func (s *ToolDefinitionStore) Active(ctx context.Context) ([]store.ToolDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, parameter_schema, impl_kind, impl_params, permissions, active
		FROM tool_definitions WHERE active = true`)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.tools.active", err)
	}
	defer rows.Close()

	var out []store.ToolDefinition
	for rows.Next() {
		var td store.ToolDefinition
		var schemaJSON, implJSON, permsJSON []byte
		if err := rows.Scan(&td.ID, &td.Name, &schemaJSON, &td.ImplKind, &implJSON, &permsJSON, &td.Active); err != nil {
			return nil, errkind.New(errkind.KindInternal, "store.tools.active", err)
		}
		_ = json.Unmarshal(schemaJSON, &td.ParameterSchema)
		_ = json.Unmarshal(implJSON, &td.ImplParams)
		_ = json.Unmarshal(permsJSON, &td.Permissions)
		out = append(out, td)
	}
	return out, rows.Err()
}

// ToolExecutionStore is the pgx-backed store.ToolExecutionStore.
type ToolExecutionStore struct {
	pool *pgxpool.Pool
}

// NewToolExecutionStore creates a ToolExecutionStore bound to pool.
func NewToolExecutionStore(pool *pgxpool.Pool) *ToolExecutionStore {
	return &ToolExecutionStore{pool: pool}
}

// Insert persists a tool-execution row, normalizing status first (§3, §8).
func (s *ToolExecutionStore) Insert(ctx context.Context, exec *store.ToolExecution) error {
	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = time.Now().UTC()
	}
	exec.Status = store.NormalizeToolStatus(string(exec.Status))
	paramsJSON, _ := json.Marshal(exec.Parameters)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tool_executions (id, message_id, tool_name, parameters, result, execution_time_ms, status, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		exec.ID, exec.MessageID, exec.ToolName, paramsJSON, exec.Result, exec.ExecutionTimeMS, exec.Status, exec.Error, exec.CreatedAt)
	if err != nil {
		return errkind.New(errkind.KindUnavailable, "store.tool_executions.insert", err)
	}
	return nil
}
