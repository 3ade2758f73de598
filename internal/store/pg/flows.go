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

// FlowStore is the read-only pgx-backed store.FlowStore (§1: flow CRUD is
// out of scope, owned by the admin surface).
type FlowStore struct {
	pool *pgxpool.Pool
}

// NewFlowStore creates a FlowStore bound to pool.
func NewFlowStore(pool *pgxpool.Pool) *FlowStore {
	return &FlowStore{pool: pool}
}

func (s *FlowStore) Get(ctx context.Context, id uuid.UUID) (*store.Flow, error) {
	var f store.Flow
	var toolsJSON, configJSON, routingJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, llm_config_id, enabled_tools, config, routing, priority, active, greeting
		FROM flows WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &f.LLMConfigID, &toolsJSON, &configJSON, &routingJSON, &f.Priority, &f.Active, &f.Greeting)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errkind.Wrap(errkind.KindNotFound, "store.flows.get", "flow not found")
	}
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.flows.get", err)
	}
	_ = json.Unmarshal(toolsJSON, &f.EnabledTools)
	_ = json.Unmarshal(configJSON, &f.Config)
	_ = json.Unmarshal(routingJSON, &f.Routing)
	return &f, nil
}

// ActiveByPriority returns active flows ordered by priority ascending,
// feeding the Flow Router's declarative-rule step (§4.2 step 3).
func (s *FlowStore) ActiveByPriority(ctx context.Context) ([]store.Flow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, llm_config_id, enabled_tools, config, routing, priority, active, greeting
		FROM flows WHERE active = true ORDER BY priority ASC`)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.flows.active_by_priority", err)
	}
	defer rows.Close()

	var out []store.Flow
	for rows.Next() {
		var f store.Flow
		var toolsJSON, configJSON, routingJSON []byte
		if err := rows.Scan(&f.ID, &f.Name, &f.LLMConfigID, &toolsJSON, &configJSON, &routingJSON, &f.Priority, &f.Active, &f.Greeting); err != nil {
			return nil, errkind.New(errkind.KindInternal, "store.flows.active_by_priority", err)
		}
		_ = json.Unmarshal(toolsJSON, &f.EnabledTools)
		_ = json.Unmarshal(configJSON, &f.Config)
		_ = json.Unmarshal(routingJSON, &f.Routing)
		out = append(out, f)
	}
	return out, rows.Err()
}

// BindingsForChannel returns the bindings whose channel_config_id equals
// channelConfigID, ordered by priority.
func (s *FlowStore) BindingsForChannel(ctx context.Context, channelConfigID uuid.UUID) ([]store.FlowChannelBinding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT flow_id, channel_config_id, priority
		FROM flow_channel_bindings WHERE channel_config_id = $1
		ORDER BY priority ASC`, channelConfigID)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.flows.bindings_for_channel", err)
	}
	defer rows.Close()

	var out []store.FlowChannelBinding
	for rows.Next() {
		var b store.FlowChannelBinding
		if err := rows.Scan(&b.FlowID, &b.ChannelConfigID, &b.Priority); err != nil {
			return nil, errkind.New(errkind.KindInternal, "store.flows.bindings_for_channel", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
