package orchestrator

import (
	"context"

	"github.com/nextlevelbuilder/orchhub/internal/providers"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// resolveTools loads the tool definitions enabled for flow and converts
// them into provider-native JSON-schema declarations (§4.5 step 4),
// generalizing the teacher's tools.Registry.ProviderDefs conversion from a
// process-wide registry to a per-flow allowlist.
func (o *Orchestrator) resolveTools(ctx context.Context, flow *store.Flow) ([]providers.ToolDefinition, map[string]*store.ToolDefinition, error) {
	enabled := make(map[string]*store.ToolDefinition)
	if flow == nil || len(flow.EnabledTools) == 0 || o.toolDefs == nil {
		return nil, enabled, nil
	}

	defs := make([]providers.ToolDefinition, 0, len(flow.EnabledTools))
	for _, name := range flow.EnabledTools {
		def, err := o.toolDefs.Get(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		if def == nil || !def.Active {
			continue
		}
		enabled[def.Name] = def
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.ParameterSchema,
			},
		})
	}
	return defs, enabled, nil
}
