// Package mcp connects to externally configured Model Context Protocol
// servers and registers their tools into the Tool Runtime's in-process
// code registry (§4.7 "Dynamic 'tools' pattern"): a runtime-registered
// handler keyed by tool name, no different in shape from any other
// in-process tool — MCP is just one more source of them. Grounded on the
// teacher's internal/mcp package (connection lifecycle, health-check/
// reconnect loop); the teacher's per-agent permission-grant loading
// (MCPServerStore, ListAccessible, tool allow/deny filtering) has no
// equivalent in spec.md's flow model and is dropped in favor of static,
// config-driven connections (§6 recognizes no MCP-grant API).
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"

	"github.com/nextlevelbuilder/orchhub/internal/config"
	"github.com/nextlevelbuilder/orchhub/internal/toolruntime"
)

const (
	healthCheckInterval  = 30 * time.Second
	initialBackoff       = 2 * time.Second
	maxBackoff           = 60 * time.Second
	maxReconnectAttempts = 10
)

// ServerStatus reports the connection status of an MCP server, surfaced
// through the `mcpServer` component of `GET /health`.
type ServerStatus struct {
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Connected bool   `json:"connected"`
	ToolCount int    `json:"tool_count"`
	Error     string `json:"error,omitempty"`
}

// serverState tracks a single MCP server connection.
type serverState struct {
	name      string
	transport string
	client    *mcpclient.Client
	connected atomic.Bool
	toolNames []string
	cancel    context.CancelFunc

	mu             sync.Mutex
	reconnAttempts int
	lastErr        string
}

// Manager connects to every configured MCP server at Start and registers
// their tools into a toolruntime.Registry.
type Manager struct {
	mu       sync.RWMutex
	servers  map[string]*serverState
	registry *toolruntime.Registry
	configs  map[string]*config.MCPServerConfig
}

// NewManager creates a new MCP Manager bound to the given tool registry
// and static server configs (§6).
func NewManager(registry *toolruntime.Registry, configs map[string]*config.MCPServerConfig) *Manager {
	return &Manager{
		servers:  make(map[string]*serverState),
		registry: registry,
		configs:  configs,
	}
}

// Start connects to all configured MCP servers. Non-fatal: logs warnings
// for servers that fail to connect and continues — one unreachable MCP
// server never prevents the hub from starting.
func (m *Manager) Start(ctx context.Context) error {
	var errs []string
	for name, cfg := range m.configs {
		if !cfg.IsEnabled() {
			slog.Info("mcp.server.disabled", "server", name)
			continue
		}
		if err := m.connectServer(ctx, name, cfg.Transport, cfg.Command, cfg.Args, cfg.Env, cfg.URL, cfg.Headers, cfg.ToolPrefix, cfg.TimeoutSec); err != nil {
			slog.Warn("mcp.server.connect_failed", "server", name, "error", err)
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("some MCP servers failed to connect: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Stop shuts down all MCP server connections and unregisters their tools.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, ss := range m.servers {
		if ss.cancel != nil {
			ss.cancel()
		}
		if ss.client != nil {
			if err := ss.client.Close(); err != nil {
				slog.Debug("mcp.server.close_error", "server", name, "error", err)
			}
		}
		for _, toolName := range ss.toolNames {
			m.registry.Unregister(toolName)
		}
	}
	m.servers = make(map[string]*serverState)
}

// ServerStatus returns the status of all connected MCP servers.
func (m *Manager) ServerStatus() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]ServerStatus, 0, len(m.servers))
	for _, ss := range m.servers {
		statuses = append(statuses, ServerStatus{
			Name:      ss.name,
			Transport: ss.transport,
			Connected: ss.connected.Load(),
			ToolCount: len(ss.toolNames),
			Error:     ss.lastErr,
		})
	}
	return statuses
}

// Healthy reports whether every configured, enabled MCP server is
// currently connected — feeds the `mcpServer` component of `GET /health`.
func (m *Manager) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, cfg := range m.configs {
		if cfg == nil || !cfg.IsEnabled() {
			continue
		}
		ss, ok := m.servers[name]
		if !ok || !ss.connected.Load() {
			return false
		}
	}
	return true
}
