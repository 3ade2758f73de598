package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/orchhub/internal/toolruntime"
)

// BridgeTool adapts one tool discovered on an MCP server into a
// toolruntime.Handler, so the Tool Runtime's dispatcher can invoke it the
// same way it invokes any other in-process tool (§4.7).
type BridgeTool struct {
	serverName   string
	originalName string
	name         string
	client       *mcpclient.Client
	connected    *atomic.Bool
	timeout      time.Duration
}

// NewBridgeTool builds a BridgeTool for mcpTool, discovered on the MCP
// server named serverName. A non-empty prefix disambiguates tool names
// across servers (e.g. "github_create_issue"). A positive timeoutSec bounds
// each call to the tool.
func NewBridgeTool(serverName string, mcpTool mcpgo.Tool, client *mcpclient.Client, prefix string, timeoutSec int, connected *atomic.Bool) *BridgeTool {
	name := mcpTool.Name
	if prefix != "" {
		name = prefix + "_" + name
	}
	return &BridgeTool{
		serverName:   serverName,
		originalName: mcpTool.Name,
		name:         name,
		client:       client,
		connected:    connected,
		timeout:      time.Duration(timeoutSec) * time.Second,
	}
}

// Name returns the (possibly prefixed) tool name registered with the
// Tool Runtime's Registry.
func (b *BridgeTool) Name() string { return b.name }

// OriginalName returns the tool's name as reported by the MCP server,
// before any configured prefix.
func (b *BridgeTool) OriginalName() string { return b.originalName }

// Execute calls the tool on its MCP server and normalizes the response
// into a toolruntime.Result.
func (b *BridgeTool) Execute(ctx context.Context, args map[string]any) *toolruntime.Result {
	if b.connected != nil && !b.connected.Load() {
		return toolruntime.ErrorResult(fmt.Sprintf("mcp server %q is not connected", b.serverName))
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = b.originalName
	req.Params.Arguments = args

	res, err := b.client.CallTool(ctx, req)
	if err != nil {
		return toolruntime.ErrorResult(fmt.Sprintf("mcp tool %q failed: %v", b.name, err)).WithError(err)
	}

	text := contentText(res.Content)
	if res.IsError {
		return toolruntime.ErrorResult(text)
	}
	return toolruntime.NewResult(text)
}

// contentText flattens an MCP tool result's content blocks into the
// plain-text form the LLM gateway expects (§4.7 result normalization).
func contentText(content []mcpgo.Content) string {
	var b strings.Builder
	for _, c := range content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}
