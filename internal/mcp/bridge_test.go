package mcp

import (
	"sync/atomic"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func TestNewBridgeTool_AppliesPrefix(t *testing.T) {
	var connected atomic.Bool
	connected.Store(true)

	bt := NewBridgeTool("github", mcpgo.Tool{Name: "create_issue"}, nil, "github", 60, &connected)
	if bt.Name() != "github_create_issue" {
		t.Fatalf("got %q, want github_create_issue", bt.Name())
	}
	if bt.OriginalName() != "create_issue" {
		t.Fatalf("got %q, want create_issue", bt.OriginalName())
	}
}

func TestNewBridgeTool_NoPrefixKeepsOriginalName(t *testing.T) {
	var connected atomic.Bool
	bt := NewBridgeTool("github", mcpgo.Tool{Name: "create_issue"}, nil, "", 60, &connected)
	if bt.Name() != "create_issue" {
		t.Fatalf("got %q, want create_issue", bt.Name())
	}
}

func TestContentText_JoinsTextBlocks(t *testing.T) {
	content := []mcpgo.Content{
		mcpgo.TextContent{Text: "first"},
		mcpgo.TextContent{Text: "second"},
	}
	got := contentText(content)
	if got != "first\nsecond" {
		t.Fatalf("got %q", got)
	}
}

func TestContentText_EmptyForNoTextBlocks(t *testing.T) {
	if got := contentText(nil); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestExecute_DisconnectedServerShortCircuits(t *testing.T) {
	var connected atomic.Bool
	connected.Store(false)

	bt := NewBridgeTool("github", mcpgo.Tool{Name: "create_issue"}, nil, "", 60, &connected)
	result := bt.Execute(nil, nil)
	if !result.IsError {
		t.Fatal("expected an error result for a disconnected server")
	}
}
