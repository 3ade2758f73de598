// Package orchestrator implements the AI Orchestrator (§4.5): the turn
// loop that composes the system prompt, invokes the LLM Gateway, dispatches
// tool calls through the Tool Runtime, and persists the result. Generalizes
// the teacher's internal/agent/loop.go Think→Act→Observe cycle (build
// messages → call provider → dispatch tool calls → re-invoke) from an
// open-ended agent run to one bounded conversational turn.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/bus"
	"github.com/nextlevelbuilder/orchhub/internal/ctxmgr"
	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/llmgateway"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
	"github.com/nextlevelbuilder/orchhub/internal/rag"
	"github.com/nextlevelbuilder/orchhub/internal/store"
	"github.com/nextlevelbuilder/orchhub/internal/toolruntime"
	"github.com/nextlevelbuilder/orchhub/pkg/protocol"
)

// DefaultMaxToolExecutions bounds the tool-call sub-loop (§4.5 step 5).
const DefaultMaxToolExecutions = 10

// TurnRequest carries one turn's inputs: the normalized inbound message,
// the resolved routing (may be nil, §4.5), and the session it belongs to.
type TurnRequest struct {
	Conversation      *store.Conversation
	Flow              *store.Flow // resolved routing; nil falls back to default-model behavior
	ChannelType       string
	UserMessage       string
	OriginalMessageID string
}

// ProcessingResult is the turn's output (§4.5).
type ProcessingResult struct {
	Content        string
	Usage          providers.Usage
	Cost           float64
	ToolExecutions []store.ToolExecution
	ProcessingTime time.Duration
	Metadata       map[string]any
}

// Orchestrator ties the Context Manager, RAG Engine, LLM Gateway and Tool
// Runtime together to run one turn at a time (§4.5).
type Orchestrator struct {
	sessions  *ctxmgr.Manager
	rag       *rag.Engine
	gateway   *llmgateway.Gateway
	tools     *toolruntime.Runtime
	toolDefs  store.ToolDefinitionStore
	events    bus.EventPublisher

	maxToolExecutions int
}

// Config configures an Orchestrator.
type Config struct {
	Sessions          *ctxmgr.Manager
	RAG               *rag.Engine
	Gateway           *llmgateway.Gateway
	Tools             *toolruntime.Runtime
	ToolDefs          store.ToolDefinitionStore
	Events            bus.EventPublisher // optional; nil disables analytics emission
	MaxToolExecutions int                // <=0 uses DefaultMaxToolExecutions
}

func New(cfg Config) *Orchestrator {
	max := cfg.MaxToolExecutions
	if max <= 0 {
		max = DefaultMaxToolExecutions
	}
	return &Orchestrator{
		sessions:          cfg.Sessions,
		rag:               cfg.RAG,
		gateway:           cfg.Gateway,
		tools:             cfg.Tools,
		toolDefs:          cfg.ToolDefs,
		events:            cfg.Events,
		maxToolExecutions: max,
	}
}

// ProcessTurn runs the §4.5 algorithm for one inbound message and returns
// the assistant's final content for dispatch via the Send Queue.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest) (*ProcessingResult, error) {
	start := time.Now()

	if !o.gateway.IsHealthy() {
		return nil, errkind.Wrap(errkind.KindUnavailable, "orchestrator.process_turn", "no LLM providers available")
	}

	// Serialize all turns for this conversation (§4.3 Concurrency, §5
	// Locking discipline): a retried at-least-once webhook delivery racing
	// a legitimate second message must not interleave Hydrate/AppendMessage
	// calls against the same session.
	unlock := o.sessions.Lock(ctxmgr.SessionID(req.Conversation.ChannelType, req.Conversation.ChannelUserID, req.Conversation.ID))
	defer unlock()

	// 1. Obtain the session (the Context Manager allocates a conversation
	// id upstream; by the time a turn reaches here req.Conversation is
	// already a valid opaque id).
	sess, err := o.sessions.Hydrate(ctx, req.Conversation)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "orchestrator.hydrate", err)
	}

	// 2-3. Compose the system prompt and build the message list.
	systemPrompt, ragResult := o.composeSystemPrompt(ctx, req, sess)
	messages := buildMessages(systemPrompt, sess.History, req.UserMessage)

	toolDefs, enabledDefs, err := o.resolveTools(ctx, req.Flow)
	if err != nil {
		return nil, err
	}

	// 4-5. Invoke the LLM, bounded tool-call sub-loop.
	var totalUsage providers.Usage
	var executions []store.ToolExecution
	var finalContent string
	var servingProvider, servingModel string
	userMsgID := uuid.New()

	for iteration := 0; ; iteration++ {
		if iteration > o.maxToolExecutions {
			return nil, errkind.Wrap(errkind.KindUnavailable, "orchestrator.process_turn", "tool execution loop exceeded bound")
		}

		chatReq := providers.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
			Options: map[string]interface{}{
				providers.OptMaxTokens:   8192,
				providers.OptTemperature: 0.7,
			},
		}
		resp, err := o.gateway.Chat(ctx, chatReq)
		if err != nil {
			return nil, errkind.New(errkind.KindUnavailable, "orchestrator.chat", err)
		}
		if resp.Usage != nil {
			totalUsage.PromptTokens += resp.Usage.PromptTokens
			totalUsage.CompletionTokens += resp.Usage.CompletionTokens
			totalUsage.TotalTokens += resp.Usage.TotalTokens
		}
		servingProvider, servingModel = resp.Provider, resp.Model

		if len(resp.ToolCalls) == 0 {
			finalContent = resp.Content
			break
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			def, ok := enabledDefs[tc.Name]
			if !ok {
				messages = append(messages, providers.Message{
					Role:       "tool",
					Content:    fmt.Sprintf("tool %q is not enabled for this flow", tc.Name),
					ToolCallID: tc.ID,
				})
				continue
			}

			result, err := o.tools.Invoke(ctx, def, req.ChannelType, userMsgID, tc.Arguments)
			if err != nil {
				slog.Warn("orchestrator.tool_invoke_failed", "tool", tc.Name, "error", err)
				messages = append(messages, providers.Message{Role: "tool", Content: err.Error(), ToolCallID: tc.ID})
				continue
			}
			executions = append(executions, store.ToolExecution{ToolName: tc.Name})
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: tc.ID,
			})
		}
	}

	// 6. Persist the turn.
	cost := o.gateway.Cost(servingProvider, totalUsage)
	if err := o.persistTurn(ctx, sess, req, userMsgID, finalContent, totalUsage, cost, servingProvider, servingModel); err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "orchestrator.persist", err)
	}

	elapsed := time.Since(start)
	o.emitProcessed(req, totalUsage, elapsed)

	metadata := map[string]any{}
	if ragResult.Block != "" {
		metadata["rag_sources"] = len(ragResult.Chunks)
	}

	return &ProcessingResult{
		Content:        finalContent,
		Usage:          totalUsage,
		Cost:           cost,
		ToolExecutions: executions,
		ProcessingTime: elapsed,
		Metadata:       metadata,
	}, nil
}

// persistTurn appends the user message and the final assistant message to
// the session (§4.5 step 6).
func (o *Orchestrator) persistTurn(ctx context.Context, sess *ctxmgr.Session, req TurnRequest, userMsgID uuid.UUID, content string, usage providers.Usage, cost float64, provider, model string) error {
	userMsg := &store.Message{
		ID:                userMsgID,
		ConversationID:    sess.ConversationID,
		Role:              store.RoleUser,
		Content:           req.UserMessage,
		OriginalMessageID: req.OriginalMessageID,
		CreatedAt:         time.Now().UTC(),
	}
	if err := o.sessions.AppendMessage(ctx, sess, userMsg); err != nil {
		return err
	}

	assistantMsg := &store.Message{
		ID:             uuid.New(),
		ConversationID: sess.ConversationID,
		Role:           store.RoleAssistant,
		Content:        content,
		Provider:       provider,
		Model:          model,
		InputTokens:    int64(usage.PromptTokens),
		OutputTokens:   int64(usage.CompletionTokens),
		CostUSD:        cost,
		CreatedAt:      time.Now().UTC(),
	}
	if req.Flow != nil {
		assistantMsg.Metadata.FlowID = &req.Flow.ID
	}
	return o.sessions.AppendMessage(ctx, sess, assistantMsg)
}

// emitProcessed emits the message_processed analytics event (§4.5 step 6,
// §8). A nil publisher silently skips emission.
func (o *Orchestrator) emitProcessed(req TurnRequest, usage providers.Usage, elapsed time.Duration) {
	if o.events == nil {
		return
	}
	o.events.Broadcast(bus.Event{
		Name: protocol.EventMessageProcessed,
		Payload: map[string]any{
			"conversation_id": sessionConversationID(req),
			"latency_ms":      elapsed.Milliseconds(),
			"prompt_tokens":   usage.PromptTokens,
			"completion_tokens": usage.CompletionTokens,
		},
	})
}

func sessionConversationID(req TurnRequest) uuid.UUID {
	if req.Conversation == nil {
		return uuid.Nil
	}
	return req.Conversation.ID
}
