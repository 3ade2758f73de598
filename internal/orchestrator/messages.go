package orchestrator

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/orchhub/internal/ctxmgr"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
	"github.com/nextlevelbuilder/orchhub/internal/rag"
)

// composeSystemPrompt builds the effective system prompt of §4.5 step 2:
// flow.systemPrompt ⧺ rag_block ⧺ external_context_block. Ported from the
// teacher's loop_history.go buildMessages, which assembles persona +
// bootstrap + skills context ahead of history; here the three sources are
// flow config, RAG retrieval and Context Manager external-context merge
// instead. A RAG failure never fails the turn (§4.4 Failure policy) — the
// block is simply omitted and the error logged here.
func (o *Orchestrator) composeSystemPrompt(ctx context.Context, req TurnRequest, sess *ctxmgr.Session) (string, rag.Result) {
	var systemPrompt string
	if req.Flow != nil {
		systemPrompt = req.Flow.Config.SystemPrompt
	}

	var ragResult rag.Result
	if req.Flow != nil && o.rag != nil {
		var err error
		ragResult, err = o.rag.Retrieve(ctx, req.Flow.ID, req.UserMessage, nil)
		if err != nil {
			// Failure policy: log and continue without the block.
			slog.Warn("orchestrator.rag_failed", "flow", req.Flow.ID, "error", err)
			ragResult = rag.Result{}
		}
	}
	if ragResult.Block != "" {
		systemPrompt = appendBlock(systemPrompt, ragResult.Block)
	}

	if block := o.sessions.ExternalContextBlock(sess); block != "" {
		systemPrompt = appendBlock(systemPrompt, block)
	}

	return systemPrompt, ragResult
}

func appendBlock(prompt, block string) string {
	if prompt == "" {
		return block
	}
	return prompt + "\n\n" + block
}

// buildMessages assembles the provider message list: system prompt (if
// any) + existing history + the current user message (§4.5 step 3).
func buildMessages(systemPrompt string, history []providers.Message, userMessage string) []providers.Message {
	messages := make([]providers.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, providers.Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, providers.Message{Role: "user", Content: userMessage})
	return messages
}
