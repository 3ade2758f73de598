// Package rag implements the RAG Engine (§4.4): resolves the knowledge
// bases bound to a flow, embeds the query, runs per-KB cosine-similarity
// search, merges and ranks candidates, and formats a prompt-ready context
// block. Grounded on kadirpekel-hector's v2/rag/search.go SearchEngine
// (query processing/validation, empty-query short-circuit) and
// v2/embedder/factory.go's embedder-by-model-tag pattern, adapted to
// pgvector-backed search through internal/store instead of hector's
// pluggable vector.Provider (the Store is specified as relational+vector,
// §2, not a dedicated vector DB — see DESIGN.md).
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/embedder"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// Query length bounds, ported from hector's MinQueryLength/MaxQueryLength.
const (
	minQueryLength = 2
	maxQueryLength = 10000

	defaultSimilarityThreshold = 0.70
	defaultMaxResultsPerKB     = 5
	defaultTopN                = 8
)

// Engine retrieves KB chunks relevant to a query and formats them into a
// context block (§4.4).
type Engine struct {
	kbs        store.KnowledgeBaseStore
	embeddings store.EmbeddingStore
	embedders  *embedder.Registry
}

func NewEngine(kbs store.KnowledgeBaseStore, embeddings store.EmbeddingStore, embedders *embedder.Registry) *Engine {
	return &Engine{kbs: kbs, embeddings: embeddings, embedders: embedders}
}

// Result is the RAG Engine's output for one turn: the formatted block to
// append to the system prompt, and the raw chunks it was built from (for
// tracing/analytics).
type Result struct {
	Block  string
	Chunks []store.ScoredChunk
}

// Retrieve runs the §4.4 algorithm for flowID against query, restricted to
// allowedKBIDs when non-empty (a caller-supplied subset, step 1). A RAG
// failure must never fail the turn (§4.4 Failure policy) — callers should
// log the error and continue with Result{} (an empty block).
func (e *Engine) Retrieve(ctx context.Context, flowID uuid.UUID, query string, allowedKBIDs []uuid.UUID) (Result, error) {
	query = processQuery(query)
	if query == "" {
		// Step 7: empty query short-circuits — never embed an empty string.
		return Result{}, nil
	}
	if err := validateQuery(query); err != nil {
		return Result{}, err
	}

	bindings, err := e.kbs.BindingsForFlow(ctx, flowID)
	if err != nil {
		return Result{}, fmt.Errorf("rag: resolve kb bindings: %w", err)
	}
	bindings = filterActive(bindings, allowedKBIDs)
	if len(bindings) == 0 {
		return Result{}, nil
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].Priority < bindings[j].Priority })

	kbsByID, embedModel, err := e.resolveKBs(ctx, bindings)
	if err != nil {
		return Result{}, err
	}

	emb, err := e.embedders.Get(embedModel)
	if err != nil {
		return Result{}, fmt.Errorf("rag: no embedder for model %q: %w", embedModel, err)
	}
	queryVector, err := emb.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("rag: embed query: %w", err)
	}

	var all []store.ScoredChunk
	for _, binding := range bindings {
		kb := kbsByID[binding.KnowledgeBaseID]
		if kb == nil {
			continue
		}
		threshold := binding.SimilarityThreshold
		if threshold <= 0 {
			threshold = defaultSimilarityThreshold
		}
		maxResults := binding.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResultsPerKB
		}

		chunks, err := e.embeddings.Search(ctx, kb.ID, queryVector, threshold, maxResults)
		if err != nil {
			slog.Warn("rag.search_failed", "kb", kb.Name, "error", err)
			continue
		}
		for i := range chunks {
			chunks[i].BindingPriority = binding.Priority
		}
		all = append(all, chunks...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].BindingPriority != all[j].BindingPriority {
			return all[i].BindingPriority < all[j].BindingPriority
		}
		return all[i].Similarity > all[j].Similarity
	})
	if len(all) > defaultTopN {
		all = all[:defaultTopN]
	}

	return Result{Block: formatBlock(all), Chunks: all}, nil
}

// resolveKBs fetches every bound KB and enforces §4.4 step 2: all KBs
// assigned to a flow must share one embedding model.
func (e *Engine) resolveKBs(ctx context.Context, bindings []store.KBBinding) (map[uuid.UUID]*store.KnowledgeBase, string, error) {
	kbsByID := make(map[uuid.UUID]*store.KnowledgeBase, len(bindings))
	var model string
	for _, b := range bindings {
		kb, err := e.kbs.Get(ctx, b.KnowledgeBaseID)
		if err != nil {
			return nil, "", fmt.Errorf("rag: load kb %s: %w", b.KnowledgeBaseID, err)
		}
		if kb == nil || !kb.Active {
			continue
		}
		if model == "" {
			model = kb.EmbeddingModel
		} else if kb.EmbeddingModel != model {
			return nil, "", fmt.Errorf("rag: flow's knowledge bases use mismatched embedding models (%q vs %q)", model, kb.EmbeddingModel)
		}
		kbsByID[kb.ID] = kb
	}
	return kbsByID, model, nil
}

func filterActive(bindings []store.KBBinding, allowed []uuid.UUID) []store.KBBinding {
	if len(allowed) == 0 {
		return bindings
	}
	allowedSet := make(map[uuid.UUID]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}
	out := bindings[:0]
	for _, b := range bindings {
		if allowedSet[b.KnowledgeBaseID] {
			out = append(out, b)
		}
	}
	return out
}

// formatBlock renders chunks into the §4.4 step 6 "[Source i] {title} /
// {content}" form, delimited by a stable separator. Each source is
// attributed to the knowledge base it came from, since a turn can draw
// chunks from more than one bound KB (§4.4 step 1), and any chunk-level
// metadata (page number, section heading, URL) the ingestion pipeline
// attached is folded in after the title so the model can cite it.
func formatBlock(chunks []store.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("--- KNOWLEDGE BASE CONTEXT ---\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[Source %d, KB=%s] %s%s / %s\n", i+1, c.KBName, c.DocumentTitle, formatMetadata(c.Chunk.Metadata), c.Chunk.Content)
	}
	sb.WriteString("--- END KNOWLEDGE BASE CONTEXT ---")
	return sb.String()
}

// formatMetadata renders a chunk's metadata bag as a parenthesized,
// deterministically-ordered suffix, or "" when there is none.
func formatMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, meta[k])
	}
	sb.WriteString(")")
	return sb.String()
}

// processQuery normalizes a query string, ported from hector's
// SearchEngine.processQuery.
func processQuery(query string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(query)), " ")
}

// validateQuery enforces the query length bounds, ported from hector's
// SearchEngine.validateQuery.
func validateQuery(query string) error {
	if len(query) < minQueryLength {
		return fmt.Errorf("rag: query too short (min %d characters)", minQueryLength)
	}
	if len(query) > maxQueryLength {
		return fmt.Errorf("rag: query too long (max %d characters)", maxQueryLength)
	}
	return nil
}
