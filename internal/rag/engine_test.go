package rag

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/orchhub/internal/embedder"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

type fakeKBStore struct {
	kbs      map[uuid.UUID]*store.KnowledgeBase
	bindings map[uuid.UUID][]store.KBBinding
}

func (f *fakeKBStore) Get(ctx context.Context, id uuid.UUID) (*store.KnowledgeBase, error) {
	return f.kbs[id], nil
}

func (f *fakeKBStore) BindingsForFlow(ctx context.Context, flowID uuid.UUID) ([]store.KBBinding, error) {
	return f.bindings[flowID], nil
}

type fakeEmbeddingStore struct {
	searchResults map[uuid.UUID][]store.ScoredChunk
}

func (f *fakeEmbeddingStore) InsertDocument(ctx context.Context, doc *store.Document) error { return nil }
func (f *fakeEmbeddingStore) SetDocumentStatus(ctx context.Context, id uuid.UUID, status store.DocumentStatus, errMsg string) error {
	return nil
}
func (f *fakeEmbeddingStore) InsertChunks(ctx context.Context, chunks []store.EmbeddingChunk) error {
	return nil
}
func (f *fakeEmbeddingStore) Search(ctx context.Context, kbID uuid.UUID, query []float32, threshold float64, topK int) ([]store.ScoredChunk, error) {
	return f.searchResults[kbID], nil
}

type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dim), nil
}
func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f fakeEmbedder) Dimension() int { return f.dim }
func (f fakeEmbedder) Model() string  { return "fake-model" }

func TestRetrieve_EmptyQueryShortCircuits(t *testing.T) {
	e := NewEngine(&fakeKBStore{}, &fakeEmbeddingStore{}, embedder.NewRegistry())
	res, err := e.Retrieve(context.Background(), uuid.New(), "   ", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Block)
	assert.Empty(t, res.Chunks)
}

func TestRetrieve_MergesAndRanksAcrossKBs(t *testing.T) {
	flowID := uuid.New()
	kb1 := &store.KnowledgeBase{ID: uuid.New(), Name: "kb1", EmbeddingModel: "fake-model", Active: true}
	kb2 := &store.KnowledgeBase{ID: uuid.New(), Name: "kb2", EmbeddingModel: "fake-model", Active: true}

	kbStore := &fakeKBStore{
		kbs: map[uuid.UUID]*store.KnowledgeBase{kb1.ID: kb1, kb2.ID: kb2},
		bindings: map[uuid.UUID][]store.KBBinding{
			flowID: {
				{FlowID: flowID, KnowledgeBaseID: kb1.ID, Priority: 1, SimilarityThreshold: 0.5, MaxResults: 5},
				{FlowID: flowID, KnowledgeBaseID: kb2.ID, Priority: 2, SimilarityThreshold: 0.5, MaxResults: 5},
			},
		},
	}
	embeddings := &fakeEmbeddingStore{
		searchResults: map[uuid.UUID][]store.ScoredChunk{
			kb1.ID: {{Chunk: store.EmbeddingChunk{Content: "a"}, DocumentTitle: "doc a", Similarity: 0.6}},
			kb2.ID: {{Chunk: store.EmbeddingChunk{Content: "b"}, DocumentTitle: "doc b", Similarity: 0.9}},
		},
	}
	reg := embedder.NewRegistry()
	reg.Register("fake-model", fakeEmbedder{dim: 3})

	e := NewEngine(kbStore, embeddings, reg)
	res, err := e.Retrieve(context.Background(), flowID, "hello world", nil)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	// kb1 (priority 1) must sort before kb2 (priority 2) despite lower similarity.
	assert.Equal(t, "doc a", res.Chunks[0].DocumentTitle)
}

func TestFormatBlock_AttributesKBAndMetadata(t *testing.T) {
	chunks := []store.ScoredChunk{
		{
			Chunk:         store.EmbeddingChunk{Content: "refund policy text", Metadata: map[string]any{"page": 2}},
			DocumentTitle: "Refunds FAQ",
			KBName:        "support-docs",
		},
	}
	block := formatBlock(chunks)
	assert.Contains(t, block, "[Source 1, KB=support-docs] Refunds FAQ (page=2) / refund policy text")
}

func TestFormatBlock_OmitsMetadataParensWhenEmpty(t *testing.T) {
	chunks := []store.ScoredChunk{
		{Chunk: store.EmbeddingChunk{Content: "c"}, DocumentTitle: "doc", KBName: "kb"},
	}
	block := formatBlock(chunks)
	assert.Contains(t, block, "[Source 1, KB=kb] doc / c")
}

func TestRetrieve_MismatchedEmbeddingModelsIsConfigError(t *testing.T) {
	flowID := uuid.New()
	kb1 := &store.KnowledgeBase{ID: uuid.New(), EmbeddingModel: "model-a", Active: true}
	kb2 := &store.KnowledgeBase{ID: uuid.New(), EmbeddingModel: "model-b", Active: true}

	kbStore := &fakeKBStore{
		kbs: map[uuid.UUID]*store.KnowledgeBase{kb1.ID: kb1, kb2.ID: kb2},
		bindings: map[uuid.UUID][]store.KBBinding{
			flowID: {
				{FlowID: flowID, KnowledgeBaseID: kb1.ID, Priority: 1},
				{FlowID: flowID, KnowledgeBaseID: kb2.ID, Priority: 2},
			},
		},
	}

	e := NewEngine(kbStore, &fakeEmbeddingStore{}, embedder.NewRegistry())
	_, err := e.Retrieve(context.Background(), flowID, "hello world", nil)
	assert.Error(t, err)
}
