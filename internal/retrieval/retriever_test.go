package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/llm"
	"github.com/vkoval/docuchat/internal/models"
)

type stubClient struct {
	vec  embedding.Vector
	fail bool
}

func (s *stubClient) Embed(context.Context, string) (embedding.Vector, error) {
	if s.fail {
		return nil, fmt.Errorf("embed: %w", llm.ErrProviderUnavailable)
	}
	return s.vec, nil
}

type stubSource struct {
	docs []models.Document
	err  error
}

func (s *stubSource) DocumentsWithEmbeddings(context.Context, uuid.UUID) ([]models.Document, error) {
	return s.docs, s.err
}

func TestRetrieverSearch(t *testing.T) {
	projectID := uuid.New()

	t.Run("ranks chunks across documents", func(t *testing.T) {
		docA := models.Document{
			ID:    uuid.New(),
			Title: "handbook",
			Chunks: []models.Chunk{
				{Index: 0, Text: "a0", Embedding: embedding.Vector{1, 0}},
				{Index: 1, Text: "a1", Embedding: embedding.Vector{0, 1}},
			},
		}
		docB := models.Document{
			ID:    uuid.New(),
			Title: "faq",
			Chunks: []models.Chunk{
				{Index: 0, Text: "b0", Embedding: embedding.Vector{0.9, 0.1}},
			},
		}

		r := NewRetriever(&stubSource{docs: []models.Document{docA, docB}},
			embedding.NewService(&stubClient{vec: embedding.Vector{1, 0}}))

		results, err := r.Search(context.Background(), projectID, "query", DefaultRankOptions())
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, docA.ID, results[0].DocumentID)
		assert.Equal(t, "a0", results[0].Text)
		assert.Equal(t, docB.ID, results[1].DocumentID)
		assert.Equal(t, "b0", results[1].Text)
	})

	t.Run("chunkless document falls back to its document vector", func(t *testing.T) {
		doc := models.Document{
			ID:        uuid.New(),
			Title:     "note",
			Content:   "short note content",
			Embedding: embedding.Vector{1, 0},
		}

		r := NewRetriever(&stubSource{docs: []models.Document{doc}},
			embedding.NewService(&stubClient{vec: embedding.Vector{1, 0}}))

		results, err := r.Search(context.Background(), projectID, "query", DefaultRankOptions())
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, -1, results[0].ChunkIndex)
		assert.Equal(t, "short note content", results[0].Text)
	})

	t.Run("document without any embedding never matches", func(t *testing.T) {
		doc := models.Document{ID: uuid.New(), Content: "unembedded"}

		r := NewRetriever(&stubSource{docs: []models.Document{doc}},
			embedding.NewService(&stubClient{vec: embedding.Vector{1, 0}}))

		results, err := r.Search(context.Background(), projectID, "query", DefaultRankOptions())
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("top-K bounds the merged result set", func(t *testing.T) {
		var docs []models.Document
		for i := 0; i < 4; i++ {
			docs = append(docs, models.Document{
				ID: uuid.New(),
				Chunks: []models.Chunk{
					{Index: 0, Text: "x", Embedding: embedding.Vector{1, 0}},
					{Index: 1, Text: "y", Embedding: embedding.Vector{1, 0.01}},
				},
			})
		}

		r := NewRetriever(&stubSource{docs: docs},
			embedding.NewService(&stubClient{vec: embedding.Vector{1, 0}}))

		results, err := r.Search(context.Background(), projectID, "query", RankOptions{TopK: 3, Threshold: Threshold(0.7)})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("query embedding failure surfaces", func(t *testing.T) {
		r := NewRetriever(&stubSource{}, embedding.NewService(&stubClient{fail: true}))

		_, err := r.Search(context.Background(), projectID, "query", DefaultRankOptions())
		assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	})

	t.Run("source failure surfaces", func(t *testing.T) {
		r := NewRetriever(&stubSource{err: fmt.Errorf("connection refused")},
			embedding.NewService(&stubClient{vec: embedding.Vector{1, 0}}))

		_, err := r.Search(context.Background(), projectID, "query", DefaultRankOptions())
		assert.Error(t, err)
	})
}
