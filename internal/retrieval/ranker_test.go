package retrieval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/models"
)

func TestCosine(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		v := embedding.Vector{0.3, -0.7, 0.2}
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
	})

	t.Run("symmetry", func(t *testing.T) {
		a := embedding.Vector{1, 2, 3}
		b := embedding.Vector{-2, 0.5, 4}
		assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-12)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		assert.InDelta(t, 0, Cosine(embedding.Vector{1, 0}, embedding.Vector{0, 1}), 1e-12)
	})

	t.Run("opposite vectors score minus one", func(t *testing.T) {
		assert.InDelta(t, -1, Cosine(embedding.Vector{1, 0}, embedding.Vector{-1, 0}), 1e-6)
	})

	t.Run("dimension mismatch scores zero", func(t *testing.T) {
		assert.Zero(t, Cosine(embedding.Vector{1, 0, 0}, embedding.Vector{1, 0}))
	})

	t.Run("absent vector scores zero", func(t *testing.T) {
		assert.Zero(t, Cosine(embedding.Vector{1, 0}, nil))
		assert.Zero(t, Cosine(nil, embedding.Vector{1, 0}))
	})

	t.Run("zero vector scores zero, not NaN", func(t *testing.T) {
		got := Cosine(embedding.Vector{0, 0, 0}, embedding.Vector{1, 2, 3})
		assert.Zero(t, got)
		assert.False(t, math.IsNaN(got))
	})
}

func chunksFromVectors(vectors []embedding.Vector) []models.Chunk {
	chunks := make([]models.Chunk, len(vectors))
	for i, v := range vectors {
		chunks[i] = models.Chunk{Index: i, Text: "chunk", Embedding: v}
	}
	return chunks
}

func TestRank(t *testing.T) {
	t.Run("empty chunk list", func(t *testing.T) {
		assert.Empty(t, Rank(embedding.Vector{1, 0}, nil, DefaultRankOptions()))
	})

	t.Run("threshold and ordering", func(t *testing.T) {
		query := embedding.Vector{1, 0, 0}
		chunks := chunksFromVectors([]embedding.Vector{
			{1, 0, 0},     // sim 1.0
			{0, 1, 0},     // sim 0, below threshold
			{0.9, 0.1, 0}, // sim ≈ 0.994
		})

		matches := Rank(query, chunks, RankOptions{TopK: 2, Threshold: Threshold(0.7)})
		require.Len(t, matches, 2)

		assert.Equal(t, 0, matches[0].ChunkIndex)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
		assert.Equal(t, 2, matches[1].ChunkIndex)
		assert.InDelta(t, 0.9939, matches[1].Similarity, 1e-3)
	})

	t.Run("never returns entries at or below the threshold", func(t *testing.T) {
		query := embedding.Vector{1, 0}
		chunks := chunksFromVectors([]embedding.Vector{
			{0.7, 0.714142842854285}, // sim ≈ 0.70, not strictly above
			{0, 1},
			{-1, 0},
		})

		for _, m := range Rank(query, chunks, DefaultRankOptions()) {
			assert.Greater(t, m.Similarity, 0.7)
		}
	})

	t.Run("top-K bound with descending order", func(t *testing.T) {
		query := embedding.Vector{1, 0}
		var vectors []embedding.Vector
		for i := 0; i < 10; i++ {
			vectors = append(vectors, embedding.Vector{1, float32(i) * 0.05})
		}

		matches := Rank(query, chunksFromVectors(vectors), RankOptions{TopK: 4, Threshold: Threshold(0.7)})
		require.Len(t, matches, 4)
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
		}
	})

	t.Run("ties keep original chunk order", func(t *testing.T) {
		query := embedding.Vector{1, 0}
		chunks := chunksFromVectors([]embedding.Vector{
			{2, 0}, {1, 0}, {3, 0}, // all sim 1.0
		})

		matches := Rank(query, chunks, DefaultRankOptions())
		require.Len(t, matches, 3)
		assert.Equal(t, []int{0, 1, 2}, []int{matches[0].ChunkIndex, matches[1].ChunkIndex, matches[2].ChunkIndex})
	})

	t.Run("zero-vector query matches nothing", func(t *testing.T) {
		query := embedding.Vector{0, 0, 0}
		chunks := chunksFromVectors([]embedding.Vector{{1, 0, 0}, {0, 1, 0}})
		assert.Empty(t, Rank(query, chunks, DefaultRankOptions()))
	})

	t.Run("chunks without vectors are non-matching", func(t *testing.T) {
		query := embedding.Vector{1, 0}
		chunks := []models.Chunk{
			{Index: 0, Text: "no vector", Embedding: nil},
			{Index: 1, Text: "match", Embedding: embedding.Vector{1, 0}},
		}

		matches := Rank(query, chunks, DefaultRankOptions())
		require.Len(t, matches, 1)
		assert.Equal(t, 1, matches[0].ChunkIndex)
	})

	t.Run("explicit zero threshold keeps low-similarity chunks", func(t *testing.T) {
		query := embedding.Vector{1, 0}
		chunks := chunksFromVectors([]embedding.Vector{
			{1, 0},   // sim 1.0
			{1, 2},   // sim ~0.45, below the default cutoff
			{0, 1},   // sim 0, still excluded by the strict comparison
			{-1, 0},  // negative sim, excluded
		})

		matches := Rank(query, chunks, RankOptions{TopK: 10, Threshold: Threshold(0)})
		require.Len(t, matches, 2)
		assert.Equal(t, 0, matches[0].ChunkIndex)
		assert.Equal(t, 1, matches[1].ChunkIndex)
	})

	t.Run("unset threshold falls back to the default cutoff", func(t *testing.T) {
		query := embedding.Vector{1, 0}
		chunks := chunksFromVectors([]embedding.Vector{
			{1, 0}, // sim 1.0
			{1, 2}, // sim ~0.45
		})

		matches := Rank(query, chunks, RankOptions{TopK: 10})
		require.Len(t, matches, 1)
		assert.Equal(t, 0, matches[0].ChunkIndex)
	})

	t.Run("zero options use defaults", func(t *testing.T) {
		query := embedding.Vector{1, 0}
		var vectors []embedding.Vector
		for i := 0; i < 8; i++ {
			vectors = append(vectors, embedding.Vector{1, 0})
		}

		matches := Rank(query, chunksFromVectors(vectors), RankOptions{})
		assert.Len(t, matches, DefaultTopK)
	})
}
