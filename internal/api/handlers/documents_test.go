package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/models"
)

func TestDocumentSerialization(t *testing.T) {
	doc := &models.Document{
		ID:        uuid.New(),
		Title:     "handbook",
		Type:      models.DocTypeText,
		Status:    models.DocStatusReady,
		Embedding: embedding.Vector{0.1, 0.2},
		Chunks: []models.Chunk{
			{Index: 0, Text: "first", Start: 0, End: 5, Embedding: embedding.Vector{0.3, 0.4}},
			{Index: 1, Text: "second", Start: 5, End: 11, Embedding: nil},
		},
	}

	t.Run("default read hides vectors", func(t *testing.T) {
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "embedding")
	})

	t.Run("opt-in read carries document and chunk vectors", func(t *testing.T) {
		data, err := json.Marshal(withEmbeddings(doc))
		require.NoError(t, err)

		var got struct {
			Embedding []float32 `json:"embedding"`
			Chunks    []struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			} `json:"chunks"`
		}
		require.NoError(t, json.Unmarshal(data, &got))

		assert.Equal(t, []float32{0.1, 0.2}, got.Embedding)
		require.Len(t, got.Chunks, 2)
		assert.Equal(t, []float32{0.3, 0.4}, got.Chunks[0].Embedding)
		assert.Nil(t, got.Chunks[1].Embedding, "a chunk whose embedding never generated stays vectorless")
	})
}
