package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/docuchat/internal/llm"
)

type fakeClient struct {
	mu       sync.Mutex
	calls    []string
	failFor  map[string]bool
	failAll  bool
	response Vector
}

func (f *fakeClient) Embed(_ context.Context, text string) (Vector, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.failAll || f.failFor[text] {
		return nil, fmt.Errorf("embed: %w", llm.ErrProviderUnavailable)
	}
	if f.response != nil {
		return f.response, nil
	}
	return Vector{1, 0, 0}, nil
}

func TestEmbedQuery(t *testing.T) {
	t.Run("returns the provider vector", func(t *testing.T) {
		svc := NewService(&fakeClient{response: Vector{0.5, 0.5}})
		vec, err := svc.EmbedQuery(context.Background(), "what is the refund policy")
		require.NoError(t, err)
		assert.Equal(t, Vector{0.5, 0.5}, vec)
	})

	t.Run("provider failure surfaces", func(t *testing.T) {
		svc := NewService(&fakeClient{failAll: true})
		_, err := svc.EmbedQuery(context.Background(), "anything")
		assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	})
}

func TestEmbedDocument(t *testing.T) {
	t.Run("truncates to the document prefix", func(t *testing.T) {
		client := &fakeClient{}
		svc := NewService(client)

		content := strings.Repeat("a", 2500)
		vec := svc.EmbedDocument(context.Background(), content)

		require.NotNil(t, vec)
		require.Len(t, client.calls, 1)
		assert.Len(t, client.calls[0], DocPrefixLen)
	})

	t.Run("short content is passed whole", func(t *testing.T) {
		client := &fakeClient{}
		svc := NewService(client)

		svc.EmbedDocument(context.Background(), "short document")
		require.Len(t, client.calls, 1)
		assert.Equal(t, "short document", client.calls[0])
	})

	t.Run("failure degrades to nil", func(t *testing.T) {
		svc := NewService(&fakeClient{failAll: true})
		assert.Nil(t, svc.EmbedDocument(context.Background(), "whatever"))
	})
}

func TestEmbedEach(t *testing.T) {
	t.Run("one vector per input in order", func(t *testing.T) {
		svc := NewService(&fakeClient{})
		vectors, failed := svc.EmbedEach(context.Background(), []string{"a", "b", "c"})

		assert.Zero(t, failed)
		require.Len(t, vectors, 3)
		for _, v := range vectors {
			assert.NotNil(t, v)
		}
	})

	t.Run("partial failure keeps the rest", func(t *testing.T) {
		client := &fakeClient{failFor: map[string]bool{"b": true, "d": true}}
		svc := NewService(client)

		vectors, failed := svc.EmbedEach(context.Background(), []string{"a", "b", "c", "d", "e"})

		assert.Equal(t, 2, failed)
		require.Len(t, vectors, 5)
		assert.NotNil(t, vectors[0])
		assert.Nil(t, vectors[1])
		assert.NotNil(t, vectors[2])
		assert.Nil(t, vectors[3])
		assert.NotNil(t, vectors[4])
	})

	t.Run("empty input", func(t *testing.T) {
		svc := NewService(&fakeClient{})
		vectors, failed := svc.EmbedEach(context.Background(), nil)
		assert.Empty(t, vectors)
		assert.Zero(t, failed)
	})

	t.Run("bounded fan-out preserves order", func(t *testing.T) {
		svc := NewService(&fakeClient{}, WithConcurrency(4))
		texts := make([]string, 20)
		for i := range texts {
			texts[i] = fmt.Sprintf("chunk %d", i)
		}

		vectors, failed := svc.EmbedEach(context.Background(), texts)
		assert.Zero(t, failed)
		require.Len(t, vectors, 20)
		for i, v := range vectors {
			assert.NotNil(t, v, "vector %d", i)
		}
	})
}

func TestVectorCompatible(t *testing.T) {
	assert.True(t, Vector{1, 2, 3}.Compatible(Vector{4, 5, 6}))
	assert.False(t, Vector{1, 2, 3}.Compatible(Vector{1, 2}))
	assert.False(t, Vector(nil).Compatible(Vector{1}))
	assert.False(t, Vector{1}.Compatible(nil))
}
