package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("content at or below chunk size produces no chunks", func(t *testing.T) {
		assert.Nil(t, Split("", DefaultOptions()))
		assert.Nil(t, Split(strings.Repeat("a", 500), DefaultOptions()))
		assert.Nil(t, Split(strings.Repeat("a", 1000), DefaultOptions()))
	})

	t.Run("2400 bytes tiles into three chunks", func(t *testing.T) {
		content := strings.Repeat("x", 2400)
		chunks := Split(content, DefaultOptions())
		require.Len(t, chunks, 3)

		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 1000, chunks[0].End)
		assert.Equal(t, 1000, chunks[1].Start)
		assert.Equal(t, 2000, chunks[1].End)
		assert.Equal(t, 2000, chunks[2].Start)
		assert.Equal(t, 2400, chunks[2].End)
	})

	t.Run("chunks reconstruct content exactly", func(t *testing.T) {
		content := strings.Repeat("abcdefghij", 357) // 3570 bytes
		chunks := Split(content, Options{ChunkSize: 256})

		var sb strings.Builder
		for _, c := range chunks {
			sb.WriteString(c.Text)
		}
		assert.Equal(t, content, sb.String())
	})

	t.Run("adjacent chunks share a boundary", func(t *testing.T) {
		content := strings.Repeat("z", 5001)
		chunks := Split(content, DefaultOptions())
		require.NotEmpty(t, chunks)

		for i := 1; i < len(chunks); i++ {
			assert.Equal(t, chunks[i-1].End, chunks[i].Start)
		}
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, len(content), chunks[len(chunks)-1].End)
	})

	t.Run("indices are sequential", func(t *testing.T) {
		chunks := Split(strings.Repeat("q", 4500), DefaultOptions())
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
		}
	})

	t.Run("text matches offsets", func(t *testing.T) {
		content := strings.Repeat("0123456789", 250) // 2500 bytes
		chunks := Split(content, DefaultOptions())
		for _, c := range chunks {
			assert.Equal(t, content[c.Start:c.End], c.Text)
		}
	})

	t.Run("zero chunk size falls back to default", func(t *testing.T) {
		chunks := Split(strings.Repeat("a", 1500), Options{})
		require.Len(t, chunks, 2)
		assert.Equal(t, DefaultChunkSize, chunks[0].End)
	})
}
