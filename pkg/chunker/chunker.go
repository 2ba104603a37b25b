// Package chunker splits document content into fixed-size, non-overlapping
// chunks tagged with their byte offsets into the original content.
package chunker

// DefaultChunkSize is the stride used when Options.ChunkSize is zero.
const DefaultChunkSize = 1000

type Options struct {
	ChunkSize int // chunk stride in bytes
}

func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize}
}

// Chunk is one contiguous slice of the source content. Start is inclusive,
// End exclusive, and content[Start:End] == Text.
type Chunk struct {
	Text  string
	Index int
	Start int
	End   int
}

// Split tiles content into chunks of opts.ChunkSize bytes with no gaps and
// no overlap. The final chunk is clamped to the end of content. Content that
// fits within a single chunk produces no chunks at all: callers rely on the
// whole-document embedding for short documents.
func Split(content string, opts Options) []Chunk {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	if len(content) <= size {
		return nil
	}

	var chunks []Chunk
	for start := 0; start < len(content); start += size {
		end := start + size
		if end > len(content) {
			end = len(content)
		}
		chunks = append(chunks, Chunk{
			Text:  content[start:end],
			Index: len(chunks),
			Start: start,
			End:   end,
		})
	}
	return chunks
}
