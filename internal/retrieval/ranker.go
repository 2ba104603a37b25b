// Package retrieval ranks stored chunk embeddings against a query embedding
// by cosine similarity and selects context for prompt assembly.
package retrieval

import (
	"math"
	"sort"

	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/models"
)

const (
	DefaultTopK      = 5
	DefaultThreshold = 0.7
)

// RankOptions tune chunk selection. TopK and Threshold default to the
// platform values; neither has a documented optimum, so both stay
// overridable per call. Threshold is a pointer so an explicit zero (keep
// every positive-similarity chunk) is distinct from unset.
type RankOptions struct {
	TopK      int
	Threshold *float64
}

func DefaultRankOptions() RankOptions {
	return RankOptions{TopK: DefaultTopK, Threshold: Threshold(DefaultThreshold)}
}

// Threshold boxes a cutoff value for RankOptions.
func Threshold(v float64) *float64 {
	return &v
}

func (o RankOptions) threshold() float64 {
	if o.Threshold == nil {
		return DefaultThreshold
	}
	return *o.Threshold
}

// Match is one chunk selected by ranking.
type Match struct {
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Text       string  `json:"text"`
}

// Cosine returns dot(a,b)/(|a||b|) in [-1,1]. Incomparable vectors (absent,
// mismatched dimension, or zero magnitude on either side) score 0 so a
// single malformed vector cannot poison an ordering with NaN.
func Cosine(a, b embedding.Vector) float64 {
	if !a.Compatible(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores each chunk against the query vector, keeps those strictly
// above the threshold, and returns at most TopK matches in descending
// similarity. Ties keep original chunk order. Chunks without a vector are
// non-matching by definition.
func Rank(query embedding.Vector, chunks []models.Chunk, opts RankOptions) []Match {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	threshold := opts.threshold()

	var matches []Match
	for _, c := range chunks {
		sim := Cosine(query, c.Embedding)
		if sim > threshold {
			matches = append(matches, Match{
				ChunkIndex: c.Index,
				Similarity: sim,
				Text:       c.Text,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches
}
