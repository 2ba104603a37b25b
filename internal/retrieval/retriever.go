package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/models"
)

// Source loads a project's documents with their chunk and document vectors
// populated. Implemented by the docstore.
type Source interface {
	DocumentsWithEmbeddings(ctx context.Context, projectID uuid.UUID) ([]models.Document, error)
}

// Result is a Match tied back to its document.
type Result struct {
	DocumentID uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	ChunkIndex int       `json:"chunk_index"`
	Similarity float64   `json:"similarity"`
	Text       string    `json:"text"`
}

// Retriever embeds a query and ranks every chunk in a project against it.
type Retriever struct {
	source   Source
	embedSvc *embedding.Service
}

func NewRetriever(source Source, embedSvc *embedding.Service) *Retriever {
	return &Retriever{source: source, embedSvc: embedSvc}
}

// Search returns the project's most relevant chunks for the query, at most
// opts.TopK across all documents. Documents short enough to have no chunks
// are scored by their whole-document embedding and contribute their full
// content as the match text. Documents whose embeddings never generated
// simply cannot match; retrieval quality degrades silently rather than
// erroring.
func (r *Retriever) Search(ctx context.Context, projectID uuid.UUID, query string, opts RankOptions) ([]Result, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	threshold := opts.threshold()

	queryVec, err := r.embedSvc.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	docs, err := r.source.DocumentsWithEmbeddings(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	var results []Result
	for _, doc := range docs {
		if len(doc.Chunks) == 0 {
			// Chunkless document: fall back to the whole-document vector.
			sim := Cosine(queryVec, doc.Embedding)
			if sim > threshold {
				results = append(results, Result{
					DocumentID: doc.ID,
					Title:      doc.Title,
					ChunkIndex: -1,
					Similarity: sim,
					Text:       doc.Content,
				})
			}
			continue
		}

		for _, m := range Rank(queryVec, doc.Chunks, opts) {
			results = append(results, Result{
				DocumentID: doc.ID,
				Title:      doc.Title,
				ChunkIndex: m.ChunkIndex,
				Similarity: m.Similarity,
				Text:       m.Text,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}
