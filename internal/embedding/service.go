// Package embedding generates document and chunk vectors through a remote
// embedding model, degrading to absent vectors when the provider fails.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vkoval/docuchat/internal/llm"
)

// DocPrefixLen bounds the whole-document embedding input. Only the first
// 1000 bytes of content are embedded, which biases document-level retrieval
// toward openings; kept for compatibility with stored embeddings.
const DocPrefixLen = 1000

// Client is the narrow embedding call the service depends on. It is
// satisfied by GatewayClient in production and by fakes in tests.
type Client interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// GatewayClient adapts the llm gateway to the Client interface.
type GatewayClient struct {
	gateway llm.Gateway
	model   string
}

func NewGatewayClient(gw llm.Gateway, model string) *GatewayClient {
	if model == "" {
		model = llm.DefaultEmbeddingModel
	}
	return &GatewayClient{gateway: gw, model: model}
}

func (c *GatewayClient) Embed(ctx context.Context, text string) (Vector, error) {
	resp, err := c.gateway.Embed(ctx, llm.EmbeddingRequest{
		Model: c.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", llm.ErrProviderUnavailable)
	}
	return Vector(resp.Embeddings[0]), nil
}

// Service orchestrates embedding generation for ingestion and queries.
type Service struct {
	client      Client
	concurrency int
}

type Option func(*Service)

// WithConcurrency bounds the number of in-flight provider calls during
// chunk embedding. The default of 1 keeps calls sequential.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(client Client, opts ...Option) *Service {
	s := &Service{client: client, concurrency: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmbedQuery embeds query text. Unlike ingestion there is no degraded mode:
// without a query vector there is nothing to rank, so the error surfaces.
func (s *Service) EmbedQuery(ctx context.Context, text string) (Vector, error) {
	vec, err := s.client.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// EmbedDocument embeds the first DocPrefixLen bytes of content. A provider
// failure degrades to a nil vector; the document stays usable for its raw
// text.
func (s *Service) EmbedDocument(ctx context.Context, content string) Vector {
	prefix := content
	if len(prefix) > DocPrefixLen {
		prefix = prefix[:DocPrefixLen]
	}

	vec, err := s.client.Embed(ctx, prefix)
	if err != nil {
		slog.Warn("document embedding failed, storing without vector", "error", err)
		return nil
	}
	return vec
}

// EmbedEach embeds every text independently and returns one vector per
// input, in input order. A failed call leaves a nil vector at that position
// and never aborts the batch; the second return value counts failures.
func (s *Service) EmbedEach(ctx context.Context, texts []string) ([]Vector, int) {
	vectors := make([]Vector, len(texts))
	if len(texts) == 0 {
		return vectors, 0
	}

	var (
		mu     sync.Mutex
		failed int
		wg     sync.WaitGroup
	)
	sem := make(chan struct{}, s.concurrency)

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()

			vec, err := s.client.Embed(ctx, text)
			if err != nil {
				slog.Warn("chunk embedding failed, storing without vector",
					"chunk_index", i, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			vectors[i] = vec
		}(i, text)
	}
	wg.Wait()

	return vectors, failed
}
