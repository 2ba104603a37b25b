package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// GatewayOptions carries every credential and default the gateway needs.
// It is assembled once by the caller (from env config or the admin-stored
// provider credentials) and passed in; the gateway holds no ambient state.
type GatewayOptions struct {
	OpenAIKey        string
	AnthropicKey     string
	DefaultProvider  string
	FallbackProvider string
	EmbeddingModel   string
	MaxRetries       int
}

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	fallbackProvider string
	maxRetries       int
}

func NewGateway(opts GatewayOptions) Gateway {
	g := &gateway{
		providers:        make(map[string]Provider),
		defaultProvider:  opts.DefaultProvider,
		fallbackProvider: opts.FallbackProvider,
		maxRetries:       opts.MaxRetries,
	}

	if opts.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(opts.OpenAIKey)
	}
	if opts.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(opts.AnthropicKey)
	}

	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q not configured", ErrProviderUnavailable, name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	resp, err := g.chatWithRetry(ctx, providerName, req)
	if err != nil && g.fallbackProvider != "" && g.fallbackProvider != providerName {
		slog.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		return g.chatWithRetry(ctx, g.fallbackProvider, req)
	}
	return resp, err
}

func (g *gateway) chatWithRetry(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying chat call", "provider", providerName, "attempt", attempt)
		}

		resp, err := p.ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", providerName, lastErr)
}

func (g *gateway) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	return p.ChatCompletionStream(ctx, req)
}

// Embed is not retried: the embedding subsystem degrades on failure rather
// than holding an upload request through backoff cycles.
func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = "openai"
	}

	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	return p.GenerateEmbedding(ctx, req)
}

func (g *gateway) ListModels() []ModelInfo {
	var infos []ModelInfo
	for name, p := range g.providers {
		for _, m := range p.Models() {
			t := "chat"
			if name == "openai" && (m == DefaultEmbeddingModel || m == "text-embedding-3-large") {
				t = "embedding"
			}
			infos = append(infos, ModelInfo{Provider: name, Model: m, Type: t})
		}
	}
	return infos
}
