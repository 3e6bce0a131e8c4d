package similarity

import (
	"context"
	"fmt"

	"github.com/robalobadob/semantle/internal/cache"
)

// Embedder turns a word into a vector. Implemented by remote embedding
// services (see OpenAIEmbedder).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingProvider scores words by cosine similarity of embeddings fetched
// from an Embedder. It has an open vocabulary: every non-empty word can be
// embedded. Embeddings are cached, so each word is fetched at most once while
// it stays in the cache.
type EmbeddingProvider struct {
	name     string
	embedder Embedder
	vectors  *cache.LoaderCache[string, []float32]
}

// NewEmbeddingProvider wraps an Embedder. cacheSize bounds the number of cached vectors.
func NewEmbeddingProvider(name string, e Embedder, cacheSize int) (*EmbeddingProvider, error) {
	c, err := cache.New[string, []float32](cacheSize, func(s string) string { return s })
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &EmbeddingProvider{name: name, embedder: e, vectors: c}, nil
}

// Name implements Provider.
func (p *EmbeddingProvider) Name() string { return p.name }

// Similarity implements Provider.
func (p *EmbeddingProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := p.embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := p.embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return Cosine(va, vb)
}

func (p *EmbeddingProvider) embed(ctx context.Context, word string) ([]float32, error) {
	if word == "" {
		return nil, &UnknownWordError{Provider: p.name}
	}
	v, err := p.vectors.Get(ctx, word, p.embedder.Embed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, p.name, err)
	}
	return v, nil
}

var _ Provider = (*EmbeddingProvider)(nil)
