package ai

import (
	"context"
	"log"
)

// EmbeddingProvider adapts an Embedder to the mirror's contract: errors are
// logged and reported as an empty vector.
type EmbeddingProvider struct {
	embedder Embedder
}

// NewEmbeddingProvider wraps embedder. A nil embedder always yields empty vectors.
func NewEmbeddingProvider(embedder Embedder) *EmbeddingProvider {
	return &EmbeddingProvider{embedder: embedder}
}

// Embed returns the embedding of text, or nil when the provider failed
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) []float32 {
	if p.embedder == nil || text == "" {
		return nil
	}
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("[AI] Embedding failed: %v", err)
		return nil
	}
	return vec
}
