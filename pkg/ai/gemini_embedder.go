package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const defaultGeminiEmbeddingModel = "text-embedding-004"

// GeminiEmbedder implements Embedder with chroma-go's Gemini embedding function
type GeminiEmbedder struct {
	embedFunc *gemini.GeminiEmbeddingFunction
}

// NewGeminiEmbedder creates a Gemini embedder for the given model
func NewGeminiEmbedder(apiKey, model string) (*GeminiEmbedder, error) {
	if model == "" {
		model = defaultGeminiEmbeddingModel
	}
	// the embedding function reads its key from the environment
	if apiKey != "" {
		os.Setenv("GEMINI_API_KEY", apiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel(embeddings.EmbeddingModel(model)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}
	return &GeminiEmbedder{embedFunc: embedFunc}, nil
}

// Embed implements Embedder
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := g.embedFunc.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if embedding == nil {
		return nil, fmt.Errorf("gemini returned no embedding")
	}
	return embedding.ContentAsFloat32(), nil
}
