package ai

import (
	"fmt"

	"mailmirror-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider          ProviderType // summaries: "gemini", "ollama" or "auto"
	EmbeddingProvider ProviderType // embeddings: "gemini" or "ollama"

	// Gemini config
	GeminiAPIKey         string
	GeminiEmbeddingModel string

	// Ollama config
	OllamaBaseURL    string // e.g., "http://localhost:11434"
	OllamaModel      string // e.g., "llama3", "mistral"
	OllamaEmbedModel string // e.g., "nomic-embed-text"
}

// NewSummarizerService creates a SummarizerService based on the config.
// Switch AI provider by changing cfg.Provider.
func NewSummarizerService(cfg Config) (SummarizerService, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.OllamaEmbedModel), nil

	default:
		// Ollama first, Gemini as fallback when a key is configured
		var geminiSvc SummarizerService
		if cfg.GeminiAPIKey != "" {
			geminiSvc = gemini.NewGeminiService(cfg.GeminiAPIKey)
		}
		return NewFallbackService(geminiSvc, NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.OllamaEmbedModel)), nil
	}
}

// NewEmbedder creates the embedding backend selected by cfg.EmbeddingProvider
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.OllamaEmbedModel), nil
	case ProviderGemini, "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini embeddings")
		}
		embedder, err := NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.GeminiEmbeddingModel)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
