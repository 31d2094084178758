package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService routes summaries to Ollama first (local, free) and falls
// back to Gemini
type FallbackService struct {
	gemini SummarizerService
	ollama SummarizerService
}

// NewFallbackService creates a new fallback service with both providers.
// Either may be nil.
func NewFallbackService(gemini SummarizerService, ollama SummarizerService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(net.Error); ok {
		return true
	}
	return containsAny(err.Error(), "connection refused", "no such host", "network is unreachable", "connection reset", "timeout", "dial tcp", "EOF")
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(), "429", "quota", "rate limit", "too many requests", "resource exhausted")
}

func containsAny(s string, indicators ...string) bool {
	s = strings.ToLower(s)
	for _, indicator := range indicators {
		if strings.Contains(s, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

// SummarizeEmail tries Ollama first, falls back to Gemini on any error
func (f *FallbackService) SummarizeEmail(ctx context.Context, emailText string) (string, error) {
	if f.ollama != nil {
		result, err := f.ollama.SummarizeEmail(ctx, emailText)
		if err == nil {
			return result, nil
		}
		if isConnectionError(err) {
			log.Printf("[AI] Ollama connection failed: %v, falling back to Gemini", err)
		} else {
			log.Printf("[AI] Ollama error: %v, falling back to Gemini", err)
		}
	}

	if f.gemini != nil {
		result, err := f.gemini.SummarizeEmail(ctx, emailText)
		if err == nil {
			return result, nil
		}

		// Ollama may have had a transient issue
		if isQuotaError(err) && f.ollama != nil {
			log.Printf("[AI] Gemini quota exhausted: %v, retrying Ollama", err)
			return f.ollama.SummarizeEmail(ctx, emailText)
		}
		return "", fmt.Errorf("gemini summarization failed: %w", err)
	}

	return "", fmt.Errorf("no AI provider available for summarization")
}
