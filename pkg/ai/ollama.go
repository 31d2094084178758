package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaService implements SummarizerService and Embedder using a local Ollama server
type OllamaService struct {
	baseURL    string
	model      string
	embedModel string
	client     *http.Client
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model, embedModel string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	return &OllamaService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		embedModel: embedModel,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// SummarizeEmail implements SummarizerService
func (o *OllamaService) SummarizeEmail(ctx context.Context, emailText string) (string, error) {
	payload := map[string]interface{}{
		"model":  o.model,
		"prompt": summaryPrompt(emailText),
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.3,
			"num_predict": 100, // Shorter output
		},
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := o.post(ctx, "/api/generate", payload, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Response), nil
}

// Embed implements Embedder
func (o *OllamaService) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model":  o.embedModel,
		"prompt": text,
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := o.post(ctx, "/api/embeddings", payload, &result); err != nil {
		return nil, err
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return result.Embedding, nil
}

func (o *OllamaService) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func summaryPrompt(emailText string) string {
	return fmt.Sprintf(`You are an email assistant. Summarize the email below so the reader can decide quickly what to do.

RULES:
- Line 1: the main point in one short sentence
- Line 2 (optional): "Action: ..." or "Deadline: ..." if the email asks for something
- Promotional email: only write "Promotion from <company>"
- At most 2 lines, no trailing "..."

EMAIL:
%s

SUMMARY:`, emailText)
}
