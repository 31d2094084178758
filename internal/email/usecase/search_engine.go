package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/internal/email/repository"
	"mailmirror-backend/pkg/fuzzy"
)

const (
	defaultFuzzyLimit    = 20
	defaultSemanticLimit = 10
	maxSearchLimit       = 100
	historyWriteTimeout  = 5 * time.Second
)

// FuzzyResult is one page of fuzzy matches
type FuzzyResult struct {
	Data        []*emaildomain.ScoredMessage `json:"data"`
	Page        int                          `json:"page"`
	Limit       int                          `json:"limit"`
	TotalResult int64                        `json:"totalResult"`
}

// SearchEngine serves fuzzy, semantic and suggestion queries against the mirror
type SearchEngine struct {
	messages  repository.MessageRepository
	history   repository.QueryHistoryRepository
	embedder  EmbeddingProvider
	threshold float64
	now       func() time.Time

	// detached history writes
	pending sync.WaitGroup
}

// NewSearchEngine creates a search engine. threshold is the minimum trigram
// similarity for a fuzzy match.
func NewSearchEngine(messages repository.MessageRepository, history repository.QueryHistoryRepository, embedder EmbeddingProvider, threshold float64) *SearchEngine {
	if threshold <= 0 {
		threshold = fuzzy.DefaultThreshold
	}
	return &SearchEngine{
		messages:  messages,
		history:   history,
		embedder:  embedder,
		threshold: threshold,
		now:       time.Now,
	}
}

// FuzzySearch pages through messages whose subject or sender is
// trigram-similar to query.
func (e *SearchEngine) FuzzySearch(ctx context.Context, userID, query string, page, limit int) (*FuzzyResult, error) {
	if page < 1 {
		page = 1
	}
	limit = clampLimit(limit, defaultFuzzyLimit)

	result := &FuzzyResult{
		Data:  []*emaildomain.ScoredMessage{},
		Page:  page,
		Limit: limit,
	}

	normalized := fuzzy.Normalize(query)
	if normalized == "" {
		return result, nil
	}

	data, total, err := e.messages.FuzzySearch(ctx, userID, normalized, e.threshold, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy search failed: %w", err)
	}
	if data != nil {
		result.Data = data
	}
	result.TotalResult = total
	return result, nil
}

// SemanticSearch ranks embedded messages by cosine similarity to query. The
// query is recorded in the user's history after a successful search.
func (e *SearchEngine) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]*emaildomain.ScoredMessage, error) {
	query = strings.TrimSpace(query)
	limit = clampLimit(limit, defaultSemanticLimit)
	if query == "" {
		return []*emaildomain.ScoredMessage{}, nil
	}

	vec := e.embedder.Embed(ctx, query)
	if len(vec) == 0 {
		log.Printf("[Search] No embedding for semantic query of user %s", userID)
		return []*emaildomain.ScoredMessage{}, nil
	}

	results, err := e.messages.NearestByEmbedding(ctx, userID, emaildomain.Vector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	if results == nil {
		results = []*emaildomain.ScoredMessage{}
	}

	e.recordQuery(ctx, userID, query)
	return results, nil
}

// recordQuery writes history on a detached goroutine; the caller never waits
// for it and never sees its error.
func (e *SearchEngine) recordQuery(ctx context.Context, userID, query string) {
	usedAt := e.now()
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
		defer cancel()
		if err := e.history.Record(writeCtx, userID, query, usedAt); err != nil {
			log.Printf("[Search] Failed to record query history for user %s: %v", userID, err)
		}
	}()
}

// Wait blocks until detached history writes have finished
func (e *SearchEngine) Wait() {
	e.pending.Wait()
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}
