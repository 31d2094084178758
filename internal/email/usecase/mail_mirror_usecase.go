package usecase

import (
	"context"
	"fmt"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/internal/email/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// mailMirrorUsecase implements MailMirrorUsecase interface
type mailMirrorUsecase struct {
	messages  repository.MessageRepository
	sync      *SyncCoordinator
	search    *SearchEngine
	summaries *SummaryWorkerService
}

// NewMailMirrorUsecase creates a new instance of mailMirrorUsecase.
// summaries may be nil when no AI provider is configured.
func NewMailMirrorUsecase(messages repository.MessageRepository, sync *SyncCoordinator, search *SearchEngine, summaries *SummaryWorkerService) MailMirrorUsecase {
	return &mailMirrorUsecase{
		messages:  messages,
		sync:      sync,
		search:    search,
		summaries: summaries,
	}
}

func (u *mailMirrorUsecase) SyncIncremental(ctx context.Context, userID string) ([]*emaildomain.Message, error) {
	return u.sync.SyncIncremental(ctx, userID)
}

// ClampListLimit returns the page size ListMessages actually applies
func ClampListLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (u *mailMirrorUsecase) ListMessages(ctx context.Context, userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	limit = ClampListLimit(limit)
	if offset < 0 {
		offset = 0
	}

	messages, total, err := u.messages.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, total, nil
}

func (u *mailMirrorUsecase) FuzzySearch(ctx context.Context, userID, query string, page, limit int) (*FuzzyResult, error) {
	return u.search.FuzzySearch(ctx, userID, query, page, limit)
}

func (u *mailMirrorUsecase) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]*emaildomain.ScoredMessage, error) {
	return u.search.SemanticSearch(ctx, userID, query, limit)
}

func (u *mailMirrorUsecase) Suggest(ctx context.Context, userID, query string) ([]emaildomain.Suggestion, error) {
	return u.search.Suggest(ctx, userID, query)
}

func (u *mailMirrorUsecase) QueueSummaries(ctx context.Context, userID string, ids []string) (map[string]string, int, error) {
	if u.summaries == nil {
		return nil, 0, fmt.Errorf("summaries are not available: no AI provider configured")
	}
	return u.summaries.QueueMessagesForSummary(ctx, userID, ids)
}
