package usecase

import (
	"context"

	emaildomain "mailmirror-backend/internal/email/domain"
)

// MailMirrorUsecase defines the use cases exposed over HTTP
type MailMirrorUsecase interface {
	SyncIncremental(ctx context.Context, userID string) ([]*emaildomain.Message, error)
	ListMessages(ctx context.Context, userID string, limit, offset int) ([]*emaildomain.Message, int64, error)
	FuzzySearch(ctx context.Context, userID, query string, page, limit int) (*FuzzyResult, error)
	SemanticSearch(ctx context.Context, userID, query string, limit int) ([]*emaildomain.ScoredMessage, error)
	Suggest(ctx context.Context, userID, query string) ([]emaildomain.Suggestion, error)
	// QueueSummaries returns stored summaries and how many ids were queued for generation
	QueueSummaries(ctx context.Context, userID string, ids []string) (map[string]string, int, error)
}
