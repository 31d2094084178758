package repository

import (
	"context"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"
)

// MessageRepository is the only writer of mirrored messages.
type MessageRepository interface {
	// FindExistingIDs returns the subset of ids already stored for the user
	FindExistingIDs(ctx context.Context, userID string, ids []string) ([]string, error)
	// UpsertMany inserts new messages and refreshes mutable metadata of known ones.
	// internal_date, summary and embedding are never overwritten.
	UpsertMany(ctx context.Context, messages []*emaildomain.Message) error
	FindByIDs(ctx context.Context, userID string, ids []string) ([]*emaildomain.Message, error)
	UpdateEmbedding(ctx context.Context, userID, id string, embedding emaildomain.Vector) error
	UpdateSummary(ctx context.Context, userID, id, summary string) error
	// ListByUser returns messages newest first along with the total count
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*emaildomain.Message, int64, error)

	// FuzzySearch matches a normalized query against subject and sender with
	// trigram similarity >= threshold, ordered by score then internal_date.
	FuzzySearch(ctx context.Context, userID, query string, threshold float64, limit, offset int) ([]*emaildomain.ScoredMessage, int64, error)
	// NearestByEmbedding returns embedded messages by ascending cosine distance.
	// Score carries 1 - distance.
	NearestByEmbedding(ctx context.Context, userID string, embedding emaildomain.Vector, limit int) ([]*emaildomain.ScoredMessage, error)
	// TopSendersByPrefix groups senders starting with prefix (case-insensitive)
	TopSendersByPrefix(ctx context.Context, userID, prefix string, limit int) ([]emaildomain.TermCount, error)
	// TopSubjectKeywords counts lower-cased subject words containing fragment
	TopSubjectKeywords(ctx context.Context, userID, fragment string, limit int) ([]emaildomain.TermCount, error)
}

// QueryHistoryRepository defines the interface for semantic query history
type QueryHistoryRepository interface {
	// Record inserts the query with count 1 or bumps its count and last use
	Record(ctx context.Context, userID, query string, usedAt time.Time) error
	// FindByPrefix returns queries starting with prefix, most used first
	FindByPrefix(ctx context.Context, userID, prefix string, limit int) ([]*emaildomain.QueryHistory, error)
}
