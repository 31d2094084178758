package repository

import (
	"context"
	"fmt"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// queryHistoryRepository implements QueryHistoryRepository interface
type queryHistoryRepository struct {
	db *gorm.DB
}

// NewQueryHistoryRepository creates a new instance of queryHistoryRepository
func NewQueryHistoryRepository(db *gorm.DB) QueryHistoryRepository {
	return &queryHistoryRepository{
		db: db,
	}
}

// Record inserts the query or bumps its occurrence count
func (r *queryHistoryRepository) Record(ctx context.Context, userID, query string, usedAt time.Time) error {
	entry := emaildomain.QueryHistory{
		ID:              uuid.New().String(),
		UserID:          userID,
		QueryText:       query,
		OccurrenceCount: 1,
		LastUsedAt:      usedAt,
		CreatedAt:       usedAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "query_text"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"occurrence_count": gorm.Expr("query_histories.occurrence_count + 1"),
			"last_used_at":     usedAt,
		}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// FindByPrefix returns the most used queries starting with prefix
func (r *queryHistoryRepository) FindByPrefix(ctx context.Context, userID, prefix string, limit int) ([]*emaildomain.QueryHistory, error) {
	var entries []*emaildomain.QueryHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND lower(query_text) LIKE ?", userID, likePrefix(prefix)).
		Order("occurrence_count DESC, last_used_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find query history: %w", err)
	}
	return entries, nil
}
