package domain

import "time"

// QueryHistory counts how often a user ran a semantic search query.
type QueryHistory struct {
	ID              string    `json:"id" gorm:"primaryKey" db:"id"`
	UserID          string    `json:"user_id" gorm:"uniqueIndex:idx_user_query;not null" db:"user_id"`
	QueryText       string    `json:"query_text" gorm:"uniqueIndex:idx_user_query;not null" db:"query_text"`
	OccurrenceCount int       `json:"occurrence_count" gorm:"not null;default:1" db:"occurrence_count"`
	LastUsedAt      time.Time `json:"last_used_at" gorm:"index" db:"last_used_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// TableName specifies the table name for GORM
func (QueryHistory) TableName() string {
	return "query_histories"
}
