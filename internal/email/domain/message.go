package domain

import "time"

// Message is the mirrored metadata of one remote message. The remote id is
// unique within a user's mailbox, so (user_id, id) is the key.
type Message struct {
	UserID       string    `json:"user_id" gorm:"primaryKey" db:"user_id"`
	ID           string    `json:"id" gorm:"primaryKey" db:"id"`
	ThreadID     string    `json:"thread_id" gorm:"index" db:"thread_id"`
	Subject      string    `json:"subject" gorm:"type:text" db:"subject"`
	Sender       string    `json:"sender" gorm:"type:text" db:"sender"`
	Snippet      string    `json:"snippet" gorm:"type:text" db:"snippet"`
	InternalDate int64     `json:"internal_date" gorm:"index;not null" db:"internal_date"` // epoch millis, never changes
	IsRead       bool      `json:"is_read" db:"is_read"`
	Summary      string    `json:"summary" gorm:"type:text;not null;default:''" db:"summary"`
	Embedding    Vector    `json:"-" gorm:"type:vector" db:"embedding"` // nil until enrichment succeeds
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// HasEmbedding reports whether enrichment has stored a vector for m.
func (m *Message) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// ScoredMessage pairs a message with its rank for a query. For fuzzy search
// Score is the trigram similarity, for semantic search it is 1 - distance.
type ScoredMessage struct {
	Message
	Score float64 `json:"score" db:"score"`
}
