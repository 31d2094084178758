package repository

import (
	"context"
	"fmt"
	"strconv"

	emaildomain "mailmirror-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns a re-upsert may refresh. internal_date, summary and embedding are
// intentionally absent.
var mutableColumns = []string{"thread_id", "subject", "sender", "snippet", "is_read", "updated_at"}

// messageColumns excludes the embedding, which only semantic ranking needs
const messageColumns = "user_id, id, thread_id, subject, sender, snippet, internal_date, is_read, summary, created_at, updated_at"

// unaccent() is only STABLE, so expression indexes go through an IMMUTABLE
// wrapper. Queries must use the same expressions for the planner to pick the
// trigram indexes up.
const (
	ImmutableUnaccentFunction = `CREATE OR REPLACE FUNCTION immutable_unaccent(text) RETURNS text
		AS $$ SELECT public.unaccent('public.unaccent', $1) $$
		LANGUAGE sql IMMUTABLE PARALLEL SAFE STRICT`

	FuzzySubjectExpr = "lower(immutable_unaccent(subject))"
	FuzzySenderExpr  = "lower(immutable_unaccent(sender))"
)

// messageRepository implements MessageRepository on postgres with pg_trgm,
// unaccent and pgvector
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// FindExistingIDs returns the ids already mirrored for the user
func (r *messageRepository) FindExistingIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	var existing []string
	err := r.db.WithContext(ctx).Model(&emaildomain.Message{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Pluck("id", &existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find existing ids: %w", err)
	}
	return existing, nil
}

// UpsertMany creates new messages and refreshes the mutable metadata of known ones
func (r *messageRepository) UpsertMany(ctx context.Context, messages []*emaildomain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	rows := make([]*emaildomain.Message, len(messages))
	for i, m := range messages {
		row := *m
		row.Summary = ""
		row.Embedding = nil
		rows[i] = &row
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert messages: %w", err)
	}
	return nil
}

// FindByIDs loads messages by id, skipping unknown ids
func (r *messageRepository) FindByIDs(ctx context.Context, userID string, ids []string) ([]*emaildomain.Message, error) {
	if len(ids) == 0 {
		return []*emaildomain.Message{}, nil
	}

	var messages []*emaildomain.Message
	err := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	return messages, nil
}

// UpdateEmbedding stores the vector of one message
func (r *messageRepository) UpdateEmbedding(ctx context.Context, userID, id string, embedding emaildomain.Vector) error {
	err := r.db.WithContext(ctx).Model(&emaildomain.Message{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]interface{}{"embedding": embedding, "updated_at": gorm.Expr("NOW()")}).Error
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	return nil
}

// UpdateSummary stores the AI summary of one message
func (r *messageRepository) UpdateSummary(ctx context.Context, userID, id, summary string) error {
	err := r.db.WithContext(ctx).Model(&emaildomain.Message{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]interface{}{"summary": summary, "updated_at": gorm.Expr("NOW()")}).Error
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}

// ListByUser returns the newest messages first
func (r *messageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	db := r.db.WithContext(ctx).Model(&emaildomain.Message{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []*emaildomain.Message
	err := db.Select(messageColumns).Order("internal_date DESC").Limit(limit).Offset(offset).Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, total, nil
}

// FuzzySearch ranks by the better of subject and sender trigram similarity.
// The % operator honours pg_trgm.similarity_threshold, which is set for the
// transaction only.
func (r *messageRepository) FuzzySearch(ctx context.Context, userID, query string, threshold float64, limit, offset int) ([]*emaildomain.ScoredMessage, int64, error) {
	var (
		results []*emaildomain.ScoredMessage
		total   int64
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_config('pg_trgm.similarity_threshold', ?, true)", strconv.FormatFloat(threshold, 'f', -1, 64)).Error; err != nil {
			return err
		}

		match := "(" + FuzzySubjectExpr + " % ? OR " + FuzzySenderExpr + " % ?)"
		if err := tx.Model(&emaildomain.Message{}).
			Where("user_id = ?", userID).
			Where(match, query, query).
			Count(&total).Error; err != nil {
			return err
		}

		return tx.Raw(`
			SELECT `+messageColumns+`,
				GREATEST(similarity(`+FuzzySubjectExpr+`, ?), similarity(`+FuzzySenderExpr+`, ?)) AS score
			FROM messages
			WHERE user_id = ? AND `+match+`
			ORDER BY score DESC, internal_date DESC
			LIMIT ? OFFSET ?`,
			query, query, userID, query, query, limit, offset,
		).Scan(&results).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to run fuzzy search: %w", err)
	}
	return results, total, nil
}

// NearestByEmbedding orders embedded messages by cosine distance (<=>)
func (r *messageRepository) NearestByEmbedding(ctx context.Context, userID string, embedding emaildomain.Vector, limit int) ([]*emaildomain.ScoredMessage, error) {
	var results []*emaildomain.ScoredMessage
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+messageColumns+`, 1 - (embedding <=> ?::vector) AS score
		FROM messages
		WHERE user_id = ? AND embedding IS NOT NULL
		ORDER BY embedding <=> ?::vector
		LIMIT ?`,
		embedding, userID, embedding, limit,
	).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	return results, nil
}

// TopSendersByPrefix groups senders by frequency
func (r *messageRepository) TopSendersByPrefix(ctx context.Context, userID, prefix string, limit int) ([]emaildomain.TermCount, error) {
	var terms []emaildomain.TermCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT sender AS term, COUNT(*) AS count
		FROM messages
		WHERE user_id = ? AND sender <> '' AND lower(sender) LIKE ?
		GROUP BY sender
		ORDER BY count DESC, sender ASC
		LIMIT ?`,
		userID, likePrefix(prefix), limit,
	).Scan(&terms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find sender suggestions: %w", err)
	}
	return terms, nil
}

// TopSubjectKeywords splits subjects into words and counts the matching ones
func (r *messageRepository) TopSubjectKeywords(ctx context.Context, userID, fragment string, limit int) ([]emaildomain.TermCount, error) {
	var terms []emaildomain.TermCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT word AS term, COUNT(*) AS count
		FROM messages, regexp_split_to_table(lower(subject), '\s+') AS word
		WHERE user_id = ? AND word <> '' AND word LIKE ?
		GROUP BY word
		ORDER BY count DESC, word ASC
		LIMIT ?`,
		userID, likeContains(fragment), limit,
	).Scan(&terms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find subject suggestions: %w", err)
	}
	return terms, nil
}
