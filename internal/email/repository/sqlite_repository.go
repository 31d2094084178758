package repository

import (
	"context"
	"fmt"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const sqliteMessageColumns = `user_id, id, thread_id, subject, sender, snippet, internal_date, is_read, summary, created_at, updated_at`

// sqliteMessageRepository implements MessageRepository on a local SQLite
// file. Similarity ranking runs in process.
type sqliteMessageRepository struct {
	db *sqlx.DB
}

// NewSQLiteMessageRepository creates a message repository over a migrated SQLite db
func NewSQLiteMessageRepository(db *sqlx.DB) MessageRepository {
	return &sqliteMessageRepository{db: db}
}

func (r *sqliteMessageRepository) FindExistingIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	query, args, err := sqlx.In("SELECT id FROM messages WHERE user_id = ? AND id IN (?)", userID, ids)
	if err != nil {
		return nil, fmt.Errorf("building existing ids query: %w", err)
	}
	existing := []string{}
	if err := r.db.SelectContext(ctx, &existing, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("finding existing ids: %w", err)
	}
	return existing, nil
}

func (r *sqliteMessageRepository) UpsertMany(ctx context.Context, messages []*emaildomain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO messages (
			user_id, id, thread_id, subject, sender, snippet,
			internal_date, is_read, summary, embedding, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', NULL, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			thread_id = excluded.thread_id,
			subject = excluded.subject,
			sender = excluded.sender,
			snippet = excluded.snippet,
			is_read = excluded.is_read,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := nowUTC()
	for _, m := range messages {
		_, err := stmt.ExecContext(ctx,
			m.UserID, m.ID, m.ThreadID, m.Subject, m.Sender, m.Snippet,
			m.InternalDate, m.IsRead, now, now,
		)
		if err != nil {
			return fmt.Errorf("upserting message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepository) FindByIDs(ctx context.Context, userID string, ids []string) ([]*emaildomain.Message, error) {
	if len(ids) == 0 {
		return []*emaildomain.Message{}, nil
	}

	query, args, err := sqlx.In("SELECT "+sqliteMessageColumns+", embedding FROM messages WHERE user_id = ? AND id IN (?)", userID, ids)
	if err != nil {
		return nil, fmt.Errorf("building find query: %w", err)
	}
	messages := []*emaildomain.Message{}
	if err := r.db.SelectContext(ctx, &messages, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("finding messages: %w", err)
	}
	return messages, nil
}

func (r *sqliteMessageRepository) UpdateEmbedding(ctx context.Context, userID, id string, embedding emaildomain.Vector) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE messages SET embedding = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		embedding, nowUTC(), userID, id,
	)
	if err != nil {
		return fmt.Errorf("updating embedding for %s: %w", id, err)
	}
	return nil
}

func (r *sqliteMessageRepository) UpdateSummary(ctx context.Context, userID, id, summary string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE messages SET summary = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		summary, nowUTC(), userID, id,
	)
	if err != nil {
		return fmt.Errorf("updating summary for %s: %w", id, err)
	}
	return nil
}

func (r *sqliteMessageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM messages WHERE user_id = ?", userID); err != nil {
		return nil, 0, fmt.Errorf("counting messages: %w", err)
	}

	messages := []*emaildomain.Message{}
	err := r.db.SelectContext(ctx, &messages,
		"SELECT "+sqliteMessageColumns+" FROM messages WHERE user_id = ? ORDER BY internal_date DESC LIMIT ? OFFSET ?",
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing messages: %w", err)
	}
	return messages, total, nil
}

func (r *sqliteMessageRepository) FuzzySearch(ctx context.Context, userID, query string, threshold float64, limit, offset int) ([]*emaildomain.ScoredMessage, int64, error) {
	messages := []*emaildomain.Message{}
	err := r.db.SelectContext(ctx, &messages,
		"SELECT "+sqliteMessageColumns+" FROM messages WHERE user_id = ? ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("loading messages for fuzzy search: %w", err)
	}

	ranked := rankFuzzy(messages, query, threshold)
	return page(ranked, limit, offset), int64(len(ranked)), nil
}

func (r *sqliteMessageRepository) NearestByEmbedding(ctx context.Context, userID string, embedding emaildomain.Vector, limit int) ([]*emaildomain.ScoredMessage, error) {
	messages := []*emaildomain.Message{}
	err := r.db.SelectContext(ctx, &messages,
		"SELECT "+sqliteMessageColumns+", embedding FROM messages WHERE user_id = ? AND embedding IS NOT NULL ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}
	return rankNearest(messages, embedding, limit), nil
}

func (r *sqliteMessageRepository) TopSendersByPrefix(ctx context.Context, userID, prefix string, limit int) ([]emaildomain.TermCount, error) {
	terms := []emaildomain.TermCount{}
	err := r.db.SelectContext(ctx, &terms, `
		SELECT sender AS term, COUNT(*) AS count
		FROM messages
		WHERE user_id = ? AND sender <> '' AND lower(sender) LIKE ? ESCAPE '\'
		GROUP BY sender
		ORDER BY COUNT(*) DESC, sender ASC
		LIMIT ?`,
		userID, likePrefix(prefix), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("finding sender suggestions: %w", err)
	}
	return terms, nil
}

// TopSubjectKeywords tokenizes in Go; SQLite's lower() only folds ASCII.
func (r *sqliteMessageRepository) TopSubjectKeywords(ctx context.Context, userID, fragment string, limit int) ([]emaildomain.TermCount, error) {
	subjects := []string{}
	if err := r.db.SelectContext(ctx, &subjects, "SELECT subject FROM messages WHERE user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("loading subjects: %w", err)
	}
	return countKeywords(subjects, fragment, limit), nil
}

// sqliteQueryHistoryRepository implements QueryHistoryRepository on SQLite
type sqliteQueryHistoryRepository struct {
	db *sqlx.DB
}

// NewSQLiteQueryHistoryRepository creates a query history repository over a migrated SQLite db
func NewSQLiteQueryHistoryRepository(db *sqlx.DB) QueryHistoryRepository {
	return &sqliteQueryHistoryRepository{db: db}
}

func (r *sqliteQueryHistoryRepository) Record(ctx context.Context, userID, query string, usedAt time.Time) error {
	usedAt = usedAt.UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_histories (id, user_id, query_text, occurrence_count, last_used_at, created_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (user_id, query_text) DO UPDATE SET
			occurrence_count = occurrence_count + 1,
			last_used_at = excluded.last_used_at`,
		uuid.New().String(), userID, query, usedAt, usedAt,
	)
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}

func (r *sqliteQueryHistoryRepository) FindByPrefix(ctx context.Context, userID, prefix string, limit int) ([]*emaildomain.QueryHistory, error) {
	entries := []*emaildomain.QueryHistory{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, query_text, occurrence_count, last_used_at, created_at
		FROM query_histories
		WHERE user_id = ? AND lower(query_text) LIKE ? ESCAPE '\'
		ORDER BY id`,
		userID, likePrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("finding query history: %w", err)
	}
	// last_used_at is stored as text, so order after decoding
	sortHistory(entries)
	return page(entries, limit, 0), nil
}
