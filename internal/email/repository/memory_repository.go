package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"

	"github.com/google/uuid"
)

// memoryMessageRepository keeps messages in process, for tests and DB_DRIVER=memory
type memoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]map[string]*emaildomain.Message // userID -> id -> message
}

// NewMemoryMessageRepository creates a new in-memory message repository
func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{
		messages: make(map[string]map[string]*emaildomain.Message),
	}
}

func (r *memoryMessageRepository) FindExistingIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	existing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.messages[userID][id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (r *memoryMessageRepository) UpsertMany(ctx context.Context, messages []*emaildomain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowUTC()
	for _, m := range messages {
		byID, ok := r.messages[m.UserID]
		if !ok {
			byID = make(map[string]*emaildomain.Message)
			r.messages[m.UserID] = byID
		}
		if current, ok := byID[m.ID]; ok {
			current.ThreadID = m.ThreadID
			current.Subject = m.Subject
			current.Sender = m.Sender
			current.Snippet = m.Snippet
			current.IsRead = m.IsRead
			current.UpdatedAt = now
			continue
		}
		stored := *m
		stored.Summary = ""
		stored.Embedding = nil
		stored.CreatedAt = now
		stored.UpdatedAt = now
		byID[m.ID] = &stored
	}
	return nil
}

func (r *memoryMessageRepository) FindByIDs(ctx context.Context, userID string, ids []string) ([]*emaildomain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*emaildomain.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.messages[userID][id]; ok {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (r *memoryMessageRepository) UpdateEmbedding(ctx context.Context, userID, id string, embedding emaildomain.Vector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[userID][id]
	if !ok {
		return nil
	}
	m.Embedding = append(emaildomain.Vector(nil), embedding...)
	m.UpdatedAt = nowUTC()
	return nil
}

func (r *memoryMessageRepository) UpdateSummary(ctx context.Context, userID, id, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[userID][id]
	if !ok {
		return nil
	}
	m.Summary = summary
	m.UpdatedAt = nowUTC()
	return nil
}

func (r *memoryMessageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	all := r.snapshot(userID)
	sort.SliceStable(all, func(i, j int) bool { return all[i].InternalDate > all[j].InternalDate })
	return page(all, limit, offset), int64(len(all)), nil
}

func (r *memoryMessageRepository) FuzzySearch(ctx context.Context, userID, query string, threshold float64, limit, offset int) ([]*emaildomain.ScoredMessage, int64, error) {
	ranked := rankFuzzy(r.snapshot(userID), query, threshold)
	return page(ranked, limit, offset), int64(len(ranked)), nil
}

func (r *memoryMessageRepository) NearestByEmbedding(ctx context.Context, userID string, embedding emaildomain.Vector, limit int) ([]*emaildomain.ScoredMessage, error) {
	return rankNearest(r.snapshot(userID), embedding, limit), nil
}

func (r *memoryMessageRepository) TopSendersByPrefix(ctx context.Context, userID, prefix string, limit int) ([]emaildomain.TermCount, error) {
	all := r.snapshot(userID)
	senders := make([]string, len(all))
	for i, m := range all {
		senders[i] = m.Sender
	}
	return countSenders(senders, prefix, limit), nil
}

func (r *memoryMessageRepository) TopSubjectKeywords(ctx context.Context, userID, fragment string, limit int) ([]emaildomain.TermCount, error) {
	all := r.snapshot(userID)
	subjects := make([]string, len(all))
	for i, m := range all {
		subjects[i] = m.Subject
	}
	return countKeywords(subjects, fragment, limit), nil
}

func (r *memoryMessageRepository) snapshot(userID string) []*emaildomain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*emaildomain.Message, 0, len(r.messages[userID]))
	for _, m := range r.messages[userID] {
		out = append(out, clone(m))
	}
	// map order is random; keep results deterministic on ties
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(m *emaildomain.Message) *emaildomain.Message {
	c := *m
	c.Embedding = append(emaildomain.Vector(nil), m.Embedding...)
	return &c
}

// memoryQueryHistoryRepository implements QueryHistoryRepository in process
type memoryQueryHistoryRepository struct {
	mu      sync.Mutex
	entries map[string]map[string]*emaildomain.QueryHistory // userID -> query -> entry
}

// NewMemoryQueryHistoryRepository creates a new in-memory query history repository
func NewMemoryQueryHistoryRepository() QueryHistoryRepository {
	return &memoryQueryHistoryRepository{
		entries: make(map[string]map[string]*emaildomain.QueryHistory),
	}
}

func (r *memoryQueryHistoryRepository) Record(ctx context.Context, userID, query string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byQuery, ok := r.entries[userID]
	if !ok {
		byQuery = make(map[string]*emaildomain.QueryHistory)
		r.entries[userID] = byQuery
	}
	if entry, ok := byQuery[query]; ok {
		entry.OccurrenceCount++
		entry.LastUsedAt = usedAt
		return nil
	}
	byQuery[query] = &emaildomain.QueryHistory{
		ID:              uuid.New().String(),
		UserID:          userID,
		QueryText:       query,
		OccurrenceCount: 1,
		LastUsedAt:      usedAt,
		CreatedAt:       usedAt,
	}
	return nil
}

func (r *memoryQueryHistoryRepository) FindByPrefix(ctx context.Context, userID, prefix string, limit int) ([]*emaildomain.QueryHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix = strings.ToLower(prefix)
	out := make([]*emaildomain.QueryHistory, 0)
	for _, entry := range r.entries[userID] {
		if strings.HasPrefix(strings.ToLower(entry.QueryText), prefix) {
			c := *entry
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueryText < out[j].QueryText })
	sortHistory(out)
	return page(out, limit, 0), nil
}
