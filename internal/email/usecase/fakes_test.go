package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/internal/email/repository"
	"mailmirror-backend/pkg/eventbus"
)

type fakeTransport struct {
	mu        sync.Mutex
	list      func(pageToken string) (*emaildomain.MessagePage, error)
	failIDs   map[string]bool
	listCalls int
	metaCalls int
	opens     int
	closes    int
	openErr   error
}

func staticTransport(ids ...string) *fakeTransport {
	return &fakeTransport{
		list: func(string) (*emaildomain.MessagePage, error) {
			return &emaildomain.MessagePage{IDs: ids}, nil
		},
	}
}

func (f *fakeTransport) Open(ctx context.Context, userID string) (emaildomain.MailSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	return f, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) ListMessageIDs(ctx context.Context, pageToken string, maxResults int) (*emaildomain.MessagePage, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	return f.list(pageToken)
}

func (f *fakeTransport) GetMessageMetadata(ctx context.Context, id string, headerNames []string) (*emaildomain.MessageMetadata, error) {
	f.mu.Lock()
	f.metaCalls++
	fail := f.failIDs[id]
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("transport error for %s", id)
	}
	return &emaildomain.MessageMetadata{
		ID:           id,
		ThreadID:     "thread-" + id,
		Subject:      "Subject " + id,
		Sender:       "sender@example.com",
		Snippet:      "snippet of " + id,
		InternalDate: 1700000000000,
	}, nil
}

func (f *fakeTransport) calls() (list, meta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.metaCalls
}

func (f *fakeTransport) sessions() (opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes
}

// fakeEmbedder returns a fixed vector, or nothing for ids listed in failures.
// failures[id] is how many more calls for that text should fail; -1 fails forever.
type fakeEmbedder struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	total    int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{failures: map[string]int{}, calls: map[string]int{}}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total++
	f.calls[text]++
	if n, ok := f.failures[text]; ok && n != 0 {
		if n > 0 {
			f.failures[text] = n - 1
		}
		return nil
	}
	return []float32{1, 0, 0}
}

func (f *fakeEmbedder) callsFor(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func (f *fakeEmbedder) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// recorder captures every event of one kind published on a bus
type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func record(bus *eventbus.Bus, kind eventbus.Kind) *recorder {
	r := &recorder{}
	bus.Subscribe(kind, func(ctx context.Context, ev eventbus.Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) all() []eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventbus.Event(nil), r.events...)
}

// spyRepository counts vector queries and can fail suggestion lookups
type spyRepository struct {
	repository.MessageRepository
	mu            sync.Mutex
	nearestCalls  int
	failSenders   bool
	failKeywords  bool
	failEmbedding map[string]bool
}

func (s *spyRepository) NearestByEmbedding(ctx context.Context, userID string, embedding emaildomain.Vector, limit int) ([]*emaildomain.ScoredMessage, error) {
	s.mu.Lock()
	s.nearestCalls++
	s.mu.Unlock()
	return s.MessageRepository.NearestByEmbedding(ctx, userID, embedding, limit)
}

func (s *spyRepository) TopSendersByPrefix(ctx context.Context, userID, prefix string, limit int) ([]emaildomain.TermCount, error) {
	if s.failSenders {
		return nil, errors.New("store unavailable")
	}
	return s.MessageRepository.TopSendersByPrefix(ctx, userID, prefix, limit)
}

func (s *spyRepository) TopSubjectKeywords(ctx context.Context, userID, fragment string, limit int) ([]emaildomain.TermCount, error) {
	if s.failKeywords {
		return nil, errors.New("store unavailable")
	}
	return s.MessageRepository.TopSubjectKeywords(ctx, userID, fragment, limit)
}

func (s *spyRepository) UpdateEmbedding(ctx context.Context, userID, id string, embedding emaildomain.Vector) error {
	if s.failEmbedding[id] {
		return errors.New("write failed")
	}
	return s.MessageRepository.UpdateEmbedding(ctx, userID, id, embedding)
}

type failingHistory struct{}

func (failingHistory) Record(context.Context, string, string, time.Time) error {
	return errors.New("history table locked")
}

func (failingHistory) FindByPrefix(context.Context, string, string, int) ([]*emaildomain.QueryHistory, error) {
	return nil, errors.New("history table locked")
}
