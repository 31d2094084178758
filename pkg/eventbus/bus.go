package eventbus

import (
	"context"
	"log"
	"sync"
)

// Kind tags what an Event asks its subscribers to do.
type Kind string

const (
	// KindIngested carries ids that were just stored and need embeddings.
	KindIngested Kind = "ingested"
	// KindContinueSync carries the cursor of the next page of a sync run.
	KindContinueSync Kind = "continueSync"
)

// Event is the tagged payload passed between the sync and enrichment stages.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind   Kind
	UserID string

	// KindIngested
	IDs         []string
	BatchNumber int

	// KindContinueSync
	PageToken string
	Depth     int
}

// Handler processes one event. It runs detached from the publisher.
type Handler func(ctx context.Context, ev Event)

// Bus is an in-process publish/subscribe dispatcher. Every handler call runs
// in its own goroutine, so publishing never blocks on a slow subscriber.
type Bus struct {
	ctx      context.Context
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	closed   bool
	inflight sync.WaitGroup
}

// New creates a bus whose handlers run on ctx instead of any request context.
func New(ctx context.Context) *Bus {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Bus{
		ctx:      ctx,
		handlers: make(map[Kind][]Handler),
	}
}

// Subscribe registers h for every future event of the given kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish dispatches ev to its subscribers and returns immediately.
// It reports false when the bus is closed or nobody listens for ev.Kind.
func (b *Bus) Publish(ev Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		log.Printf("[EventBus] Dropping %s event for user %s: bus closed", ev.Kind, ev.UserID)
		return false
	}
	handlers := b.handlers[ev.Kind]
	if len(handlers) == 0 {
		return false
	}

	for _, h := range handlers {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[EventBus] Handler for %s panicked: %v", ev.Kind, r)
				}
			}()
			h(b.ctx, ev)
		}(h)
	}
	return true
}

// Wait blocks until every dispatched handler has returned, including the
// handlers of events published while waiting.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// Close stops accepting events and waits for in-flight work to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.Wait()
}
