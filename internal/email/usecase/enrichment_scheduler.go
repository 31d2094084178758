package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/internal/email/repository"
	"mailmirror-backend/pkg/eventbus"

	"golang.org/x/time/rate"
)

// maxEmbeddingInputRunes keeps provider requests under their input limits
const maxEmbeddingInputRunes = 10000

// EmbeddingProvider turns text into a vector. An empty vector means the call
// failed; implementations never return an error across this boundary.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) []float32
}

// EnrichmentScheduler embeds freshly ingested messages. Ids that fail are
// re-published with the next batch number until maxBatches is exceeded.
type EnrichmentScheduler struct {
	messages   repository.MessageRepository
	embedder   EmbeddingProvider
	bus        *eventbus.Bus
	limit      rate.Limit
	maxBatches int
}

// NewEnrichmentScheduler creates the scheduler and subscribes it to ingested
// events. interval is the minimum gap between two provider calls of one run;
// zero disables the delay.
func NewEnrichmentScheduler(messages repository.MessageRepository, embedder EmbeddingProvider, bus *eventbus.Bus, interval time.Duration, maxBatches int) *EnrichmentScheduler {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	s := &EnrichmentScheduler{
		messages:   messages,
		embedder:   embedder,
		bus:        bus,
		limit:      limit,
		maxBatches: maxBatches,
	}
	bus.Subscribe(eventbus.KindIngested, s.handleIngested)
	return s
}

func (s *EnrichmentScheduler) handleIngested(ctx context.Context, ev eventbus.Event) {
	s.Enrich(ctx, ev.UserID, ev.IDs, ev.BatchNumber)
}

// Enrich embeds the given messages once and re-queues the ones that failed.
func (s *EnrichmentScheduler) Enrich(ctx context.Context, userID string, ids []string, batchNumber int) {
	if len(ids) == 0 {
		log.Printf("[Enrichment] Nothing left to embed for user %s (batch %d)", userID, batchNumber)
		return
	}
	if batchNumber > s.maxBatches {
		log.Printf("[Enrichment] Batch limit %d reached for user %s, giving up on %d messages", s.maxBatches, userID, len(ids))
		return
	}

	records, err := s.messages.FindByIDs(ctx, userID, ids)
	if err != nil {
		log.Printf("[Enrichment] Failed to load batch %d for user %s: %v", batchNumber, userID, err)
		s.requeue(userID, ids, batchNumber)
		return
	}

	limiter := rate.NewLimiter(s.limit, 1)
	failed := make([]string, 0)
	embedded := 0
	for i, m := range records {
		if err := limiter.Wait(ctx); err != nil {
			log.Printf("[Enrichment] Stopped batch %d for user %s: %v", batchNumber, userID, err)
			for _, rest := range records[i:] {
				failed = append(failed, rest.ID)
			}
			break
		}

		vec := s.embedder.Embed(ctx, EmbeddingText(m))
		if len(vec) == 0 {
			log.Printf("[Enrichment] Empty embedding for message %s", m.ID)
			failed = append(failed, m.ID)
			continue
		}
		if err := s.messages.UpdateEmbedding(ctx, userID, m.ID, emaildomain.Vector(vec)); err != nil {
			log.Printf("[Enrichment] Failed to store embedding for message %s: %v", m.ID, err)
			failed = append(failed, m.ID)
			continue
		}
		embedded++
	}

	log.Printf("[Enrichment] Batch %d for user %s: %d embedded, %d failed", batchNumber, userID, embedded, len(failed))
	if len(failed) > 0 && ctx.Err() == nil {
		s.requeue(userID, failed, batchNumber)
	}
}

func (s *EnrichmentScheduler) requeue(userID string, ids []string, batchNumber int) {
	s.bus.Publish(eventbus.Event{
		Kind:        eventbus.KindIngested,
		UserID:      userID,
		IDs:         ids,
		BatchNumber: batchNumber + 1,
	})
}

// EmbeddingText builds the provider input for a message, preferring the AI
// summary over the snippet.
func EmbeddingText(m *emaildomain.Message) string {
	content := m.Snippet
	if m.Summary != "" {
		content = m.Summary
	}
	return truncateRunes(fmt.Sprintf("Subject: %s\nFrom: %s\nContent: %s", m.Subject, m.Sender, content), maxEmbeddingInputRunes)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
