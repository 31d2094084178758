package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"mailmirror-backend/internal/email/repository"
	"mailmirror-backend/pkg/eventbus"
)

const (
	maxSummaryInputRunes = 5000
	maxSummaryRunes      = 200
	summaryTimeout       = 60 * time.Second
)

// Summarizer produces a short AI summary of message text
type Summarizer interface {
	SummarizeEmail(ctx context.Context, emailText string) (string, error)
}

// SummaryJob asks for the summary of one mirrored message
type SummaryJob struct {
	UserID    string
	MessageID string
}

// SummaryWorkerService generates summaries in the background. A stored
// summary is re-published as ingested so the embedding is rebuilt from it.
type SummaryWorkerService struct {
	messages    repository.MessageRepository
	summarizer  Summarizer
	bus         *eventbus.Bus
	jobQueue    chan SummaryJob
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	mu          sync.Mutex
}

// NewSummaryWorkerService creates a new summary worker service
func NewSummaryWorkerService(messages repository.MessageRepository, summarizer Summarizer, bus *eventbus.Bus, workerCount int) *SummaryWorkerService {
	if workerCount <= 0 {
		workerCount = 3 // Default to 3 workers
	}

	return &SummaryWorkerService{
		messages:    messages,
		summarizer:  summarizer,
		bus:         bus,
		jobQueue:    make(chan SummaryJob, 500), // Buffered channel
		workerCount: workerCount,
	}
}

// Start starts the summary workers
func (s *SummaryWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	log.Printf("[SummaryWorker] Started %d workers", s.workerCount)
}

// Stop drains the queue and waits for the workers
func (s *SummaryWorkerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	close(s.jobQueue)
	s.workerWg.Wait()
	s.started = false
	log.Println("[SummaryWorker] All workers stopped")
}

func (s *SummaryWorkerService) worker(id int) {
	defer s.workerWg.Done()

	for job := range s.jobQueue {
		s.processJob(job)
	}

	log.Printf("[SummaryWorker] Worker %d stopped", id)
}

func (s *SummaryWorkerService) processJob(job SummaryJob) {
	if s.summarizer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	found, err := s.messages.FindByIDs(ctx, job.UserID, []string{job.MessageID})
	if err != nil {
		log.Printf("[SummaryWorker] Error loading message %s: %v", job.MessageID, err)
		return
	}
	if len(found) == 0 {
		log.Printf("[SummaryWorker] Message %s not mirrored yet, skipping", job.MessageID)
		return
	}
	m := found[0]
	if m.Summary != "" {
		return
	}

	text := truncateRunes(fmt.Sprintf("Subject: %s\nFrom: %s\n\nBody: %s", m.Subject, m.Sender, m.Snippet), maxSummaryInputRunes)
	summary, err := s.summarizer.SummarizeEmail(ctx, text)
	if err != nil {
		log.Printf("[SummaryWorker] AI error for message %s: %v", job.MessageID, err)
		return
	}
	if summary == "" {
		return
	}
	if len([]rune(summary)) > maxSummaryRunes {
		summary = truncateRunes(summary, maxSummaryRunes) + "..."
	}

	if err := s.messages.UpdateSummary(ctx, job.UserID, job.MessageID, summary); err != nil {
		log.Printf("[SummaryWorker] Save error: %v", err)
		return
	}

	s.bus.Publish(eventbus.Event{
		Kind:        eventbus.KindIngested,
		UserID:      job.UserID,
		IDs:         []string{job.MessageID},
		BatchNumber: 1,
	})
	log.Printf("[SummaryWorker] Generated summary for %s", job.MessageID)
}

// QueueJob adds a single job to the queue (non-blocking)
func (s *SummaryWorkerService) QueueJob(job SummaryJob) bool {
	select {
	case s.jobQueue <- job:
		return true
	default:
		return false // Queue full
	}
}

// QueueMessagesForSummary returns the summaries already stored and queues the rest
func (s *SummaryWorkerService) QueueMessagesForSummary(ctx context.Context, userID string, ids []string) (map[string]string, int, error) {
	if len(ids) == 0 {
		return map[string]string{}, 0, nil
	}

	found, err := s.messages.FindByIDs(ctx, userID, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load messages: %w", err)
	}

	cached := make(map[string]string)
	queuedCount := 0
	for _, m := range found {
		if m.Summary != "" {
			cached[m.ID] = m.Summary
			continue
		}
		if s.QueueJob(SummaryJob{UserID: userID, MessageID: m.ID}) {
			queuedCount++
		}
	}
	return cached, queuedCount, nil
}

