package usecase

import (
	"context"
	"fmt"
	"log"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/internal/email/repository"
	"mailmirror-backend/pkg/eventbus"
)

// SyncCoordinator copies new remote messages into the mirror one cursor page
// at a time. Only the first page runs on the caller's goroutine; later pages
// are continuation events bounded by maxPages.
type SyncCoordinator struct {
	fetcher  *MessageFetcher
	messages repository.MessageRepository
	bus      *eventbus.Bus
	maxPages int
}

// NewSyncCoordinator creates the coordinator and subscribes it to continuation events
func NewSyncCoordinator(fetcher *MessageFetcher, messages repository.MessageRepository, bus *eventbus.Bus, maxPages int) *SyncCoordinator {
	if maxPages < 0 {
		maxPages = 0
	}
	c := &SyncCoordinator{
		fetcher:  fetcher,
		messages: messages,
		bus:      bus,
		maxPages: maxPages,
	}
	bus.Subscribe(eventbus.KindContinueSync, c.continueSync)
	return c
}

// SyncIncremental processes the newest page and returns the messages it stored.
func (c *SyncCoordinator) SyncIncremental(ctx context.Context, userID string) ([]*emaildomain.Message, error) {
	log.Printf("[Sync] Starting incremental sync for user %s", userID)
	return c.syncPage(ctx, userID, "", 0)
}

func (c *SyncCoordinator) continueSync(ctx context.Context, ev eventbus.Event) {
	stored, err := c.syncPage(ctx, ev.UserID, ev.PageToken, ev.Depth)
	if err != nil {
		log.Printf("[Sync] Continuation page %d failed for user %s: %v", ev.Depth, ev.UserID, err)
		return
	}
	log.Printf("[Sync] Continuation page %d stored %d new messages for user %s", ev.Depth, len(stored), ev.UserID)
}

func (c *SyncCoordinator) syncPage(ctx context.Context, userID, pageToken string, depth int) ([]*emaildomain.Message, error) {
	sess, err := c.fetcher.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("[Sync] Failed to close mailbox session for user %s: %v", userID, err)
		}
	}()

	page, err := c.fetcher.ListPage(ctx, sess, pageToken)
	if err != nil {
		return nil, err
	}

	newIDs, err := c.unseen(ctx, userID, page.IDs)
	if err != nil {
		return nil, err
	}

	stored := []*emaildomain.Message{}
	if len(newIDs) > 0 {
		stored = c.fetcher.FetchMetadata(ctx, sess, userID, newIDs)
		if len(stored) > 0 {
			if err := c.messages.UpsertMany(ctx, stored); err != nil {
				return nil, fmt.Errorf("failed to store messages: %w", err)
			}

			ids := make([]string, len(stored))
			for i, m := range stored {
				ids[i] = m.ID
			}
			c.bus.Publish(eventbus.Event{
				Kind:        eventbus.KindIngested,
				UserID:      userID,
				IDs:         ids,
				BatchNumber: 1,
			})
		}
	}

	if page.NextPageToken == "" {
		log.Printf("[Sync] Reached end of mailbox for user %s at page %d", userID, depth)
		return stored, nil
	}
	if depth >= c.maxPages {
		log.Printf("[Sync] Page limit %d reached for user %s, stopping", c.maxPages, userID)
		return stored, nil
	}

	c.bus.Publish(eventbus.Event{
		Kind:      eventbus.KindContinueSync,
		UserID:    userID,
		PageToken: page.NextPageToken,
		Depth:     depth + 1,
	})
	return stored, nil
}

// unseen returns ids not yet mirrored, keeping page order and dropping repeats
func (c *SyncCoordinator) unseen(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	existing, err := c.messages.FindExistingIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing messages: %w", err)
	}

	seen := make(map[string]struct{}, len(existing)+len(ids))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	newIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		newIDs = append(newIDs, id)
	}
	return newIDs, nil
}
