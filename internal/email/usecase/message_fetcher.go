package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"

	emaildomain "mailmirror-backend/internal/email/domain"
)

const defaultFetchConcurrency = 10

// MessageFetcher lists id pages and fetches per-message metadata from the
// user's mailbox transport.
type MessageFetcher struct {
	transport   emaildomain.MailTransport
	pageSize    int
	concurrency int
}

// NewMessageFetcher creates a fetcher. concurrency bounds parallel metadata calls.
func NewMessageFetcher(transport emaildomain.MailTransport, pageSize, concurrency int) *MessageFetcher {
	if pageSize <= 0 {
		pageSize = 100
	}
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &MessageFetcher{
		transport:   transport,
		pageSize:    pageSize,
		concurrency: concurrency,
	}
}

// Open starts the mailbox session one sync page runs on. Callers close it.
func (f *MessageFetcher) Open(ctx context.Context, userID string) (emaildomain.MailSession, error) {
	sess, err := f.transport.Open(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to open mailbox: %w", err)
	}
	return sess, nil
}

// ListPage returns one page of remote ids. An empty pageToken starts from the newest message.
func (f *MessageFetcher) ListPage(ctx context.Context, sess emaildomain.MailSession, pageToken string) (*emaildomain.MessagePage, error) {
	page, err := sess.ListMessageIDs(ctx, pageToken, f.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if page == nil {
		return &emaildomain.MessagePage{}, nil
	}
	return page, nil
}

// FetchMetadata fetches every id independently over sess. Failed ids are
// logged and left out; the result keeps the order of ids.
func (f *MessageFetcher) FetchMetadata(ctx context.Context, sess emaildomain.MailSession, userID string, ids []string) []*emaildomain.Message {
	results := make([]*emaildomain.Message, len(ids))
	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			meta, err := sess.GetMessageMetadata(ctx, id, emaildomain.MetadataHeaders)
			if err != nil {
				log.Printf("[Sync] Failed to fetch metadata for message %s: %v", id, err)
				return
			}
			if meta == nil {
				log.Printf("[Sync] No metadata returned for message %s", id)
				return
			}
			if meta.ID == "" {
				meta.ID = id
			}
			results[i] = meta.ToMessage(userID)
		}(i, id)
	}
	wg.Wait()

	fetched := make([]*emaildomain.Message, 0, len(ids))
	for _, m := range results {
		if m != nil {
			fetched = append(fetched, m)
		}
	}
	return fetched
}
