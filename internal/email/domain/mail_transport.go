package domain

import "context"

// MetadataHeaders are the header fields the mirror keeps per message.
var MetadataHeaders = []string{"Subject", "From", "Date"}

// MessagePage is one cursor page of remote message ids.
type MessagePage struct {
	IDs           []string
	NextPageToken string
}

// MessageMetadata is the subset of a remote message the mirror stores.
type MessageMetadata struct {
	ID           string
	ThreadID     string
	Subject      string
	Sender       string
	Date         string
	Snippet      string
	InternalDate int64
	IsRead       bool
}

// MailTransport is the narrow remote-mailbox surface sync depends on. One
// session is opened per sync page.
type MailTransport interface {
	Open(ctx context.Context, userID string) (MailSession, error)
}

// MailSession holds one authenticated connection to a user's mailbox.
// GetMessageMetadata may be called concurrently.
type MailSession interface {
	ListMessageIDs(ctx context.Context, pageToken string, maxResults int) (*MessagePage, error)
	GetMessageMetadata(ctx context.Context, id string, headerNames []string) (*MessageMetadata, error)
	Close() error
}

// ToMessage converts fetched metadata into a record owned by userID.
func (m *MessageMetadata) ToMessage(userID string) *Message {
	return &Message{
		UserID:       userID,
		ID:           m.ID,
		ThreadID:     m.ThreadID,
		Subject:      m.Subject,
		Sender:       m.Sender,
		Snippet:      m.Snippet,
		InternalDate: m.InternalDate,
		IsRead:       m.IsRead,
	}
}
