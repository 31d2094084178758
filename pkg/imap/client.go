// Package imap reads message ids and header metadata from an IMAP INBOX so
// non-Gmail accounts can be mirrored the same way as Gmail ones.
package imap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

const (
	inbox       = "INBOX"
	dialTimeout = 30 * time.Second
)

// Credentials identify one IMAP account.
type Credentials struct {
	Server   string
	Port     int
	Username string
	Password string
}

func (c Credentials) addr() string {
	port := c.Port
	if port == 0 {
		port = 993
	}
	return net.JoinHostPort(c.Server, strconv.Itoa(port))
}

// Service dials one TLS session per sync page.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) connect(ctx context.Context, creds Credentials) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	c, err := client.DialWithDialerTLS(dialer, creds.addr(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", creds.addr(), err)
	}
	c.Timeout = dialTimeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("authentication failed for %s: %w", creds.Username, err)
	}

	if _, err := c.Select(inbox, true); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}
	return c, nil
}

// session wraps one logged-in connection with INBOX selected. The client
// runs one command at a time, so calls are serialized.
type session struct {
	mu sync.Mutex
	c  *client.Client
}

// Open dials, logs in and selects INBOX read-only.
func (s *Service) Open(ctx context.Context, creds Credentials) (emaildomain.MailSession, error) {
	c, err := s.connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &session{c: c}, nil
}

// ListMessageIDs returns INBOX UIDs newest first. The page token is the
// lowest UID served by the previous page.
func (s *session) ListMessageIDs(ctx context.Context, pageToken string, maxResults int) (*emaildomain.MessagePage, error) {
	before, err := parseUID(pageToken)
	if err != nil {
		return nil, fmt.Errorf("invalid page token %q: %w", pageToken, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uids, err := s.c.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	return pageUIDs(uids, before, maxResults), nil
}

// GetMessageMetadata fetches the named header fields, flags and internal
// date of one message without marking it seen.
func (s *session) GetMessageMetadata(ctx context.Context, id string, headerNames []string) (*emaildomain.MessageMetadata, error) {
	uid, err := parseUID(id)
	if err != nil || uid == 0 {
		return nil, fmt.Errorf("invalid message id %q", id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    headerNames,
		},
		Peek: true,
	}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, section.FetchItem()}

	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqset, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s not found", id)
	}

	meta, err := parseHeader(msg.GetBody(section))
	if err != nil {
		return nil, fmt.Errorf("parsing headers of %s: %w", id, err)
	}
	meta.ID = id
	meta.InternalDate = msg.InternalDate.UnixMilli()
	meta.IsRead = hasFlag(msg.Flags, imap.SeenFlag)
	return meta, nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Logout()
}

// parseUID reads a decimal UID; the empty string is zero.
func parseUID(v string) (uint32, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// pageUIDs picks the next page from an unordered UID list. Only UIDs below
// before are eligible when before is non-zero.
func pageUIDs(uids []uint32, before uint32, maxResults int) *emaildomain.MessagePage {
	sorted := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if before == 0 || uid < before {
			sorted = append(sorted, uid)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	page := &emaildomain.MessagePage{}
	if maxResults > 0 && len(sorted) > maxResults {
		page.NextPageToken = strconv.FormatUint(uint64(sorted[maxResults-1]), 10)
		sorted = sorted[:maxResults]
	}

	page.IDs = make([]string, len(sorted))
	for i, uid := range sorted {
		page.IDs[i] = strconv.FormatUint(uint64(uid), 10)
	}
	return page
}

// parseHeader decodes an RFC 5322 header block. Encoded words in any
// registered charset are converted to UTF-8.
func parseHeader(r io.Reader) (*emaildomain.MessageMetadata, error) {
	if r == nil {
		return &emaildomain.MessageMetadata{}, nil
	}

	raw, err := textproto.ReadHeader(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	h := mail.Header{}
	h.Header.Header = raw

	meta := &emaildomain.MessageMetadata{}
	if meta.Subject, err = h.Subject(); err != nil {
		meta.Subject = h.Get("Subject")
	}
	if meta.Sender, err = h.Text("From"); err != nil {
		meta.Sender = h.Get("From")
	}
	meta.Date = h.Get("Date")
	return meta, nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
