package gmail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is called with the new token whenever the OAuth client refreshes it
type TokenUpdateFunc func(token *oauth2.Token) error

type Service struct {
	clientID      string
	clientSecret  string
	endpoint      string
	oauthEndpoint oauth2.Endpoint
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:      clientID,
		clientSecret:  clientSecret,
		oauthEndpoint: google.Endpoint,
	}
}

// WithEndpoint points the service at another Gmail API base URL
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

// GetGmailService creates Gmail service with user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     s.oauthEndpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, wrappedSource))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// session serves every call of one sync page from a single Gmail client, so
// the forced token refresh happens at most once per page.
type session struct {
	srv *gmail.Service
}

// Open builds the Gmail client for one sync page. The returned session is
// safe for concurrent use.
func (s *Service) Open(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (emaildomain.MailSession, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}
	return &session{srv: srv}, nil
}

// ListMessageIDs returns one page of message ids, newest first
func (s *session) ListMessageIDs(ctx context.Context, pageToken string, maxResults int) (*emaildomain.MessagePage, error) {
	call := s.srv.Users.Messages.List("me").MaxResults(int64(maxResults)).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	page := &emaildomain.MessagePage{
		IDs:           make([]string, 0, len(resp.Messages)),
		NextPageToken: resp.NextPageToken,
	}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

// GetMessageMetadata fetches the metadata format of one message restricted to headerNames
func (s *session) GetMessageMetadata(ctx context.Context, messageID string, headerNames []string) (*emaildomain.MessageMetadata, error) {
	msg, err := s.srv.Users.Messages.Get("me", messageID).
		Format("metadata").
		MetadataHeaders(headerNames...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get message %s: %w", messageID, err)
	}

	return convertMetadata(msg), nil
}

func (s *session) Close() error {
	return nil
}

// ValidateToken validates the access token by making a simple API call
func (s *Service) ValidateToken(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	_, err = srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return errors.New("invalid or expired access token")
	}

	return nil
}

func convertMetadata(msg *gmail.Message) *emaildomain.MessageMetadata {
	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	return &emaildomain.MessageMetadata{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Subject:      getHeader(headers, "Subject"),
		Sender:       getHeader(headers, "From"),
		Date:         getHeader(headers, "Date"),
		Snippet:      msg.Snippet,
		InternalDate: msg.InternalDate,
		IsRead:       !hasLabel(msg.LabelIds, "UNREAD"),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}
