// Package mailbox routes mirror reads to the remote mailbox of each user,
// Gmail or IMAP, depending on how the account was connected.
package mailbox

import (
	"context"
	"fmt"
	"log"

	authdomain "mailmirror-backend/internal/auth/domain"
	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/pkg/gmail"
	"mailmirror-backend/pkg/imap"
	"mailmirror-backend/pkg/utils/crypto"

	"golang.org/x/oauth2"
)

// AccountStore loads accounts and persists refreshed OAuth tokens.
type AccountStore interface {
	FindByID(id string) (*authdomain.User, error)
	UpdateOAuthTokens(userID, accessToken, refreshToken string) error
}

// GmailClient is the part of the Gmail service the router uses.
type GmailClient interface {
	Open(ctx context.Context, accessToken, refreshToken string, onTokenRefresh gmail.TokenUpdateFunc) (emaildomain.MailSession, error)
}

// IMAPClient is the part of the IMAP service the router uses.
type IMAPClient interface {
	Open(ctx context.Context, creds imap.Credentials) (emaildomain.MailSession, error)
}

// Router implements emaildomain.MailTransport for every connected account.
type Router struct {
	accounts      AccountStore
	gmail         GmailClient
	imap          IMAPClient
	encryptionKey string
}

func NewRouter(accounts AccountStore, gmailClient GmailClient, imapClient IMAPClient, encryptionKey string) *Router {
	return &Router{
		accounts:      accounts,
		gmail:         gmailClient,
		imap:          imapClient,
		encryptionKey: encryptionKey,
	}
}

var _ emaildomain.MailTransport = (*Router)(nil)

// Open loads the account once and opens a session on its provider.
func (r *Router) Open(ctx context.Context, userID string) (emaildomain.MailSession, error) {
	user, err := r.account(userID)
	if err != nil {
		return nil, err
	}

	if user.Provider == authdomain.ProviderIMAP {
		creds, err := r.credentials(user)
		if err != nil {
			return nil, err
		}
		return r.imap.Open(ctx, creds)
	}
	return r.gmail.Open(ctx, user.AccessToken, user.RefreshToken, r.tokenSaver(userID))
}

func (r *Router) account(userID string) (*authdomain.User, error) {
	user, err := r.accounts.FindByID(userID)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("account %s not found", userID)
	}
	return user, nil
}

func (r *Router) credentials(user *authdomain.User) (imap.Credentials, error) {
	password, err := crypto.DecryptString(user.ImapPassword, r.encryptionKey)
	if err != nil {
		return imap.Credentials{}, fmt.Errorf("decrypting IMAP password for %s: %w", user.ID, err)
	}
	return imap.Credentials{
		Server:   user.ImapServer,
		Port:     user.ImapPort,
		Username: user.Email,
		Password: password,
	}, nil
}

func (r *Router) tokenSaver(userID string) gmail.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		log.Printf("[Sync] Refreshed Gmail token for user %s", userID)
		return r.accounts.UpdateOAuthTokens(userID, token.AccessToken, token.RefreshToken)
	}
}
