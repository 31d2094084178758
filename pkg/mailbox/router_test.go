package mailbox

import (
	"context"
	"testing"

	authdomain "mailmirror-backend/internal/auth/domain"
	"mailmirror-backend/internal/auth/repository"
	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/pkg/gmail"
	"mailmirror-backend/pkg/imap"
	"mailmirror-backend/pkg/utils/crypto"

	"golang.org/x/oauth2"
)

type fakeSession struct {
	source string
}

func (s *fakeSession) ListMessageIDs(context.Context, string, int) (*emaildomain.MessagePage, error) {
	return &emaildomain.MessagePage{IDs: []string{s.source + "1"}}, nil
}

func (s *fakeSession) GetMessageMetadata(_ context.Context, id string, _ []string) (*emaildomain.MessageMetadata, error) {
	return &emaildomain.MessageMetadata{ID: id, Subject: "from " + s.source}, nil
}

func (s *fakeSession) Close() error { return nil }

type fakeGmail struct {
	accessToken string
	refresh     *oauth2.Token
	opens       int
}

func (f *fakeGmail) Open(_ context.Context, accessToken, _ string, onTokenRefresh gmail.TokenUpdateFunc) (emaildomain.MailSession, error) {
	f.opens++
	f.accessToken = accessToken
	if f.refresh != nil {
		if err := onTokenRefresh(f.refresh); err != nil {
			return nil, err
		}
	}
	return &fakeSession{source: "gmail"}, nil
}

type fakeIMAP struct {
	creds imap.Credentials
	opens int
}

func (f *fakeIMAP) Open(_ context.Context, creds imap.Credentials) (emaildomain.MailSession, error) {
	f.opens++
	f.creds = creds
	return &fakeSession{source: "imap"}, nil
}

func TestRouterPicksTransportByProvider(t *testing.T) {
	accounts := repository.NewMemoryUserRepository()
	sealed, err := crypto.EncryptString("pw", "key")
	if err != nil {
		t.Fatal(err)
	}
	google := &authdomain.User{ID: "g", Email: "g@x.com", Provider: authdomain.ProviderGoogle, AccessToken: "tok"}
	mail := &authdomain.User{ID: "i", Email: "i@x.com", Provider: authdomain.ProviderIMAP, ImapServer: "imap.x.com", ImapPort: 993, ImapPassword: sealed}
	_ = accounts.Create(google)
	_ = accounts.Create(mail)

	gm, im := &fakeGmail{}, &fakeIMAP{}
	router := NewRouter(accounts, gm, im, "key")
	ctx := context.Background()

	sess, err := router.Open(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	page, err := sess.ListMessageIDs(ctx, "", 10)
	if err != nil || page.IDs[0] != "gmail1" || gm.accessToken != "tok" {
		t.Errorf("gmail list = %+v, %v (token %q)", page, err, gm.accessToken)
	}

	sess, err = router.Open(ctx, "i")
	if err != nil {
		t.Fatal(err)
	}
	meta, err := sess.GetMessageMetadata(ctx, "42", emaildomain.MetadataHeaders)
	if err != nil || meta.Subject != "from imap" {
		t.Fatalf("imap metadata = %+v, %v", meta, err)
	}
	want := imap.Credentials{Server: "imap.x.com", Port: 993, Username: "i@x.com", Password: "pw"}
	if im.creds != want {
		t.Errorf("credentials = %+v, want %+v", im.creds, want)
	}
}

func TestRouterPersistsRefreshedTokensOncePerSession(t *testing.T) {
	accounts := &countingAccounts{UserRepository: repository.NewMemoryUserRepository()}
	_ = accounts.Create(&authdomain.User{ID: "g", Provider: authdomain.ProviderGoogle, AccessToken: "old", RefreshToken: "r"})

	gm := &fakeGmail{refresh: &oauth2.Token{AccessToken: "new"}}
	router := NewRouter(accounts, gm, &fakeIMAP{}, "key")
	ctx := context.Background()

	sess, err := router.Open(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.ListMessageIDs(ctx, "", 10); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := sess.GetMessageMetadata(ctx, id, nil); err != nil {
			t.Fatal(err)
		}
	}

	if gm.opens != 1 || accounts.updates != 1 {
		t.Errorf("opens = %d, token writes = %d, want 1/1", gm.opens, accounts.updates)
	}
	user, _ := accounts.FindByID("g")
	if user.AccessToken != "new" || user.RefreshToken != "r" {
		t.Errorf("tokens = %q/%q, want new/r", user.AccessToken, user.RefreshToken)
	}
}

func TestRouterErrors(t *testing.T) {
	accounts := repository.NewMemoryUserRepository()
	_ = accounts.Create(&authdomain.User{ID: "i", Provider: authdomain.ProviderIMAP, ImapPassword: "garbage"})
	im := &fakeIMAP{}
	router := NewRouter(accounts, &fakeGmail{}, im, "key")
	ctx := context.Background()

	if _, err := router.Open(ctx, "missing"); err == nil {
		t.Error("unknown account should fail")
	}
	if _, err := router.Open(ctx, "i"); err == nil {
		t.Error("undecryptable password should fail")
	}
	if im.opens != 0 {
		t.Errorf("imap dialled %d times for a broken account", im.opens)
	}
}

type countingAccounts struct {
	repository.UserRepository
	updates int
}

func (a *countingAccounts) UpdateOAuthTokens(userID, accessToken, refreshToken string) error {
	a.updates++
	return a.UserRepository.UpdateOAuthTokens(userID, accessToken, refreshToken)
}
