package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authRepo "mailmirror-backend/internal/auth/repository"
	authUsecase "mailmirror-backend/internal/auth/usecase"
	emailRepo "mailmirror-backend/internal/email/repository"
	emailUsecase "mailmirror-backend/internal/email/usecase"
)

func newTestHandler() *Handler {
	auth := authUsecase.NewAuthUsecase(authRepo.NewMemoryUserRepository(), "secret", time.Hour)
	messages := emailRepo.NewMemoryMessageRepository()
	search := emailUsecase.NewSearchEngine(messages, emailRepo.NewMemoryQueryHistoryRepository(), nil, 0)
	mirror := emailUsecase.NewMailMirrorUsecase(messages, nil, search, nil)
	return NewHandler(auth, mirror)
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestHandler().Engine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestMirrorRoutesRequireAuth(t *testing.T) {
	r := newTestHandler().Engine()

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/sync"},
		{http.MethodGet, "/api/suggest?query=a"},
		{http.MethodGet, "/api/emails"},
		{http.MethodPost, "/api/search/fuzzy"},
		{http.MethodPost, "/api/search/semantic"},
		{http.MethodPost, "/api/emails/summarize"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", route.method, route.path, w.Code)
		}
	}
}

func TestPreflight(t *testing.T) {
	r := newTestHandler().Engine()

	req := httptest.NewRequest(http.MethodOptions, "/api/sync", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}
