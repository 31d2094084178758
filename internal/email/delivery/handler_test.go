package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type fakeMirror struct {
	syncErr     error
	summaryErr  error
	lastQuery   string
	lastPage    int
	lastLimit   int
	lastUserID  string
	suggestions []emaildomain.Suggestion
}

func (f *fakeMirror) SyncIncremental(_ context.Context, userID string) ([]*emaildomain.Message, error) {
	f.lastUserID = userID
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return []*emaildomain.Message{{UserID: userID, ID: "m1", Subject: "hi"}}, nil
}

func (f *fakeMirror) ListMessages(_ context.Context, userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	f.lastUserID, f.lastLimit = userID, limit
	return []*emaildomain.Message{{ID: "m1"}}, 7, nil
}

func (f *fakeMirror) FuzzySearch(_ context.Context, userID, query string, page, limit int) (*usecase.FuzzyResult, error) {
	f.lastUserID, f.lastQuery, f.lastPage, f.lastLimit = userID, query, page, limit
	return &usecase.FuzzyResult{Data: []*emaildomain.ScoredMessage{}, Page: 1, Limit: 20}, nil
}

func (f *fakeMirror) SemanticSearch(_ context.Context, userID, query string, limit int) ([]*emaildomain.ScoredMessage, error) {
	f.lastUserID, f.lastQuery = userID, query
	return []*emaildomain.ScoredMessage{{Message: emaildomain.Message{ID: "m2"}, Score: 0.8}}, nil
}

func (f *fakeMirror) Suggest(_ context.Context, userID, query string) ([]emaildomain.Suggestion, error) {
	f.lastUserID, f.lastQuery = userID, query
	return f.suggestions, nil
}

func (f *fakeMirror) QueueSummaries(_ context.Context, userID string, ids []string) (map[string]string, int, error) {
	if f.summaryErr != nil {
		return nil, 0, f.summaryErr
	}
	return map[string]string{"m1": "done"}, len(ids) - 1, nil
}

func newTestRouter(mirror *fakeMirror) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})

	h := NewEmailHandler(mirror)
	r.POST("/api/sync", h.Sync)
	r.GET("/api/emails", h.ListEmails)
	r.POST("/api/search/fuzzy", h.FuzzySearch)
	r.POST("/api/search/semantic", h.SemanticSearch)
	r.GET("/api/suggest", h.Suggest)
	r.POST("/api/emails/summarize", h.QueueSummaries)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSyncReturnsInitialBatch(t *testing.T) {
	mirror := &fakeMirror{}
	w := do(newTestRouter(mirror), http.MethodPost, "/api/sync", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		InitialBatch []map[string]any `json:"initialBatch"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.InitialBatch) != 1 || mirror.lastUserID != "u1" {
		t.Errorf("batch = %v, user = %q", resp.InitialBatch, mirror.lastUserID)
	}
}

func TestSyncSurfacesFirstPageError(t *testing.T) {
	w := do(newTestRouter(&fakeMirror{syncErr: errors.New("gmail down")}), http.MethodPost, "/api/sync", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestFuzzySearchBindsBody(t *testing.T) {
	mirror := &fakeMirror{}
	w := do(newTestRouter(mirror), http.MethodPost, "/api/search/fuzzy", `{"query":"meetng","page":2,"limit":5}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if mirror.lastQuery != "meetng" || mirror.lastPage != 2 || mirror.lastLimit != 5 {
		t.Errorf("forwarded %q page %d limit %d", mirror.lastQuery, mirror.lastPage, mirror.lastLimit)
	}
	if !strings.Contains(w.Body.String(), `"totalResult"`) {
		t.Errorf("body missing totalResult: %s", w.Body.String())
	}

	if w := do(newTestRouter(mirror), http.MethodPost, "/api/search/fuzzy", `{bad json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}
}

func TestSemanticSearchReportsSimilarity(t *testing.T) {
	w := do(newTestRouter(&fakeMirror{}), http.MethodPost, "/api/search/semantic", `{"query":"invoices"}`)

	var results []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	if len(results) != 1 || results[0]["similarity"] != 0.8 || results[0]["id"] != "m2" {
		t.Errorf("results = %v", results)
	}
}

func TestSuggestPassesQuery(t *testing.T) {
	mirror := &fakeMirror{suggestions: []emaildomain.Suggestion{{Type: emaildomain.SuggestionSender, Value: "alice@x.com", Score: 1}}}
	w := do(newTestRouter(mirror), http.MethodGet, "/api/suggest?query=ali", "")

	if w.Code != http.StatusOK || mirror.lastQuery != "ali" {
		t.Fatalf("status = %d, query = %q", w.Code, mirror.lastQuery)
	}
	if !strings.Contains(w.Body.String(), "alice@x.com") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListEmails(t *testing.T) {
	mirror := &fakeMirror{}
	w := do(newTestRouter(mirror), http.MethodGet, "/api/emails?limit=10&offset=abc", "")

	if w.Code != http.StatusOK || mirror.lastLimit != 10 {
		t.Fatalf("status = %d, limit = %d", w.Code, mirror.lastLimit)
	}
	if !strings.Contains(w.Body.String(), `"total":7`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListEmailsReportsAppliedLimit(t *testing.T) {
	cases := map[string]string{
		"/api/emails":            `"limit":50`,
		"/api/emails?limit=0":    `"limit":50`,
		"/api/emails?limit=1000": `"limit":200`,
		"/api/emails?limit=25":   `"limit":25`,
	}
	for url, want := range cases {
		w := do(newTestRouter(&fakeMirror{}), http.MethodGet, url, "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), want) {
			t.Errorf("%s: status = %d, body = %s, want %s", url, w.Code, w.Body.String(), want)
		}
	}
}

func TestQueueSummaries(t *testing.T) {
	w := do(newTestRouter(&fakeMirror{}), http.MethodPost, "/api/emails/summarize", `{"email_ids":["m1","m2"]}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"queued":1`) {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(newTestRouter(&fakeMirror{summaryErr: errors.New("no provider")}), http.MethodPost, "/api/emails/summarize", `{"email_ids":["m1"]}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
