package usecase

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/internal/email/repository"
)

type searchFixture struct {
	repo     *spyRepository
	history  repository.QueryHistoryRepository
	embedder *fakeEmbedder
	engine   *SearchEngine
	now      time.Time
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	f := &searchFixture{
		repo:     &spyRepository{MessageRepository: repository.NewMemoryMessageRepository()},
		history:  repository.NewMemoryQueryHistoryRepository(),
		embedder: newFakeEmbedder(),
		now:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.engine = NewSearchEngine(f.repo, f.history, f.embedder, 0.1)
	f.engine.now = func() time.Time { return f.now }
	return f
}

func (f *searchFixture) add(t *testing.T, id, subject, sender string, date int64) {
	t.Helper()
	err := f.repo.UpsertMany(context.Background(), []*emaildomain.Message{{
		UserID: "u1", ID: id, Subject: subject, Sender: sender, InternalDate: date,
	}})
	if err != nil {
		t.Fatalf("add %s: %v", id, err)
	}
}

func TestFuzzySearchEmptyQuery(t *testing.T) {
	f := newSearchFixture(t)
	f.add(t, "m1", "Anything", "a@x.com", 1)

	for _, q := range []string{"", "   ", "\t\n"} {
		res, err := f.engine.FuzzySearch(context.Background(), "u1", q, 0, 0)
		if err != nil {
			t.Fatalf("query %q: %v", q, err)
		}
		if len(res.Data) != 0 || res.TotalResult != 0 || res.Page != 1 || res.Limit != defaultFuzzyLimit {
			t.Errorf("query %q: unexpected result %+v", q, res)
		}
	}
}

func TestFuzzySearchPaging(t *testing.T) {
	f := newSearchFixture(t)
	f.add(t, "m1", "Quarterly report", "finance@corp.com", 1)
	f.add(t, "m2", "Quarterly report", "finance@corp.com", 2)
	f.add(t, "m3", "Quarterly report", "finance@corp.com", 3)
	f.add(t, "m4", "Lunch", "bob@corp.com", 4)

	res, err := f.engine.FuzzySearch(context.Background(), "u1", "Quartely Report", 2, 2)
	if err != nil {
		t.Fatalf("fuzzy: %v", err)
	}
	if res.TotalResult != 3 || res.Page != 2 || res.Limit != 2 {
		t.Fatalf("unexpected envelope %+v", res)
	}
	if len(res.Data) != 1 || res.Data[0].ID != "m1" {
		t.Errorf("second page should hold the oldest match, got %v", res.Data)
	}

	capped, _ := f.engine.FuzzySearch(context.Background(), "u1", "report", 1, 1000)
	if capped.Limit != maxSearchLimit {
		t.Errorf("limit = %d, want cap %d", capped.Limit, maxSearchLimit)
	}
}

func TestFuzzySearchFoldsAccents(t *testing.T) {
	f := newSearchFixture(t)
	f.add(t, "m1", "Café meeting", "a@x.com", 1)

	res, err := f.engine.FuzzySearch(context.Background(), "u1", "CAFE", 1, 10)
	if err != nil || len(res.Data) != 1 {
		t.Fatalf("accent-folded query should match, got %+v (%v)", res, err)
	}
	if res.Data[0].Score <= 0 || res.Data[0].Score > 1 {
		t.Errorf("score %v out of (0,1]", res.Data[0].Score)
	}
}

func TestSemanticSearchEmptyEmbedding(t *testing.T) {
	f := newSearchFixture(t)
	f.embedder.failures["budget"] = -1

	res, err := f.engine.SemanticSearch(context.Background(), "u1", "budget", 5)
	if err != nil {
		t.Fatalf("semantic: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected an empty non-nil result, got %v", res)
	}
	if f.repo.nearestCalls != 0 {
		t.Errorf("store queried %d times for an empty embedding", f.repo.nearestCalls)
	}

	if _, err := f.engine.SemanticSearch(context.Background(), "u1", "  ", 5); err != nil {
		t.Fatalf("blank query: %v", err)
	}
	if f.embedder.totalCalls() != 1 {
		t.Errorf("blank query should not reach the provider")
	}
	f.engine.Wait()
	if h, _ := f.history.FindByPrefix(context.Background(), "u1", "", 5); len(h) != 0 {
		t.Errorf("failed searches must not be recorded, got %v", h)
	}
}

func TestSemanticSearchRanksAndRecordsHistory(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	f.add(t, "close", "a", "x", 1)
	f.add(t, "far", "b", "x", 2)
	f.add(t, "bare", "c", "x", 3)
	_ = f.repo.UpdateEmbedding(ctx, "u1", "close", emaildomain.Vector{1, 0.1, 0})
	_ = f.repo.UpdateEmbedding(ctx, "u1", "far", emaildomain.Vector{0, 1, 0})

	res, err := f.engine.SemanticSearch(ctx, "u1", "  budget  ", 0)
	if err != nil {
		t.Fatalf("semantic: %v", err)
	}
	if len(res) != 2 || res[0].ID != "close" || res[1].ID != "far" {
		t.Fatalf("unexpected ranking %v", res)
	}
	if res[0].Score <= res[1].Score {
		t.Errorf("similarity should decrease: %v then %v", res[0].Score, res[1].Score)
	}

	_, _ = f.engine.SemanticSearch(ctx, "u1", "budget", 0)
	f.engine.Wait()

	h, err := f.history.FindByPrefix(ctx, "u1", "bud", 5)
	if err != nil || len(h) != 1 {
		t.Fatalf("history: %v %v", h, err)
	}
	if h[0].QueryText != "budget" || h[0].OccurrenceCount != 2 {
		t.Errorf("unexpected history entry %+v", h[0])
	}
}

func TestSemanticSearchIgnoresHistoryFailure(t *testing.T) {
	f := newSearchFixture(t)
	f.engine.history = failingHistory{}

	res, err := f.engine.SemanticSearch(context.Background(), "u1", "budget", 5)
	f.engine.Wait()
	if err != nil || res == nil {
		t.Fatalf("history failure leaked to the caller: %v", err)
	}
}

func TestSuggestScenario(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	f.add(t, "m1", "Lunch", "alice@x.com", 1)
	f.add(t, "m2", "Budget", "alice@x.com", 2)
	f.add(t, "m3", "Report", "alice@x.com", 3)
	yesterday := f.now.Add(-24 * time.Hour)
	_ = f.history.Record(ctx, "u1", "alpha", yesterday)
	_ = f.history.Record(ctx, "u1", "alpha", yesterday)

	got, err := f.engine.Suggest(ctx, "u1", "al")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", got)
	}

	wantSender := 0.6 + math.Log(4)/10
	wantHistory := 0.7*math.Log(3)/5 + 0.3*(1-1.0/30)
	if got[0].Type != emaildomain.SuggestionSender || got[0].Value != "alice@x.com" || math.Abs(got[0].Score-wantSender) > 1e-9 {
		t.Errorf("first suggestion = %+v, want sender alice@x.com %.4f", got[0], wantSender)
	}
	if got[1].Type != emaildomain.SuggestionQuery || got[1].Value != "alpha" || math.Abs(got[1].Score-wantHistory) > 1e-9 {
		t.Errorf("second suggestion = %+v, want query alpha %.4f", got[1], wantHistory)
	}
}

func TestSuggestDeduplicatesAndCaps(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	f.add(t, "m1", "Alpha alpine", "al@x.com", 1)
	f.add(t, "m2", "alps album", "alan@x.com", 2)
	f.add(t, "m3", "ALPHA review", "alex@x.com", 3)
	_ = f.history.Record(ctx, "u1", "ALPHA", f.now)

	got, err := f.engine.Suggest(ctx, "u1", "  AL ")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(got) > maxSuggestions {
		t.Fatalf("got %d suggestions, cap is %d", len(got), maxSuggestions)
	}
	seen := map[string]bool{}
	for i, s := range got {
		key := strings.ToLower(s.Value)
		if seen[key] {
			t.Errorf("duplicate value %q in %+v", s.Value, got)
		}
		seen[key] = true
		if i > 0 && got[i-1].Score < s.Score {
			t.Errorf("suggestions not sorted by score: %+v", got)
		}
	}
}

func TestSuggestEmptyQuery(t *testing.T) {
	f := newSearchFixture(t)
	got, err := f.engine.Suggest(context.Background(), "u1", "   ")
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("expected empty suggestions, got %v (%v)", got, err)
	}
}

func TestSuggestSkipsFailingSource(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	f.add(t, "m1", "Alpha launch", "alice@x.com", 1)
	f.engine.history = failingHistory{}

	got, err := f.engine.Suggest(ctx, "u1", "al")
	if err != nil {
		t.Fatalf("history failure leaked to the caller: %v", err)
	}
	types := map[emaildomain.SuggestionType]bool{}
	for _, s := range got {
		types[s.Type] = true
	}
	if !types[emaildomain.SuggestionSender] || !types[emaildomain.SuggestionSubject] {
		t.Errorf("expected sender and subject suggestions, got %+v", got)
	}

	f.repo.failSenders = true
	got, err = f.engine.Suggest(ctx, "u1", "al")
	if err != nil || len(got) != 1 || got[0].Type != emaildomain.SuggestionSubject {
		t.Errorf("expected only the subject keyword, got %+v (%v)", got, err)
	}
}

func TestSuggestFailsWhenEverySourceFails(t *testing.T) {
	f := newSearchFixture(t)
	f.engine.history = failingHistory{}
	f.repo.failSenders = true
	f.repo.failKeywords = true
	if _, err := f.engine.Suggest(context.Background(), "u1", "al"); err == nil {
		t.Error("expected an error when no source answers")
	}
}

func TestMergeSuggestionsKeepsMaxScore(t *testing.T) {
	a := []emaildomain.Suggestion{{Type: emaildomain.SuggestionSubject, Value: "Alpha", Score: 0.5}}
	b := []emaildomain.Suggestion{{Type: emaildomain.SuggestionQuery, Value: "alpha", Score: 0.8}}
	c := []emaildomain.Suggestion{{Type: emaildomain.SuggestionSender, Value: "ALPHA", Score: 0.7}}

	got := mergeSuggestions(5, a, b, c)
	if len(got) != 1 {
		t.Fatalf("expected one merged entry, got %+v", got)
	}
	if got[0].Score != 0.8 || got[0].Type != emaildomain.SuggestionQuery {
		t.Errorf("merged entry %+v should keep the max score", got[0])
	}
}

func TestSuggestionScoreBounds(t *testing.T) {
	for _, freq := range []int{0, 1, 2, 10, 100, 1e6} {
		if s := SenderScore(freq); s < 0.6 || s > 0.95 {
			t.Errorf("SenderScore(%d) = %v", freq, s)
		}
		if s := SubjectScore(freq); s < 0.4 || s > 0.85 {
			t.Errorf("SubjectScore(%d) = %v", freq, s)
		}
	}
	for _, count := range []int{1, 5, 1000, 1e9} {
		for _, days := range []float64{0, 1, 29, 30, 365} {
			if s := HistoryScore(count, days); s < 0 || s > 1 {
				t.Errorf("HistoryScore(%d, %v) = %v", count, days, s)
			}
		}
	}
}
