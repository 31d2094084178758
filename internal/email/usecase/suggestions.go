package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	emaildomain "mailmirror-backend/internal/email/domain"

	"golang.org/x/sync/errgroup"
)

const maxSuggestions = 5

// Suggest merges sender, subject keyword and query history suggestions for
// the typed prefix into at most five entries.
func (e *SearchEngine) Suggest(ctx context.Context, userID, query string) ([]emaildomain.Suggestion, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []emaildomain.Suggestion{}, nil
	}

	// A failing source is logged and skipped; only a total failure is
	// returned to the caller.
	var (
		senders, keywords, history []emaildomain.Suggestion
		failures                   atomic.Int32
	)
	run := func(source string, gen func() ([]emaildomain.Suggestion, error), dst *[]emaildomain.Suggestion) func() error {
		return func() error {
			out, err := gen()
			if err != nil {
				failures.Add(1)
				log.Printf("[Search] %s suggestions failed for user %s: %v", source, userID, err)
				return err
			}
			*dst = out
			return nil
		}
	}

	var g errgroup.Group
	g.Go(run("Sender", func() ([]emaildomain.Suggestion, error) { return e.senderSuggestions(ctx, userID, query) }, &senders))
	g.Go(run("Subject", func() ([]emaildomain.Suggestion, error) { return e.subjectSuggestions(ctx, userID, query) }, &keywords))
	g.Go(run("History", func() ([]emaildomain.Suggestion, error) { return e.historySuggestions(ctx, userID, query) }, &history))
	if err := g.Wait(); err != nil && failures.Load() == 3 {
		return nil, fmt.Errorf("suggest failed: %w", err)
	}

	return mergeSuggestions(maxSuggestions, senders, keywords, history), nil
}

func (e *SearchEngine) senderSuggestions(ctx context.Context, userID, prefix string) ([]emaildomain.Suggestion, error) {
	terms, err := e.messages.TopSendersByPrefix(ctx, userID, prefix, maxSuggestions)
	if err != nil {
		return nil, err
	}
	out := make([]emaildomain.Suggestion, len(terms))
	for i, t := range terms {
		out[i] = emaildomain.Suggestion{Type: emaildomain.SuggestionSender, Value: t.Term, Score: SenderScore(t.Count)}
	}
	return out, nil
}

func (e *SearchEngine) subjectSuggestions(ctx context.Context, userID, fragment string) ([]emaildomain.Suggestion, error) {
	terms, err := e.messages.TopSubjectKeywords(ctx, userID, fragment, maxSuggestions)
	if err != nil {
		return nil, err
	}
	out := make([]emaildomain.Suggestion, len(terms))
	for i, t := range terms {
		out[i] = emaildomain.Suggestion{Type: emaildomain.SuggestionSubject, Value: t.Term, Score: SubjectScore(t.Count)}
	}
	return out, nil
}

func (e *SearchEngine) historySuggestions(ctx context.Context, userID, prefix string) ([]emaildomain.Suggestion, error) {
	entries, err := e.history.FindByPrefix(ctx, userID, prefix, maxSuggestions)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := make([]emaildomain.Suggestion, len(entries))
	for i, h := range entries {
		days := now.Sub(h.LastUsedAt).Hours() / 24
		out[i] = emaildomain.Suggestion{Type: emaildomain.SuggestionQuery, Value: h.QueryText, Score: HistoryScore(h.OccurrenceCount, days)}
	}
	return out, nil
}

// SenderScore is in [0.6, 0.95] and grows with how often the sender appears
func SenderScore(freq int) float64 {
	return math.Min(0.6+math.Log(float64(freq)+1)/10, 0.95)
}

// SubjectScore is in [0.4, 0.85]
func SubjectScore(freq int) float64 {
	return math.Min(0.4+math.Log(float64(freq)+1)/12, 0.85)
}

// HistoryScore weighs how often a query was used against how recently,
// with recency fading to zero after 30 days.
func HistoryScore(count int, daysSinceLastUse float64) float64 {
	freqScore := math.Log(float64(count)+1) / 5
	recencyScore := math.Max(0, 1-daysSinceLastUse/30)
	return math.Min(0.7*freqScore+0.3*recencyScore, 1)
}

// mergeSuggestions keeps one entry per case-insensitive value with the
// highest score, sorted by score desc then value.
func mergeSuggestions(limit int, lists ...[]emaildomain.Suggestion) []emaildomain.Suggestion {
	best := make(map[string]emaildomain.Suggestion)
	for _, list := range lists {
		for _, s := range list {
			key := strings.ToLower(s.Value)
			if cur, ok := best[key]; !ok || s.Score > cur.Score {
				best[key] = s
			}
		}
	}

	out := make([]emaildomain.Suggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return strings.ToLower(out[i].Value) < strings.ToLower(out[j].Value)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
