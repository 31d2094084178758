package repository

import (
	"sort"
	"strings"
	"time"

	emaildomain "mailmirror-backend/internal/email/domain"
	"mailmirror-backend/pkg/fuzzy"
	"mailmirror-backend/pkg/vector"
)

// Drivers without pg_trgm or pgvector rank in process with the same rules.

func rankFuzzy(messages []*emaildomain.Message, query string, threshold float64) []*emaildomain.ScoredMessage {
	out := make([]*emaildomain.ScoredMessage, 0)
	for _, m := range messages {
		if !fuzzy.Matches(query, m.Subject, threshold) && !fuzzy.Matches(query, m.Sender, threshold) {
			continue
		}
		out = append(out, &emaildomain.ScoredMessage{Message: *m, Score: fuzzy.Score(query, m.Subject, m.Sender)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].InternalDate > out[j].InternalDate
	})
	return out
}

func rankNearest(messages []*emaildomain.Message, query emaildomain.Vector, limit int) []*emaildomain.ScoredMessage {
	type hit struct {
		msg      *emaildomain.Message
		distance float64
	}
	hits := make([]hit, 0, len(messages))
	for _, m := range messages {
		if !m.HasEmbedding() {
			continue
		}
		hits = append(hits, hit{msg: m, distance: vector.CosineDistance(query, m.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]*emaildomain.ScoredMessage, len(hits))
	for i, h := range hits {
		out[i] = &emaildomain.ScoredMessage{Message: *h.msg, Score: 1 - h.distance}
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// countKeywords splits subjects on whitespace and counts lower-cased words
// that contain fragment.
func countKeywords(subjects []string, fragment string, limit int) []emaildomain.TermCount {
	fragment = strings.ToLower(fragment)
	counts := make(map[string]int)
	for _, subject := range subjects {
		for _, word := range strings.Fields(strings.ToLower(subject)) {
			if strings.Contains(word, fragment) {
				counts[word]++
			}
		}
	}
	return topTerms(counts, limit)
}

func countSenders(senders []string, prefix string, limit int) []emaildomain.TermCount {
	prefix = strings.ToLower(prefix)
	counts := make(map[string]int)
	for _, sender := range senders {
		if sender != "" && strings.HasPrefix(strings.ToLower(sender), prefix) {
			counts[sender]++
		}
	}
	return topTerms(counts, limit)
}

func topTerms(counts map[string]int, limit int) []emaildomain.TermCount {
	out := make([]emaildomain.TermCount, 0, len(counts))
	for term, n := range counts {
		out = append(out, emaildomain.TermCount{Term: term, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortHistory(items []*emaildomain.QueryHistory) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].OccurrenceCount != items[j].OccurrenceCount {
			return items[i].OccurrenceCount > items[j].OccurrenceCount
		}
		return items[i].LastUsedAt.After(items[j].LastUsedAt)
	})
}

// likePrefix escapes LIKE wildcards in s and appends a trailing %.
func likePrefix(s string) string {
	return likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func likeContains(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nowUTC() time.Time {
	return time.Now().UTC()
}
