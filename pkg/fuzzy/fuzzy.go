package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold mirrors the pg_trgm similarity threshold used by the
// postgres store so all store drivers agree on what "matches".
const DefaultThreshold = 0.1

// Normalize lower-cases s, folds accents and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = removeAccents(s)
	// Remove extra whitespace
	return strings.Join(strings.Fields(s), " ")
}

// Similarity returns the trigram similarity of a and b in [0,1], computed
// the way pg_trgm's similarity() does: unique padded word trigrams,
// |A∩B| / |A∪B|.
func Similarity(a, b string) float64 {
	ta := Trigrams(a)
	tb := Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// Matches reports whether a and b are similar under the given threshold,
// the in-process equivalent of pg_trgm's % operator.
func Matches(a, b string, threshold float64) bool {
	sim := Similarity(a, b)
	return sim > 0 && sim >= threshold
}

// Score is the fuzzy rank of a message for a normalized query: the best of
// subject and sender similarity.
func Score(query, subject, sender string) float64 {
	return max(Similarity(query, subject), Similarity(query, sender))
}

// Trigrams extracts the set of trigrams of s. Each alphanumeric word is
// padded with two leading spaces and one trailing space before slicing.
func Trigrams(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range words(Normalize(s)) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			out[string(padded[i:i+3])] = struct{}{}
		}
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// removeAccents removes diacritical marks from a string
// Useful for matching Vietnamese text without accents
func removeAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	// đ has no decomposition
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
}
