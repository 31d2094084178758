package domain

// SuggestionType tells the client where an autocomplete value came from.
type SuggestionType string

const (
	SuggestionSender  SuggestionType = "sender"
	SuggestionSubject SuggestionType = "subject"
	SuggestionQuery   SuggestionType = "query"
)

type Suggestion struct {
	Type  SuggestionType `json:"type"`
	Value string         `json:"value"`
	Score float64        `json:"score"`
}

// TermCount is a grouped value and how many messages carry it.
type TermCount struct {
	Term  string `json:"term" db:"term"`
	Count int    `json:"count" db:"count"`
}
