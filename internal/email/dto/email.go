package dto

import (
	emaildomain "mailmirror-backend/internal/email/domain"
)

type FuzzySearchRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

type SemanticSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SemanticResult is a mirrored message with its cosine similarity to the query
type SemanticResult struct {
	*emaildomain.Message
	Similarity float64 `json:"similarity"`
}

type SyncResponse struct {
	InitialBatch []*emaildomain.Message `json:"initialBatch"`
}

type EmailsResponse struct {
	Emails []*emaildomain.Message `json:"emails"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Total  int64                  `json:"total"`
}

type QueueSummaryRequest struct {
	EmailIDs []string `json:"email_ids" binding:"required"`
}

type QueueSummaryResponse struct {
	Summaries map[string]string `json:"summaries"`
	Queued    int               `json:"queued"`
}

func ToSemanticResults(scored []*emaildomain.ScoredMessage) []SemanticResult {
	out := make([]SemanticResult, 0, len(scored))
	for _, s := range scored {
		msg := s.Message
		out = append(out, SemanticResult{Message: &msg, Similarity: s.Score})
	}
	return out
}
