package delivery

import (
	"log"
	"net/http"
	"strconv"

	emaildto "mailmirror-backend/internal/email/dto"
	"mailmirror-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	mirrorUsecase usecase.MailMirrorUsecase
}

func NewEmailHandler(mirrorUsecase usecase.MailMirrorUsecase) *EmailHandler {
	return &EmailHandler{
		mirrorUsecase: mirrorUsecase,
	}
}

// POST /api/sync
// Sync ingests the newest page synchronously and returns it; older pages
// continue in the background.
func (h *EmailHandler) Sync(c *gin.Context) {
	userID := c.GetString("userID")

	batch, err := h.mirrorUsecase.SyncIncremental(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[Sync] Initial page failed for user %s: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.SyncResponse{InitialBatch: batch})
}

// GET /api/emails?limit=&offset=
func (h *EmailHandler) ListEmails(c *gin.Context) {
	limit, offset := 0, 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	limit = usecase.ClampListLimit(limit)
	emails, total, err := h.mirrorUsecase.ListMessages(c.Request.Context(), c.GetString("userID"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailsResponse{
		Emails: emails,
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

// POST /api/search/fuzzy
func (h *EmailHandler) FuzzySearch(c *gin.Context) {
	var req emaildto.FuzzySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.mirrorUsecase.FuzzySearch(c.Request.Context(), c.GetString("userID"), req.Query, req.Page, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// POST /api/search/semantic
func (h *EmailHandler) SemanticSearch(c *gin.Context) {
	var req emaildto.SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.mirrorUsecase.SemanticSearch(c.Request.Context(), c.GetString("userID"), req.Query, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.ToSemanticResults(results))
}

// GET /api/suggest?query=
func (h *EmailHandler) Suggest(c *gin.Context) {
	suggestions, err := h.mirrorUsecase.Suggest(c.Request.Context(), c.GetString("userID"), c.Query("query"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, suggestions)
}
