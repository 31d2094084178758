package delivery

import (
	"net/http"

	emaildto "mailmirror-backend/internal/email/dto"

	"github.com/gin-gonic/gin"
)

// POST /api/emails/summarize
// QueueSummaries returns stored summaries immediately and queues the rest for
// background generation. New summaries are picked up by the next listing.
func (h *EmailHandler) QueueSummaries(c *gin.Context) {
	var req emaildto.QueueSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.EmailIDs) == 0 {
		c.JSON(http.StatusOK, emaildto.QueueSummaryResponse{Summaries: map[string]string{}})
		return
	}

	summaries, queued, err := h.mirrorUsecase.QueueSummaries(c.Request.Context(), c.GetString("userID"), req.EmailIDs)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.QueueSummaryResponse{
		Summaries: summaries,
		Queued:    queued,
	})
}
