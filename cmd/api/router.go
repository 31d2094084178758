package api

import (
	"net/http"

	"mailmirror-backend/internal/auth/delivery"
	authUsecase "mailmirror-backend/internal/auth/usecase"
	emailDelivery "mailmirror-backend/internal/email/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, emailHandler *emailDelivery.EmailHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		protected := api.Group("")
		protected.Use(delivery.AuthMiddleware(authUsecase))
		{
			protected.POST("/sync", emailHandler.Sync)
			protected.GET("/suggest", emailHandler.Suggest)

			emails := protected.Group("/emails")
			{
				emails.GET("", emailHandler.ListEmails)
				emails.POST("/summarize", emailHandler.QueueSummaries)
			}

			search := protected.Group("/search")
			{
				search.POST("/fuzzy", emailHandler.FuzzySearch)
				search.POST("/semantic", emailHandler.SemanticSearch)
			}
		}
	}
}
