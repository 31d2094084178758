package api

import (
	authUsecase "mailmirror-backend/internal/auth/usecase"
	emailDelivery "mailmirror-backend/internal/email/delivery"
	emailUsecasePkg "mailmirror-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	emailHandler *emailDelivery.EmailHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, mirrorUc emailUsecasePkg.MailMirrorUsecase) *Handler {
	return &Handler{
		authUsecase:  authUc,
		emailHandler: emailDelivery.NewEmailHandler(mirrorUc),
	}
}

// Engine builds the gin engine with CORS and every route registered
func (h *Handler) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.emailHandler)
	return r
}
