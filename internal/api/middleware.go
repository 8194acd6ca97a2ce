package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextUserID = "userID"
	contextToken  = "userToken"
)

// bearerAuth resolves the caller from their bearer token and attaches
// their identity to the request context. No session state: every request
// re-resolves against the upstream.
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		user, err := s.identity.CurrentUser(c.Request.Context(), token)
		if err != nil {
			s.logger.Warn("caller resolution failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			c.Abort()
			return
		}

		c.Set(contextUserID, user.ID)
		c.Set(contextToken, token)
		c.Next()
	}
}
