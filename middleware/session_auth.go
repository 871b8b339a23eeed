package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mabletask/tracker/utils"
)

// Context keys set by the session middleware.
const (
	ContextSessionID      = "session_id"
	ContextExternalUserID = "external_user_id"
)

// SessionAuth validates the X-Session-Id token on batch submit and finalize
// requests. The token must belong to the authenticated project.
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("X-Session-Id")
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, "Missing session id")
			return
		}

		claims, err := utils.ValidateSessionToken(tokenString)
		if err != nil {
			log.Printf("SessionAuth: rejected session token: %v", err)
			utils.RespondError(c, http.StatusUnauthorized, "Invalid session id")
			return
		}

		if projectID, ok := c.Get(ContextProjectID); ok && claims.ProjectID != projectID.(int) {
			log.Printf("SessionAuth: session %s belongs to project %d, request authenticated as %v",
				claims.SessionID, claims.ProjectID, projectID)
			utils.RespondError(c, http.StatusUnauthorized, "Session does not belong to this project")
			return
		}

		c.Set(ContextSessionID, claims.SessionID)
		c.Set(ContextExternalUserID, claims.ExternalUserID)
		c.Next()
	}
}
