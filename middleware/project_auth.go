package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mabletask/tracker/models"
	"mabletask/tracker/utils"
)

// Context keys set by the auth middleware for downstream handlers.
const (
	ContextProject   = "project"
	ContextProjectID = "project_id"
)

// ProjectAuthenticator resolves a raw project key to its project.
type ProjectAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.Project, error)
}

// ProjectAuth validates the X-Project-Key header on every tracking request.
func ProjectAuth(projects ProjectAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader("X-Project-Key")
		if rawKey == "" {
			utils.RespondError(c, http.StatusUnauthorized, "Missing project key")
			return
		}

		project, err := projects.Authenticate(c.Request.Context(), rawKey)
		if err != nil {
			log.Printf("ProjectAuth: rejected project key: %v", err)
			utils.RespondError(c, http.StatusUnauthorized, "Invalid project key")
			return
		}

		c.Set(ContextProject, project)
		c.Set(ContextProjectID, project.ID)
		c.Next()
	}
}
