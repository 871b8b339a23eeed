package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mabletask/tracker/models"
	"mabletask/tracker/utils"
)

// ProjectAdminStore provisions projects.
type ProjectAdminStore interface {
	CreateProject(ctx context.Context, name, rawKey string) (*models.Project, error)
}

// SessionReader fetches session rows for operational lookups.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
}

type AdminHandlers struct {
	Projects ProjectAdminStore
	Sessions SessionReader
}

func NewAdminHandlers(projects ProjectAdminStore, sessions SessionReader) *AdminHandlers {
	return &AdminHandlers{
		Projects: projects,
		Sessions: sessions,
	}
}

type createProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateProject mints a new project and its API key. The raw key appears in
// this response exactly once; only its bcrypt hash is stored.
func (h *AdminHandlers) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding create project JSON: %v", err)
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	rawKey := "pk_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	project, err := h.Projects.CreateProject(ctx, req.Name, rawKey)
	if err != nil {
		log.Printf("Error creating project %q: %v", req.Name, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create project")
		return
	}

	utils.RespondData(c, http.StatusCreated, gin.H{
		"project":    project,
		"projectKey": rawKey,
	})
}

// GetSession fetches one tracking session row.
func (h *AdminHandlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	session, err := h.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("Error fetching session %s: %v", sessionID, err)
		utils.RespondError(c, http.StatusNotFound, "Session not found")
		return
	}

	utils.RespondData(c, http.StatusOK, session)
}
