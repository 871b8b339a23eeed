package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mabletask/tracker/middleware"
	"mabletask/tracker/models"
	"mabletask/tracker/utils"
)

// SessionStore is the relational side: session rows live in Postgres.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	FinalizeSession(ctx context.Context, sessionID string) error
}

// EventStore is the analytical side: event batches land in ClickHouse.
type EventStore interface {
	InsertEvents(ctx context.Context, projectID int, sessionID, externalUserID string, events []models.NormalizedEvent) error
}

type TrackHandlers struct {
	Sessions SessionStore
	Events   EventStore
	Projects middleware.ProjectAuthenticator
}

func NewTrackHandlers(sessions SessionStore, events EventStore, projects middleware.ProjectAuthenticator) *TrackHandlers {
	return &TrackHandlers{
		Sessions: sessions,
		Events:   events,
		Projects: projects,
	}
}

// InitSession opens a tracking session and returns its signed session id.
func (h *TrackHandlers) InitSession(c *gin.Context) {
	var req models.InitSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding init session JSON: %v", err)
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	project := c.MustGet(middleware.ContextProject).(*models.Project)

	externalUserID := req.ExternalUserID
	if externalUserID == "" {
		externalUserID = "anon-" + uuid.New().String()
	}

	session := &models.Session{
		ID:             uuid.New().String(),
		ProjectID:      project.ID,
		ExternalUserID: externalUserID,
		Metadata:       req.Metadata,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.Sessions.CreateSession(ctx, session); err != nil {
		log.Printf("Error creating tracking session: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	token, err := utils.GenerateSessionToken(session)
	if err != nil {
		log.Printf("Error signing session token for session %s: %v", session.ID, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.RespondData(c, http.StatusOK, gin.H{"sessionId": token})
}

// TrackEvents ingests one ordered batch of normalized events.
func (h *TrackHandlers) TrackEvents(c *gin.Context) {
	var batch models.EventBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		log.Printf("Error binding event batch JSON: %v", err)
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(batch.Events) == 0 {
		utils.RespondData(c, http.StatusOK, gin.H{"eventsReceived": 0})
		return
	}

	projectID := c.MustGet(middleware.ContextProjectID).(int)
	sessionID := c.MustGet(middleware.ContextSessionID).(string)
	externalUserID := c.GetString(middleware.ContextExternalUserID)

	// Every event record gets a server-assigned id.
	for i := range batch.Events {
		batch.Events[i].EventID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Events.InsertEvents(ctx, projectID, sessionID, externalUserID, batch.Events); err != nil {
		log.Printf("Error inserting tracked events into ClickHouse: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to record events")
		return
	}

	utils.RespondData(c, http.StatusOK, gin.H{"eventsReceived": len(batch.Events)})
}

// SubmitSession marks a session complete.
func (h *TrackHandlers) SubmitSession(c *gin.Context) {
	sessionID := c.MustGet(middleware.ContextSessionID).(string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.Sessions.FinalizeSession(ctx, sessionID); err != nil {
		log.Printf("Error finalizing session %s: %v", sessionID, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to submit session")
		return
	}

	utils.RespondMessage(c, http.StatusOK, "Session submitted")
}

// Beacon is the teardown fallback sink. Credentials arrive inside the
// payload because the client's one-shot send primitive cannot set headers.
// The path is unacknowledged: the response is always 204 with no envelope,
// and every failure is swallowed after logging.
func (h *TrackHandlers) Beacon(c *gin.Context) {
	defer c.Status(http.StatusNoContent)

	var payload models.BeaconPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Beacon: invalid payload: %v", err)
		return
	}
	if len(payload.Events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	project, err := h.Projects.Authenticate(ctx, payload.ProjectKey)
	if err != nil {
		log.Printf("Beacon: rejected project key: %v", err)
		return
	}

	claims, err := utils.ValidateSessionToken(payload.SessionID)
	if err != nil || claims.ProjectID != project.ID {
		log.Printf("Beacon: rejected session token: %v", err)
		return
	}

	for i := range payload.Events {
		payload.Events[i].EventID = uuid.New().String()
	}

	if err := h.Events.InsertEvents(ctx, project.ID, claims.SessionID, claims.ExternalUserID, payload.Events); err != nil {
		log.Printf("Beacon: failed to store %d events for session %s: %v", len(payload.Events), claims.SessionID, err)
	}
}
