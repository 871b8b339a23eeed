package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"mabletask/tracker/models"
)

type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore instance.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession inserts a new tracking session row.
func (s *SessionStore) CreateSession(ctx context.Context, session *models.Session) error {
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode session metadata: %w", err)
	}

	query := `
		INSERT INTO tracking_sessions (id, project_id, external_user_id, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at;
	`
	err = s.db.QueryRowContext(ctx, query, session.ID, session.ProjectID, session.ExternalUserID, metadata).Scan(
		&session.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("Tracking session created: ID=%s, ExternalUserID=%s", session.ID, session.ExternalUserID)
	return nil
}

// FinalizeSession marks a session submitted. Finalizing twice, or finalizing
// an unknown session, is an error.
func (s *SessionStore) FinalizeSession(ctx context.Context, sessionID string) error {
	query := `
		UPDATE tracking_sessions
		SET submitted_at = NOW()
		WHERE id = $1 AND submitted_at IS NULL;
	`
	result, err := s.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalize result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session '%s' not found or already submitted", sessionID)
	}

	return nil
}

// GetSession fetches one session row.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session := &models.Session{}
	var metadata []byte
	var submittedAt sql.NullTime

	query := `
		SELECT id, project_id, external_user_id, metadata, started_at, submitted_at
		FROM tracking_sessions
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.ProjectID,
		&session.ExternalUserID,
		&metadata,
		&session.StartedAt,
		&submittedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session '%s' not found", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &session.Metadata); err != nil {
			log.Printf("Error decoding metadata for session %s: %v", sessionID, err)
		}
	}
	if submittedAt.Valid {
		session.SubmittedAt = &submittedAt.Time
	}

	return session, nil
}
