package models

import "time"

// SessionMetadata is the environment snapshot sent with /track/init.
type SessionMetadata struct {
	URL          string `json:"url"`
	UserAgent    string `json:"userAgent"`
	ScreenWidth  int    `json:"screenWidth"`
	ScreenHeight int    `json:"screenHeight"`
	Language     string `json:"language"`
	Timezone     string `json:"timezone"`
}

type InitSessionRequest struct {
	ExternalUserID string          `json:"externalUserId"`
	Metadata       SessionMetadata `json:"metadata"`
}

// Session is one contiguous span of tracked activity for one external user.
// The ID is assigned by the ingestion endpoint on init.
type Session struct {
	ID             string          `json:"id"`
	ProjectID      int             `json:"projectId"`
	ExternalUserID string          `json:"externalUserId"`
	Metadata       SessionMetadata `json:"metadata"`
	StartedAt      time.Time       `json:"startedAt"`
	SubmittedAt    *time.Time      `json:"submittedAt,omitempty"`
}
