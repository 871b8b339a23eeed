package models

import "encoding/json"

// Envelope is the response wrapper every tracking endpoint uses (the beacon
// path excepted, which is unacknowledged).
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type InitSessionData struct {
	SessionID string `json:"sessionId"`
}

type SendEventsData struct {
	EventsReceived int `json:"eventsReceived"`
}
