package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"mabletask/tracker/database"
	"mabletask/tracker/models"
)

type EventStore struct {
	DB *database.ClickHouseClient
}

func NewEventStore(chClient *database.ClickHouseClient) *EventStore {
	return &EventStore{
		DB: chClient,
	}
}

// InsertEvents writes one batch of normalized events for a session. Column
// names and order must exactly match the tracker_events table schema.
func (s *EventStore) InsertEvents(ctx context.Context, projectID int, sessionID, externalUserID string, events []models.NormalizedEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO tracker_events (
			event_id, project_id, session_id, external_user_id, kind, timestamp, target_id,
			key, text_before, text_after, cursor_pos, selection_start, selection_end,
			clipboard, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		cursorPos := int32(-1)
		if event.CursorPos != nil {
			cursorPos = int32(*event.CursorPos)
		}
		selStart, selEnd := int32(0), int32(0)
		if event.Selection != nil {
			selStart = int32(event.Selection.Start)
			selEnd = int32(event.Selection.End)
		}
		var metadata []byte
		if event.Metadata != nil {
			metadata, _ = json.Marshal(event.Metadata)
		}

		err := batch.Append(
			event.EventID,
			int32(projectID),
			sessionID,
			externalUserID,
			string(event.Kind),
			event.Timestamp,
			event.TargetID,
			event.Key,
			event.TextBefore,
			event.TextAfter,
			cursorPos,
			selStart,
			selEnd,
			event.Clipboard,
			string(metadata),
		)
		if err != nil {
			log.Printf("Error appending event to batch (EventID: %s): %v", event.EventID, err)
		}
	}

	err = batch.Send()
	if err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Successfully inserted %d tracked events for session %s.", len(events), sessionID)
	return nil
}
