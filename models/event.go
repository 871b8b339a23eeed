package models

import (
	"time"
)

// EventKind identifies what kind of user-input activity a NormalizedEvent
// describes. DOM capture produces the key/clipboard/focus kinds; the editor
// capture front-end produces the structural kinds.
type EventKind string

const (
	EventKeyDown EventKind = "key_down"
	EventKeyUp   EventKind = "key_up"
	EventPaste   EventKind = "paste"
	EventCopy    EventKind = "copy"
	EventCut     EventKind = "cut"
	EventFocus   EventKind = "focus"
	EventBlur    EventKind = "blur"
	EventChange  EventKind = "change"

	EventHeadingChange    EventKind = "heading_change"
	EventFontFamilyChange EventKind = "font_family_change"
	EventFontSizeChange   EventKind = "font_size_change"
	EventColorChange      EventKind = "color_change"
	EventBoldToggle       EventKind = "bold_toggle"
	EventItalicToggle     EventKind = "italic_toggle"
	EventUnderlineToggle  EventKind = "underline_toggle"
	EventListCreate       EventKind = "list_create"
	EventListDelete       EventKind = "list_delete"
	EventListIndent       EventKind = "list_indent"
	EventListOutdent      EventKind = "list_outdent"
	EventAlignmentChange  EventKind = "alignment_change"
	EventContentUpdate    EventKind = "content_update"
)

// SelectionRange is a half-open [Start, End) range of character offsets.
type SelectionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NormalizedEvent is the canonical, transport-ready record for one observed
// piece of user-input activity. It is created by the normalizer when a
// debounce window resolves and is never mutated afterwards.
type NormalizedEvent struct {
	EventID    string          `json:"eventId,omitempty"`
	Kind       EventKind       `json:"kind"`
	Timestamp  time.Time       `json:"timestamp"`
	TargetID   string          `json:"targetId"`
	Key        string          `json:"key,omitempty"`
	TextBefore string          `json:"textBefore,omitempty"`
	TextAfter  string          `json:"textAfter,omitempty"`
	CursorPos  *int            `json:"cursorPos,omitempty"`
	Selection  *SelectionRange `json:"selection,omitempty"`
	Clipboard  string          `json:"clipboard,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// EventBatch is the wire body of POST /track/events.
type EventBatch struct {
	Events []NormalizedEvent `json:"events"`
}

// BeaconPayload is the teardown fallback body. The credentials travel inside
// the payload because the unacknowledged send primitive cannot set headers.
type BeaconPayload struct {
	ProjectKey string            `json:"projectKey"`
	SessionID  string            `json:"sessionId"`
	Events     []NormalizedEvent `json:"events"`
}
