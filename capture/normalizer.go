package capture

import (
	"fmt"
	"strings"
	"time"

	"mabletask/tracker/models"
)

// identityAttrs are checked in order before falling back to a structural path.
var identityAttrs = []string{"data-track-id", "id", "name"}

// maxPathSegments caps the structural fallback so target identifiers stay
// short and parse-free.
const maxPathSegments = 3

var signalEvents = map[SignalKind]models.EventKind{
	SignalKeyDown: models.EventKeyDown,
	SignalKeyUp:   models.EventKeyUp,
	SignalPaste:   models.EventPaste,
	SignalCopy:    models.EventCopy,
	SignalCut:     models.EventCut,
	SignalFocus:   models.EventFocus,
	SignalBlur:    models.EventBlur,
	SignalChange:  models.EventChange,
}

// TargetID derives a stable locator for a surface: an explicit identity
// attribute when one exists, otherwise a bounded-depth structural path with
// at most one disambiguating sibling index per level.
func TargetID(s Surface) string {
	for _, attr := range identityAttrs {
		if v := s.Attr(attr); v != "" {
			return v
		}
	}

	var segments []string
	for cur := s; cur != nil && len(segments) < maxPathSegments; cur = cur.Parent() {
		segment := cur.Tag()
		if idx := cur.SiblingIndex(); idx > 0 {
			segment = fmt.Sprintf("%s.%d", segment, idx)
		}
		segments = append([]string{segment}, segments...)
	}
	return strings.Join(segments, "/")
}

// Normalize turns one raw signal into a canonical event record. Surface state
// is snapshotted here, at debounce resolution, because the debounce delay
// means the state at raw-signal time can already be stale. Extraction
// failures degrade to absent fields; capture must never interrupt the page.
func Normalize(sig Signal, s Surface) models.NormalizedEvent {
	ev := models.NormalizedEvent{
		Kind:      signalEvents[sig.Kind],
		Timestamp: time.Now().UTC(),
		TargetID:  TargetID(s),
		Key:       sig.Key,
		Clipboard: sig.Clipboard,
	}

	if text, err := s.Text(); err == nil {
		ev.TextAfter = text
	}
	if pos, err := s.CursorPos(); err == nil {
		ev.CursorPos = &pos
	}
	if start, end, err := s.Selection(); err == nil && (start != 0 || end != 0) {
		ev.Selection = &models.SelectionRange{Start: start, End: end}
	}
	return ev
}
