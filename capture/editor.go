package capture

import (
	"log"
	"sync"
	"time"

	"mabletask/tracker/models"
)

// CommandKind enumerates the structured command stream of a rich editing
// surface.
type CommandKind string

const (
	CmdHeading     CommandKind = "heading"
	CmdFontFamily  CommandKind = "font_family"
	CmdFontSize    CommandKind = "font_size"
	CmdColor       CommandKind = "color"
	CmdBold        CommandKind = "bold"
	CmdItalic      CommandKind = "italic"
	CmdUnderline   CommandKind = "underline"
	CmdListCreate  CommandKind = "list_create"
	CmdListDelete  CommandKind = "list_delete"
	CmdListIndent  CommandKind = "list_indent"
	CmdListOutdent CommandKind = "list_outdent"
	CmdAlignment   CommandKind = "alignment"

	// CmdContentUpdate carries a before/after document snapshot with no
	// intrinsic cause.
	CmdContentUpdate CommandKind = "content_update"

	// Low-priority intents. They produce no event of their own; they only
	// tag the next content update with an inferred cause.
	CmdKeyDown     CommandKind = "key_down"
	CmdPasteIntent CommandKind = "paste_intent"
	CmdCutIntent   CommandKind = "cut_intent"
)

// EditorCommand is one structured command observed from the editing surface.
// For high-priority structural commands Before/After are inspectable because
// the command is observed before the surface consumes it.
type EditorCommand struct {
	Kind     CommandKind
	TargetID string
	Before   string
	After    string
	// Detail carries kind-specific metadata: heading level transition, list
	// type, alignment from/to, and so on.
	Detail map[string]any
}

// EditorStream is the subscription surface of a rich editing component.
type EditorStream interface {
	// SubscribeHigh observes structural commands before the surface consumes
	// them.
	SubscribeHigh(fn func(EditorCommand)) (cancel func())
	// SubscribeLow observes raw intent signals after the fact.
	SubscribeLow(fn func(EditorCommand)) (cancel func())
}

// commandEvents maps each structural command kind to its normalized event
// kind. Commands missing from the table are ignored.
var commandEvents = map[CommandKind]models.EventKind{
	CmdHeading:     models.EventHeadingChange,
	CmdFontFamily:  models.EventFontFamilyChange,
	CmdFontSize:    models.EventFontSizeChange,
	CmdColor:       models.EventColorChange,
	CmdBold:        models.EventBoldToggle,
	CmdItalic:      models.EventItalicToggle,
	CmdUnderline:   models.EventUnderlineToggle,
	CmdListCreate:  models.EventListCreate,
	CmdListDelete:  models.EventListDelete,
	CmdListIndent:  models.EventListIndent,
	CmdListOutdent: models.EventListOutdent,
	CmdAlignment:   models.EventAlignmentChange,
}

// commandCauses maps low-priority intents to the cause recorded on the next
// content update.
var commandCauses = map[CommandKind]string{
	CmdKeyDown:     "typing",
	CmdPasteIntent: "paste",
	CmdCutIntent:   "cut",
}

// EditorCapture observes the structured command stream of a rich editing
// surface and feeds the shared pipeline.
type EditorCapture struct {
	sink Sink

	mu        sync.Mutex
	lastCause string
	cancels   []func()
	closed    bool
}

func NewEditorCapture(stream EditorStream, sink Sink) *EditorCapture {
	c := &EditorCapture{sink: sink}
	c.cancels = append(c.cancels,
		stream.SubscribeHigh(c.handleHigh),
		stream.SubscribeLow(c.handleLow),
	)
	return c
}

func (c *EditorCapture) handleHigh(cmd EditorCommand) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tracker: editor command handler panic (%s): %v", cmd.Kind, r)
		}
	}()

	if cmd.Kind == CmdContentUpdate {
		c.handleContentUpdate(cmd)
		return
	}

	kind, ok := commandEvents[cmd.Kind]
	if !ok {
		return
	}
	c.sink(models.NormalizedEvent{
		Kind:       kind,
		Timestamp:  time.Now().UTC(),
		TargetID:   targetOrEditor(cmd.TargetID),
		TextBefore: cmd.Before,
		TextAfter:  cmd.After,
		Metadata:   cmd.Detail,
	})
}

// handleLow records the inferred cause for the next content update. Low
// priority signals never produce events themselves.
func (c *EditorCapture) handleLow(cmd EditorCommand) {
	cause, ok := commandCauses[cmd.Kind]
	if !ok {
		return
	}
	c.mu.Lock()
	c.lastCause = cause
	c.mu.Unlock()
}

// handleContentUpdate emits a content_update event only when the update
// actually changed visible text; unrelated surface churn is suppressed.
func (c *EditorCapture) handleContentUpdate(cmd EditorCommand) {
	if cmd.Before == cmd.After {
		return
	}

	c.mu.Lock()
	cause := c.lastCause
	c.lastCause = ""
	c.mu.Unlock()

	md := make(map[string]any, len(cmd.Detail)+1)
	for k, v := range cmd.Detail {
		md[k] = v
	}
	if cause != "" {
		md["cause"] = cause
	}
	if len(md) == 0 {
		md = nil
	}

	c.sink(models.NormalizedEvent{
		Kind:       models.EventContentUpdate,
		Timestamp:  time.Now().UTC(),
		TargetID:   targetOrEditor(cmd.TargetID),
		TextBefore: cmd.Before,
		TextAfter:  cmd.After,
		Metadata:   md,
	})
}

func targetOrEditor(id string) string {
	if id == "" {
		return "editor"
	}
	return id
}

// Detach cancels both stream subscriptions.
func (c *EditorCapture) Detach() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
