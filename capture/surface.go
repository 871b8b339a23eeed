// Package capture holds the two front-ends that feed the tracking pipeline:
// DOM-level capture over input-like surfaces, and structured-command capture
// over a rich editing surface. Both normalize into the same event record and
// hand off to the same sink.
package capture

import "mabletask/tracker/models"

// SignalKind is a raw DOM-level signal kind observed on a surface.
type SignalKind string

const (
	SignalKeyDown SignalKind = "keydown"
	SignalKeyUp   SignalKind = "keyup"
	SignalPaste   SignalKind = "paste"
	SignalCopy    SignalKind = "copy"
	SignalCut     SignalKind = "cut"
	SignalFocus   SignalKind = "focus"
	SignalBlur    SignalKind = "blur"
	SignalChange  SignalKind = "change"
)

// Signal is one raw capture signal as delivered by the host.
type Signal struct {
	Kind      SignalKind
	Key       string
	Clipboard string
}

// Surface is the host-side handle for one trackable input surface. The
// embedding application implements it over whatever owns the real elements.
type Surface interface {
	// Tag is the element/tag name, lowercase by convention.
	Tag() string

	// Attr returns the named attribute value, or "" when absent.
	Attr(name string) string

	// Parent returns the enclosing surface, or nil at the root.
	Parent() Surface

	// SiblingIndex is the position among same-tag siblings, used to
	// disambiguate structural path segments. Zero indexes are elided.
	SiblingIndex() int

	// Editable reports whether the surface accepts free text input beyond
	// being a native input control.
	Editable() bool

	// Text returns the current textual value of the surface.
	Text() (string, error)

	// CursorPos returns the current caret offset.
	CursorPos() (int, error)

	// Selection returns the current selection range, both zero when there is
	// no selection.
	Selection() (start, end int, err error)

	// Listen registers a handler for one raw signal kind and returns a
	// detach function. Handlers run on the host's dispatch goroutine.
	Listen(kind SignalKind, fn func(Signal)) (detach func())
}

// SurfaceProvider exposes surface discovery plus structural-change
// notifications, so surfaces added to the page after startup still get
// tracked. Hosts with a static surface set may return a no-op cancel from
// Watch and never invoke the callback.
type SurfaceProvider interface {
	// Discover returns the surfaces matching selector, or every candidate
	// surface when selector is empty.
	Discover(selector string) []Surface

	// Watch subscribes to surfaces inserted later, scoped by the same
	// selector rule as Discover.
	Watch(selector string, fn func(added []Surface)) (cancel func())
}

// Sink receives normalized events; the tracker's buffer stands behind it.
type Sink func(models.NormalizedEvent)
