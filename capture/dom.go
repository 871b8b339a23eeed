package capture

import (
	"log"
	"strings"
	"sync"
	"time"
)

// clipboard signals normalize after a short deferred tick so the post-event
// state (the newly pasted text) is observable.
const defaultClipboardDelay = 10 * time.Millisecond

// domSignals is the listener set attached to every tracked surface.
var domSignals = []SignalKind{
	SignalKeyDown, SignalKeyUp,
	SignalPaste, SignalCopy, SignalCut,
	SignalFocus, SignalBlur,
	SignalChange,
}

// DOMOptions configures a DOM capture front-end.
type DOMOptions struct {
	Provider SurfaceProvider

	// Selector narrows discovery. Empty means the default rule: native text
	// inputs, text areas, and surfaces marked editable.
	Selector string

	// Debounce is the per-(surface, kind) coalescing window.
	Debounce time.Duration

	// ClipboardDelay overrides the deferred tick before clipboard
	// normalization. Zero selects the default.
	ClipboardDelay time.Duration

	Sink Sink
}

// DOMCapture owns the attach/detach lifecycle for DOM-level capture: it
// discovers trackable surfaces, attaches one listener set per surface,
// keeps discovering surfaces added after startup, and funnels every raw
// signal through the debounce gate into the normalizer.
type DOMCapture struct {
	provider       SurfaceProvider
	selector       string
	gate           *Gate
	sink           Sink
	clipboardDelay time.Duration

	mu          sync.Mutex
	attached    map[string][]func()
	cancelWatch func()
	closed      bool
}

// NewDOMCapture attaches to every currently discoverable surface and
// subscribes to structural-change notifications for ones added later.
func NewDOMCapture(opts DOMOptions) *DOMCapture {
	c := &DOMCapture{
		provider:       opts.Provider,
		selector:       opts.Selector,
		gate:           NewGate(opts.Debounce),
		sink:           opts.Sink,
		clipboardDelay: opts.ClipboardDelay,
		attached:       make(map[string][]func()),
	}
	if c.clipboardDelay == 0 {
		c.clipboardDelay = defaultClipboardDelay
	}

	c.attachAll(c.provider.Discover(c.selector))
	c.cancelWatch = c.provider.Watch(c.selector, c.attachAll)
	return c
}

// trackable is the default discovery rule, applied when no selector narrows
// the surface set.
func trackable(s Surface) bool {
	switch strings.ToLower(s.Tag()) {
	case "input", "textarea":
		return true
	}
	return s.Editable()
}

func (c *DOMCapture) attachAll(surfaces []Surface) {
	for _, s := range surfaces {
		if c.selector == "" && !trackable(s) {
			continue
		}
		c.attach(s)
	}
}

// attach registers the full listener set on one surface. A surface already
// tracked (by target id) is never double-attached.
func (c *DOMCapture) attach(s Surface) {
	id := TargetID(s)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.attached[id]; ok {
		return
	}

	detachers := make([]func(), 0, len(domSignals))
	for _, kind := range domSignals {
		detachers = append(detachers, s.Listen(kind, func(sig Signal) {
			c.handle(s, sig)
		}))
	}
	c.attached[id] = detachers
}

// handle routes one raw signal. Panics are contained per listener so one
// misbehaving surface cannot stop tracking on the others.
func (c *DOMCapture) handle(s Surface, sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tracker: capture listener panic on %q: %v", TargetID(s), r)
		}
	}()

	switch sig.Kind {
	case SignalPaste, SignalCopy, SignalCut:
		time.AfterFunc(c.clipboardDelay, func() { c.emit(sig, s) })
	default:
		c.gate.Hit(s, sig, c.emit)
	}
}

// emit runs on debounce-timer and deferred-tick goroutines as well as the
// host dispatch path, so it carries its own panic guard.
func (c *DOMCapture) emit(sig Signal, s Surface) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tracker: event sink panic on %q: %v", TargetID(s), r)
		}
	}()
	c.sink(Normalize(sig, s))
}

// TrackedCount reports how many surfaces currently carry listeners.
func (c *DOMCapture) TrackedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attached)
}

// Detach removes every attached listener, disconnects the structural-change
// subscription and cancels open debounce windows.
func (c *DOMCapture) Detach() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancelWatch
	var detachers []func()
	for _, ds := range c.attached {
		detachers = append(detachers, ds...)
	}
	c.attached = make(map[string][]func())
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, d := range detachers {
		d()
	}
	c.gate.Stop()
}
