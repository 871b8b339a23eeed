// Package tracker implements the behavioral event telemetry pipeline: capture
// front-ends normalize user-input activity into event records, an ordered
// buffer batches them under size/time gates, and a delivery client ships the
// batches to the ingestion endpoint with retry and loss-avoidance guarantees.
package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"mabletask/tracker/capture"
	"mabletask/tracker/models"
)

// State is the session lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateActive
	StateSubmitted
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateSubmitted:
		return "submitted"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type capturer interface {
	Detach()
}

// Tracker owns the session lifecycle and wires the capture front-ends, the
// event buffer and the delivery client together. Each Tracker instance holds
// its own listener and timer state, so independent instances coexist without
// interference.
type Tracker struct {
	cfg    Config
	client *Client
	buffer *Buffer
	beacon BeaconSender

	mu             sync.Mutex
	state          State
	sessionID      string
	externalUserID string
	captures       []capturer
}

// New validates the configuration and builds a tracker in the uninitialized
// state. The buffer's periodic checker starts immediately; nothing can reach
// the buffer until Init succeeds and a front-end is attached.
func New(cfg Config) (*Tracker, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracker: config missing Endpoint")
	}
	if cfg.ProjectKey == "" {
		return nil, fmt.Errorf("tracker: config missing ProjectKey")
	}
	cfg = cfg.withDefaults()

	t := &Tracker{
		cfg:    cfg,
		client: NewClient(cfg),
		beacon: cfg.Beacon,
	}
	t.buffer = NewBuffer(cfg.MaxBatchSize, cfg.MaxBatchAge, t.deliverBatch, cfg.Debug)
	return t, nil
}

// deliverBatch is the buffer's flush callback. No event is delivered before a
// session exists; returning an error keeps the batch buffered.
func (t *Tracker) deliverBatch(ctx context.Context, events []models.NormalizedEvent) error {
	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("tracker: no session for delivery")
	}
	_, err := t.client.SendEvents(ctx, sessionID, events)
	return err
}

// Init opens a session with the ingestion endpoint. On failure the tracker
// returns to uninitialized and the error propagates to the caller.
func (t *Tracker) Init(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case StateUninitialized:
		t.state = StateInitializing
	case StateDestroyed:
		t.mu.Unlock()
		return ErrDestroyed
	case StateSubmitted:
		t.mu.Unlock()
		return ErrSubmitted
	default:
		t.mu.Unlock()
		return ErrAlreadyInitialized
	}
	t.mu.Unlock()

	externalUserID := ""
	if t.cfg.ResolveUserID != nil {
		externalUserID = t.cfg.ResolveUserID()
	}
	if externalUserID == "" {
		externalUserID = "anon-" + uuid.New().String()
	}

	sessionID, err := t.client.InitSession(ctx, externalUserID, t.cfg.Metadata)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateInitializing {
		// destroyed while the init call was in flight
		return ErrDestroyed
	}
	if err != nil {
		t.state = StateUninitialized
		return fmt.Errorf("tracker: session init failed: %w", err)
	}
	t.state = StateActive
	t.sessionID = sessionID
	t.externalUserID = externalUserID
	if t.cfg.Debug {
		log.Printf("tracker: session active for user %s", externalUserID)
	}
	return nil
}

// State reports the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SessionID returns the endpoint-assigned session id, or "" before init.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// requireActive is the capture-attach gate: attaching is only legal while
// the session is active, and the failure is synchronous and loud.
func (t *Tracker) requireActive() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateActive:
		return nil
	case StateSubmitted:
		return ErrSubmitted
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrNotActive
	}
}

// enqueue is the shared sink behind every capture front-end. Events arriving
// after finalization are discarded; the front-ends are detached by then, so
// this only catches stragglers from already-scheduled debounce timers.
func (t *Tracker) enqueue(ev models.NormalizedEvent) {
	t.mu.Lock()
	active := t.state == StateActive
	t.mu.Unlock()
	if active {
		t.buffer.Add(ev)
	}
}

// AttachDOM starts DOM-level capture over the provider's surfaces.
func (t *Tracker) AttachDOM(provider capture.SurfaceProvider, selector string) (*capture.DOMCapture, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	dc := capture.NewDOMCapture(capture.DOMOptions{
		Provider: provider,
		Selector: selector,
		Debounce: t.cfg.Debounce,
		Sink:     t.enqueue,
	})
	t.mu.Lock()
	t.captures = append(t.captures, dc)
	t.mu.Unlock()
	return dc, nil
}

// AttachEditor starts structured-command capture over a rich editing surface.
func (t *Tracker) AttachEditor(stream capture.EditorStream) (*capture.EditorCapture, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	ec := capture.NewEditorCapture(stream, t.enqueue)
	t.mu.Lock()
	t.captures = append(t.captures, ec)
	t.mu.Unlock()
	return ec, nil
}

// Flush forces a buffer flush outside the normal size/age gates.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.buffer.Flush(ctx)
}

// Submit finalizes the session: a full buffer flush first, then the finalize
// call, then capture teardown. On error the session stays active and the
// buffered events stay put.
func (t *Tracker) Submit(ctx context.Context) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if err := t.buffer.Flush(ctx); err != nil {
		return fmt.Errorf("tracker: flush before submit failed: %w", err)
	}

	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if err := t.client.FinalizeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("tracker: session finalize failed: %w", err)
	}

	t.detachCaptures()
	t.mu.Lock()
	t.state = StateSubmitted
	t.mu.Unlock()
	return nil
}

// Destroy tears the tracker down: all capture listeners and debounce timers
// go away, the buffer's periodic checker stops, and one last flush attempt
// runs to completion before Destroy returns. Destroy is idempotent.
func (t *Tracker) Destroy(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateDestroyed {
		t.mu.Unlock()
		return nil
	}
	t.state = StateDestroyed
	t.mu.Unlock()

	t.detachCaptures()
	return t.buffer.Destroy(ctx)
}

// TeardownFlush is the page-teardown fallback: whatever is currently
// buffered goes out through the one-shot unacknowledged beacon, bypassing
// the delivery client entirely, because ordinary requests are not guaranteed
// to complete once teardown begins. Best-effort only.
func (t *Tracker) TeardownFlush() {
	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID == "" {
		return
	}

	events := t.buffer.TakeAll()
	if len(events) == 0 {
		return
	}
	t.beacon.Send(t.cfg.Endpoint, models.BeaconPayload{
		ProjectKey: t.cfg.ProjectKey,
		SessionID:  sessionID,
		Events:     events,
	})
}

func (t *Tracker) detachCaptures() {
	t.mu.Lock()
	captures := t.captures
	t.captures = nil
	t.mu.Unlock()
	for _, c := range captures {
		c.Detach()
	}
}
