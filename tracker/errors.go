package tracker

import "errors"

// Lifecycle errors are synchronous and loud: calling capture-attach before an
// active session, or tracking after finalization, fails immediately instead
// of silently dropping activity.
var (
	ErrAlreadyInitialized = errors.New("tracker: session already initialized")
	ErrNotActive          = errors.New("tracker: no active session")
	ErrSubmitted          = errors.New("tracker: session already submitted")
	ErrDestroyed          = errors.New("tracker: tracker destroyed")
)
