package tracker

import (
	"time"

	"mabletask/tracker/models"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultDebounce      = 300 * time.Millisecond
	DefaultMaxBatchSize  = 25
	DefaultMaxBatchAge   = 5 * time.Second
	DefaultRetryAttempts = 3
)

// Config is the immutable tracker configuration. It is copied at
// construction and never mutated afterwards, so several tracker instances can
// share one Config value safely.
type Config struct {
	// Endpoint is the ingestion base address, e.g. "https://api.mabletask.com".
	Endpoint string

	// ProjectKey authenticates every call against the ingestion endpoint.
	ProjectKey string

	// ResolveUserID discovers the external user id from the embedding page.
	// When nil, an anonymous id is generated per session.
	ResolveUserID func() string

	// Metadata is the environment snapshot submitted with session init.
	Metadata models.SessionMetadata

	// Debounce is the per-(surface, signal-kind) coalescing window.
	Debounce time.Duration

	// MaxBatchSize and MaxBatchAge gate buffer flushes: a flush triggers when
	// either threshold is reached.
	MaxBatchSize int
	MaxBatchAge  time.Duration

	// RetryAttempts bounds delivery tries per call (first try included).
	RetryAttempts int

	// Beacon overrides the teardown fallback transport. When nil a plain
	// fire-and-forget HTTP sender is used.
	Beacon BeaconSender

	Debug bool
}

func (c Config) withDefaults() Config {
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.MaxBatchAge == 0 {
		c.MaxBatchAge = DefaultMaxBatchAge
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.Beacon == nil {
		c.Beacon = newHTTPBeacon()
	}
	return c
}
