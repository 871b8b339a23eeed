package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"mabletask/tracker/models"
)

// FlushFunc delivers one drained batch. A returned error means delivery
// failed for good for this attempt (the delivery client has already exhausted
// its own retries) and the batch will be re-queued.
type FlushFunc func(ctx context.Context, events []models.NormalizedEvent) error

// Buffer is an ordered, bounded, time-and-size-gated queue of normalized
// events. Events keep their append order; the only place order is perturbed
// is across a delivery failure, where the failed batch is prepended ahead of
// events captured while the attempt was in flight.
type Buffer struct {
	maxSize int
	maxAge  time.Duration
	deliver FlushFunc
	debug   bool

	mu       sync.Mutex
	events   []models.NormalizedEvent
	openedAt time.Time

	// flushMu serializes flush attempts so the drain-then-clear step stays
	// atomic with respect to concurrent appends.
	flushMu sync.Mutex

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewBuffer starts the periodic age checker immediately; call Destroy to stop
// it and flush whatever remains.
func NewBuffer(maxSize int, maxAge time.Duration, deliver FlushFunc, debug bool) *Buffer {
	b := &Buffer{
		maxSize:  maxSize,
		maxAge:   maxAge,
		deliver:  deliver,
		debug:    debug,
		openedAt: time.Now(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.watchAge()
	return b
}

// Add appends to the tail and triggers an asynchronous flush once the batch
// is full or has aged past the gate.
func (b *Buffer) Add(ev models.NormalizedEvent) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	due := len(b.events) >= b.maxSize || time.Since(b.openedAt) >= b.maxAge
	b.mu.Unlock()

	if due {
		go func() {
			if err := b.Flush(context.Background()); err != nil && b.debug {
				log.Printf("tracker: flush failed, %d events re-queued: %v", b.Len(), err)
			}
		}()
	}
}

// Len reports the number of currently buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Flush drains the buffer and hands the batch to the delivery callback. The
// buffer is cleared when the attempt is initiated, not when it succeeds: on
// failure the drained batch is prepended back ahead of anything appended
// since, in its original order, so nothing is ever dropped.
func (b *Buffer) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if len(b.events) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.events
	b.events = nil
	b.openedAt = time.Now()
	b.mu.Unlock()

	if err := b.deliver(ctx, batch); err != nil {
		b.mu.Lock()
		b.events = append(batch, b.events...)
		b.mu.Unlock()
		return err
	}
	return nil
}

// TakeAll drains the buffer without delivering, for the teardown fallback
// path that ships events through the one-shot beacon instead.
func (b *Buffer) TakeAll() []models.NormalizedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.events
	b.events = nil
	b.openedAt = time.Now()
	return batch
}

// watchAge re-evaluates the age gate on a timer so a quiet buffer still
// flushes once maxAge elapses with no further Add calls.
func (b *Buffer) watchAge() {
	defer close(b.done)

	interval := b.maxAge / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.mu.Lock()
			due := len(b.events) > 0 && time.Since(b.openedAt) >= b.maxAge
			b.mu.Unlock()
			if due {
				if err := b.Flush(context.Background()); err != nil && b.debug {
					log.Printf("tracker: periodic flush failed: %v", err)
				}
			}
		}
	}
}

// Destroy stops the periodic checker and performs one final flush, returning
// only once that flush has completed.
func (b *Buffer) Destroy(ctx context.Context) error {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
	return b.Flush(ctx)
}
