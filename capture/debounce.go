package capture

import (
	"sync"
	"time"
)

// Gate coalesces rapid-fire raw signals per (target, signal-kind): a burst
// produces exactly one normalized event, carrying the state as of the last
// signal in the burst. The window restarts on every hit.
type Gate struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSignal
	stopped bool
}

type pendingSignal struct {
	timer *time.Timer
	sig   Signal
	surf  Surface
}

func NewGate(window time.Duration) *Gate {
	return &Gate{
		window:  window,
		pending: make(map[string]*pendingSignal),
	}
}

// Hit records a raw signal. When the window expires without another hit on
// the same (target, kind), emit runs with the latest signal and surface.
// A zero window emits synchronously.
func (g *Gate) Hit(s Surface, sig Signal, emit func(Signal, Surface)) {
	if g.window <= 0 {
		emit(sig, s)
		return
	}

	key := TargetID(s) + "|" + string(sig.Kind)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	if p, ok := g.pending[key]; ok {
		p.sig = sig
		p.surf = s
		p.timer.Reset(g.window)
		return
	}
	p := &pendingSignal{sig: sig, surf: s}
	p.timer = time.AfterFunc(g.window, func() { g.fire(key, emit) })
	g.pending[key] = p
}

func (g *Gate) fire(key string, emit func(Signal, Surface)) {
	g.mu.Lock()
	p, ok := g.pending[key]
	if ok {
		delete(g.pending, key)
	}
	g.mu.Unlock()

	if ok {
		emit(p.sig, p.surf)
	}
}

// Stop cancels every open window without emitting. Further hits are ignored.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for key, p := range g.pending {
		p.timer.Stop()
		delete(g.pending, key)
	}
}
