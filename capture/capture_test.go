package capture

import (
	"errors"
	"sync"

	"mabletask/tracker/models"
)

// fakeSurface is a scriptable Surface for tests.
type fakeSurface struct {
	mu       sync.Mutex
	tag      string
	attrs    map[string]string
	parent   Surface
	sibling  int
	editable bool

	text     string
	cursor   int
	selStart int
	selEnd   int

	// failExtract makes every state accessor return an error.
	failExtract bool

	nextListener int
	listeners    map[SignalKind]map[int]func(Signal)
}

func newFakeSurface(tag string, attrs map[string]string) *fakeSurface {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &fakeSurface{
		tag:       tag,
		attrs:     attrs,
		listeners: make(map[SignalKind]map[int]func(Signal)),
	}
}

func (s *fakeSurface) Tag() string             { return s.tag }
func (s *fakeSurface) Attr(name string) string { return s.attrs[name] }
func (s *fakeSurface) Parent() Surface         { return s.parent }
func (s *fakeSurface) SiblingIndex() int       { return s.sibling }
func (s *fakeSurface) Editable() bool          { return s.editable }

func (s *fakeSurface) Text() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExtract {
		return "", errors.New("extraction failed")
	}
	return s.text, nil
}

func (s *fakeSurface) CursorPos() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExtract {
		return 0, errors.New("extraction failed")
	}
	return s.cursor, nil
}

func (s *fakeSurface) Selection() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExtract {
		return 0, 0, errors.New("extraction failed")
	}
	return s.selStart, s.selEnd, nil
}

func (s *fakeSurface) Listen(kind SignalKind, fn func(Signal)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners[kind] == nil {
		s.listeners[kind] = make(map[int]func(Signal))
	}
	id := s.nextListener
	s.nextListener++
	s.listeners[kind][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[kind], id)
	}
}

// setState updates the observable surface state under lock.
func (s *fakeSurface) setState(text string, cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.cursor = cursor
}

// fire dispatches a raw signal to every registered listener for kind.
func (s *fakeSurface) fire(kind SignalKind, sig Signal) {
	s.mu.Lock()
	fns := make([]func(Signal), 0, len(s.listeners[kind]))
	for _, fn := range s.listeners[kind] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(sig)
	}
}

func (s *fakeSurface) listenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.listeners {
		n += len(m)
	}
	return n
}

// fakeProvider is a scriptable SurfaceProvider.
type fakeProvider struct {
	mu        sync.Mutex
	surfaces  []Surface
	watcher   func([]Surface)
	cancelled bool
}

func (p *fakeProvider) Discover(selector string) []Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Surface(nil), p.surfaces...)
}

func (p *fakeProvider) Watch(selector string, fn func(added []Surface)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watcher = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.cancelled = true
		p.watcher = nil
	}
}

// insert simulates a structural mutation adding surfaces after startup.
func (p *fakeProvider) insert(surfaces ...Surface) {
	p.mu.Lock()
	p.surfaces = append(p.surfaces, surfaces...)
	watcher := p.watcher
	p.mu.Unlock()
	if watcher != nil {
		watcher(surfaces)
	}
}

// fakeStream is a scriptable EditorStream.
type fakeStream struct {
	mu            sync.Mutex
	high, low     func(EditorCommand)
	highCancelled bool
	lowCancelled  bool
}

func (s *fakeStream) SubscribeHigh(fn func(EditorCommand)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.high = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.highCancelled = true
		s.high = nil
	}
}

func (s *fakeStream) SubscribeLow(fn func(EditorCommand)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.low = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lowCancelled = true
		s.low = nil
	}
}

func (s *fakeStream) emitHigh(cmd EditorCommand) {
	s.mu.Lock()
	fn := s.high
	s.mu.Unlock()
	if fn != nil {
		fn(cmd)
	}
}

func (s *fakeStream) emitLow(cmd EditorCommand) {
	s.mu.Lock()
	fn := s.low
	s.mu.Unlock()
	if fn != nil {
		fn(cmd)
	}
}

// eventCollector is a threadsafe Sink for tests.
type eventCollector struct {
	mu     sync.Mutex
	events []models.NormalizedEvent
}

func (c *eventCollector) sink(ev models.NormalizedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) all() []models.NormalizedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.NormalizedEvent(nil), c.events...)
}

func (c *eventCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
