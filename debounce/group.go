package debounce

import (
	"sync"
	"time"
)

// serial orders Now calls of one key; users counts callers holding or
// waiting for it.
type serial struct {
	lock  sync.Mutex
	users int
}

type entry struct {
	fn    func()
	timer *time.Timer
	gen   uint64
}

// Group is a keyed trailing debouncer. Each key holds at most one pending
// function; triggering the key again replaces it and restarts the delay.
// Pending functions run on the timer goroutine, or in the caller's goroutine
// for Flush and Now. The group lock is never held while a function runs.
type Group struct {
	lock    sync.Mutex
	pending map[string]*entry
	serials map[string]*serial
	gen     uint64
	stopped bool
}

func NewGroup() *Group {
	return &Group{
		pending: map[string]*entry{},
		serials: map[string]*serial{},
	}
}

func (g *Group) Trigger(key string, delay time.Duration, fn func()) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.stopped {
		return
	}

	if old, ok := g.pending[key]; ok {
		old.timer.Stop()
	}

	g.gen++
	e := &entry{fn: fn, gen: g.gen}
	gen := e.gen

	e.timer = time.AfterFunc(delay, func() {
		g.fire(key, gen)
	})

	g.pending[key] = e
}

// Coalesce is Trigger without the restart: a pending timer keeps its
// deadline and only the function is replaced, so a steady stream of calls
// still fires once per delay.
func (g *Group) Coalesce(key string, delay time.Duration, fn func()) {
	g.lock.Lock()

	if g.stopped {
		g.lock.Unlock()
		return
	}

	if old, ok := g.pending[key]; ok {
		old.fn = fn
		g.lock.Unlock()
		return
	}

	g.lock.Unlock()
	g.Trigger(key, delay, fn)
}

func (g *Group) fire(key string, gen uint64) {
	fn := g.take(key, gen)
	if fn != nil {
		fn()
	}
}

// take removes the pending entry for key when it is still generation gen
// (gen 0 matches any generation).
func (g *Group) take(key string, gen uint64) func() {
	g.lock.Lock()
	defer g.lock.Unlock()

	e, ok := g.pending[key]
	if !ok || (gen != 0 && e.gen != gen) {
		return nil
	}

	e.timer.Stop()
	delete(g.pending, key)

	return e.fn
}

// Flush runs the pending function for key right away. It reports whether
// anything was pending.
func (g *Group) Flush(key string) bool {
	fn := g.take(key, 0)
	if fn == nil {
		return false
	}
	fn()
	return true
}

func (g *Group) FlushAll() int {
	g.lock.Lock()
	fns := make([]func(), 0, len(g.pending))
	for key, e := range g.pending {
		e.timer.Stop()
		fns = append(fns, e.fn)
		delete(g.pending, key)
	}
	g.lock.Unlock()

	for _, fn := range fns {
		fn()
	}

	return len(fns)
}

func (g *Group) Cancel(key string) bool {
	return g.take(key, 0) != nil
}

// Now drops whatever is pending for key and runs fn synchronously. Calls for
// the same key run one at a time, in lock order; other keys are not blocked.
func (g *Group) Now(key string, fn func()) {
	s := g.acquire(key)
	defer g.release(key, s)

	g.Cancel(key)
	fn()
}

func (g *Group) acquire(key string) *serial {
	g.lock.Lock()
	s, ok := g.serials[key]
	if !ok {
		s = &serial{}
		g.serials[key] = s
	}
	s.users++
	g.lock.Unlock()

	s.lock.Lock()
	return s
}

func (g *Group) release(key string, s *serial) {
	s.lock.Unlock()

	g.lock.Lock()
	defer g.lock.Unlock()

	s.users--
	if s.users == 0 {
		delete(g.serials, key)
	}
}

func (g *Group) Pending(key string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	_, ok := g.pending[key]
	return ok
}

// Stop cancels every pending function; later triggers are ignored.
func (g *Group) Stop() {
	g.lock.Lock()
	defer g.lock.Unlock()

	for key, e := range g.pending {
		e.timer.Stop()
		delete(g.pending, key)
	}
	g.stopped = true
}
