// Package timerx provides debounce and interval timers with centralized cancellation.
package timerx

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid successive events into one callback.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a debouncer with the specified quiet period.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
	}
}

// Debounce executes the function after the quiet period has elapsed
// without any new calls. Rapid successive calls reset the timer.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel cancels any pending debounced call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Immediate executes the function now and cancels any pending call.
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}

// Set tracks every timer and ticker created through it so a component can
// cancel all of its scheduled work in one call when it shuts down.
type Set struct {
	mu     sync.Mutex
	closed bool
	seq    int
	timers map[int]*time.Timer
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewSet creates an empty timer set.
func NewSet() *Set {
	return &Set{
		timers: make(map[int]*time.Timer),
		quit:   make(chan struct{}),
	}
}

// AfterFunc schedules fn to run once after d. The returned stop function
// cancels the timer if it has not fired yet.
func (s *Set) AfterFunc(d time.Duration, fn func()) (stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	s.seq++
	id := s.seq
	t := time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})
	s.timers[id] = t

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
	}
}

// Every runs fn on a fixed interval until the set is stopped or the
// returned stop function is called. The first run happens one interval
// after scheduling.
func (s *Set) Every(interval time.Duration, fn func()) (stop func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	done := make(chan struct{})
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			case <-s.quit:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// Stop cancels every pending timer, stops every ticker, and waits for the
// interval goroutines to exit. Callbacks that have not fired do not run.
func (s *Set) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
}
