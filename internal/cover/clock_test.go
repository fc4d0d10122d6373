package cover

import (
	"sync"
	"time"
)

// fakeClock records scheduled callbacks; tests fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// count returns how many timers were ever scheduled.
func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fire runs timer i as the runtime would: stopped timers do not run.
func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	c.mu.Unlock()
	if t.stopped || t.fired {
		return
	}
	t.fired = true
	t.f()
}

// force runs timer i even if stopped, as if its callback was already
// running when Stop was called.
func (c *fakeClock) force(i int) {
	c.mu.Lock()
	t := c.timers[i]
	c.mu.Unlock()
	t.fired = true
	t.f()
}

// last returns the index of the most recently scheduled timer.
func (c *fakeClock) last() int {
	return c.count() - 1
}
