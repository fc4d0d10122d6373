package cover

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/cover-control/internal/topics"
)

// DefaultTransitTime is how long the cover is assumed to move after a
// switch echo when nothing else happens.
const DefaultTransitTime = 90 * time.Second

// Stopper is the part of *time.Timer a completion timer needs.
type Stopper interface {
	Stop() bool
}

// Clock schedules delayed callbacks. The real clock uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// completionTimer is a one-shot delayed (timer/cover, expires) event.
//
// The canceled flag is checked when the timer fires, but the check and the
// injection are not atomic with respect to cancel: a timer can see "not
// canceled", then be canceled, then inject anyway. The coordinator drops
// such events by comparing generations.
type completionTimer struct {
	generation uint64
	duration   time.Duration
	canceled   atomic.Bool
	stopper    Stopper
}

func armTimer(clock Clock, d time.Duration, generation uint64, inject func(Event)) *completionTimer {
	t := &completionTimer{
		generation: generation,
		duration:   d,
	}
	t.stopper = clock.AfterFunc(d, func() {
		if t.canceled.Load() {
			return
		}
		inject(Event{
			Topic:      topics.Timer,
			Payload:    []byte(topics.Expires),
			generation: generation,
		})
	})
	return t
}

// cancel is idempotent and safe on a nil timer.
func (t *completionTimer) cancel() {
	if t == nil {
		return
	}
	t.canceled.Store(true)
	t.stopper.Stop()
}
