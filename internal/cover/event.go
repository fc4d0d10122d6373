package cover

import "github.com/sweeney/cover-control/internal/logic"

// Event is an inbound (topic, payload) pair. Events from the broker have a
// zero generation; completion timers stamp theirs.
type Event struct {
	Topic   string
	Payload []byte

	generation uint64
}

// NewEvent builds a broker-originated event. The payload is copied.
func NewEvent(topic string, payload []byte) Event {
	return Event{Topic: topic, Payload: append([]byte(nil), payload...)}
}

// FromTimer reports whether a completion timer produced the event.
func (e Event) FromTimer() bool {
	return e.generation != 0
}

// DropReason explains why an event never reached the state machine.
type DropReason string

const (
	NotDropped DropReason = ""
	// DropStale marks a timer event from a timer that was canceled or replaced.
	DropStale DropReason = "stale"
	// DropEcho marks our own cover state publication coming back.
	DropEcho DropReason = "echo"
	// DropOverflow marks an event rejected by a full queue.
	DropOverflow DropReason = "overflow"
)

// Outcome describes one pass of an event through the coordinator.
type Outcome struct {
	Event      Event
	From       logic.State
	To         logic.State
	Timer      logic.TimerAction
	Commands   int
	TimerArmed bool
	Dropped    DropReason
	Err        error
}

// Observer is notified after every event, outside the coordinator lock.
type Observer interface {
	Observe(Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

// Observe calls f(o).
func (f ObserverFunc) Observe(o Outcome) { f(o) }
