// Package logic contains the pure transition rules of the cover.
// This package has NO external dependencies (no MQTT, timers, OS, or time.Sleep).
// Side effects are described in the returned Decision and applied by the caller.
package logic

import "github.com/sweeney/cover-control/internal/topics"

// State is the derived position of the cover.
type State string

const (
	StateOpen    State = "OPEN"
	StateClose   State = "CLOSE"
	StateOpening State = "OPENING"
	StateClosing State = "CLOSING"
)

// Initial is the state assumed at startup. No feedback exists to derive it.
const Initial = StateClose

// States lists every state in a fixed order.
func States() []State {
	return []State{StateOpen, StateClose, StateOpening, StateClosing}
}

// Payload returns the literal published on the cover state topic.
func (s State) Payload() string {
	switch s {
	case StateOpen:
		return topics.StateOpen
	case StateOpening:
		return topics.StateOpening
	case StateClosing:
		return topics.StateClosing
	default:
		return topics.StateClose
	}
}

// InTransit reports whether the cover is assumed to be moving.
func (s State) InTransit() bool {
	return s == StateOpening || s == StateClosing
}

// TimerAction tells the caller what to do with the completion timer.
type TimerAction int

const (
	// TimerNone leaves any pending timer untouched.
	TimerNone TimerAction = iota
	// TimerCancel cancels the pending timer without arming a new one.
	TimerCancel
	// TimerArm cancels the pending timer and arms a fresh one.
	TimerArm
)

func (a TimerAction) String() string {
	switch a {
	case TimerCancel:
		return "cancel"
	case TimerArm:
		return "arm"
	default:
		return "none"
	}
}

// Command is a publish the caller must perform.
type Command struct {
	Topic   string
	Payload string
}

// Decision is the result of applying one event to one state.
type Decision struct {
	Next     State
	Commands []Command
	Timer    TimerAction
}

// Changed reports whether the decision moves the cover to another state.
func (d Decision) Changed(from State) bool {
	return d.Next != from
}
