package logic

import "github.com/sweeney/cover-control/internal/topics"

// Next computes the decision for an event on topic with payload while in
// state s. It is total: anything not matched below leaves the state alone
// with no side effects.
func Next(s State, topic string, payload []byte) Decision {
	p := string(payload)
	stay := Decision{Next: s}

	switch s {
	case StateClose:
		switch {
		case topic == topics.CoverCommand && p == topics.CommandOpen:
			return Decision{Next: StateClose, Commands: []Command{switchOn(topics.SwitchOpenCommand)}}
		case topic == topics.SwitchOpenState && p == topics.SwitchOn:
			return Decision{Next: StateOpening, Timer: TimerArm}
		}

	case StateOpen:
		switch {
		case topic == topics.CoverCommand && p == topics.CommandClose:
			return Decision{Next: StateOpen, Commands: []Command{switchOn(topics.SwitchCloseCommand)}}
		case topic == topics.SwitchCloseState && p == topics.SwitchOn:
			return Decision{Next: StateClosing, Timer: TimerArm}
		}

	case StateOpening:
		switch {
		case topic == topics.Timer && p == topics.Expires:
			return Decision{Next: StateOpen, Commands: []Command{coverState(StateOpen)}}
		case topic == topics.SwitchOpenState && p == topics.SwitchOn:
			return Decision{Next: StateOpening, Timer: TimerCancel}
		case topic == topics.SwitchCloseState && p == topics.SwitchOn:
			return Decision{Next: StateClosing, Timer: TimerArm}
		case topic == topics.CoverCommand && p == topics.CommandStop:
			return Decision{Next: StateOpening, Commands: []Command{switchOn(topics.SwitchOpenCommand)}}
		}

	case StateClosing:
		switch {
		case topic == topics.Timer && p == topics.Expires:
			return Decision{Next: StateClose, Commands: []Command{coverState(StateClose)}}
		case topic == topics.SwitchCloseState && p == topics.SwitchOn:
			return Decision{Next: StateClosing, Timer: TimerCancel}
		case topic == topics.SwitchOpenState && p == topics.SwitchOn:
			return Decision{Next: StateOpening, Timer: TimerArm}
		case topic == topics.CoverCommand && p == topics.CommandStop:
			return Decision{Next: StateClosing, Commands: []Command{switchOn(topics.SwitchCloseCommand)}}
		}
	}

	return stay
}

func switchOn(topic string) Command {
	return Command{Topic: topic, Payload: topics.SwitchOn}
}

func coverState(s State) Command {
	return Command{Topic: topics.CoverState, Payload: s.Payload()}
}
