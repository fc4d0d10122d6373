// Package topics is the MQTT vocabulary shared by the cover controller and
// the switches it drives.
package topics

// Topics for the virtual cover.
const (
	CoverAvailability = "cover/availability"
	CoverState        = "cover/state"
	CoverCommand      = "cover/command"
)

// Topics for the open and close switches.
const (
	SwitchOpenState    = "switch/open/state"
	SwitchOpenCommand  = "switch/open/command"
	SwitchCloseState   = "switch/close/state"
	SwitchCloseCommand = "switch/close/command"
)

// Timer is never published or subscribed; completion timers inject it locally.
const Timer = "timer/cover"

// Commands accepted on CoverCommand.
const (
	CommandOpen  = "open"
	CommandClose = "close"
	CommandStop  = "stop"
)

// Payloads published on CoverState.
const (
	StateOpen    = "open"
	StateClose   = "close"
	StateOpening = "opening"
	StateClosing = "closing"
)

// Switch payloads, used both as commands and as state echoes.
const (
	SwitchOn  = "on"
	SwitchOff = "off"
)

// Availability payloads.
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// Expires is the payload carried on Timer.
const Expires = "expires"

// Inbound returns the state-echo topics the controller subscribes to at
// startup, in subscription order.
func Inbound() []string {
	return []string{SwitchOpenState, SwitchCloseState, CoverState}
}
