// Package cover drives a two-position cover through an open switch and a
// close switch, inferring transit from switch echoes and bounding it with a
// completion timer.
package cover

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/cover-control/internal/logic"
	"github.com/sweeney/cover-control/internal/mqtt"
	"github.com/sweeney/cover-control/internal/topics"
)

// Handler is the state machine engine for one cover. It is not safe for
// concurrent use; the Coordinator serializes every call.
type Handler struct {
	transport mqtt.Transport
	clock     Clock
	duration  time.Duration
	inject    func(Event)

	state      logic.State
	timer      *completionTimer
	generation uint64
}

// NewHandler creates a handler in the initial Close state. Fired completion
// timers are passed to inject.
func NewHandler(transport mqtt.Transport, duration time.Duration, clock Clock, inject func(Event)) *Handler {
	if clock == nil {
		clock = realClock{}
	}
	if duration <= 0 {
		duration = DefaultTransitTime
	}
	if inject == nil {
		inject = func(Event) {}
	}
	return &Handler{
		transport: transport,
		clock:     clock,
		duration:  duration,
		inject:    inject,
		state:     logic.Initial,
	}
}

// Initialize subscribes to the inbound state echoes and announces the cover
// online. Either failure aborts.
func (h *Handler) Initialize() error {
	inbound := topics.Inbound()
	if err := h.transport.SubscribeMany(inbound, mqtt.UniformQoS(mqtt.AtLeastOnce, len(inbound))); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := h.publish(topics.CoverAvailability, topics.AvailabilityOnline); err != nil {
		return fmt.Errorf("announce online: %w", err)
	}
	return nil
}

// Finalize announces the cover offline. Pending timers are left to expire.
func (h *Handler) Finalize() error {
	if err := h.publish(topics.CoverAvailability, topics.AvailabilityOffline); err != nil {
		return fmt.Errorf("announce offline: %w", err)
	}
	return nil
}

// Dispatch applies one event. The timer action and the new state are
// committed before anything is published; publish failures are collected
// and returned without affecting the commit. The cover state is republished
// on every call, whether or not it changed.
func (h *Handler) Dispatch(ev Event) (logic.Decision, error) {
	if ev.FromTimer() && h.timer != nil && h.timer.generation == ev.generation {
		h.timer = nil
	}

	d := logic.Next(h.state, ev.Topic, ev.Payload)

	switch d.Timer {
	case logic.TimerCancel:
		h.cancelTimer()
	case logic.TimerArm:
		h.cancelTimer()
		h.armTimer()
	}
	h.state = d.Next

	var errs []error
	for _, cmd := range d.Commands {
		if err := h.publish(cmd.Topic, cmd.Payload); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.publish(topics.CoverState, h.state.Payload()); err != nil {
		errs = append(errs, err)
	}

	return d, errors.Join(errs...)
}

// State returns the committed state.
func (h *Handler) State() logic.State {
	return h.state
}

// TimerArmed reports whether a completion timer is pending.
func (h *Handler) TimerArmed() bool {
	return h.timer != nil
}

// timerCurrent reports whether generation belongs to the pending timer.
func (h *Handler) timerCurrent(generation uint64) bool {
	return h.timer != nil && h.timer.generation == generation
}

func (h *Handler) armTimer() {
	h.generation++
	h.timer = armTimer(h.clock, h.duration, h.generation, h.inject)
}

func (h *Handler) cancelTimer() {
	h.timer.cancel()
	h.timer = nil
}

func (h *Handler) publish(topic, payload string) error {
	if err := h.transport.Publish(topic, []byte(payload), mqtt.AtLeastOnce); err != nil {
		return fmt.Errorf("publish %s=%s: %w", topic, payload, err)
	}
	return nil
}
