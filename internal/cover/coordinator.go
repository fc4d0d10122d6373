package cover

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/cover-control/internal/logic"
	"github.com/sweeney/cover-control/internal/mqtt"
	"github.com/sweeney/cover-control/internal/topics"
)

// DefaultQueueSize bounds the number of events waiting for dispatch.
const DefaultQueueSize = 64

// Coordinator serializes broker events and timer events onto one handler.
// Every Dispatch holds the lock for the whole read/mutate/publish sequence.
type Coordinator struct {
	mu      sync.Mutex
	handler *Handler

	events       chan Event
	observers    []Observer
	suppressEcho bool
	log          *zap.SugaredLogger
}

type options struct {
	clock        Clock
	duration     time.Duration
	queueSize    int
	observers    []Observer
	suppressEcho bool
	log          *zap.SugaredLogger
}

// Option configures a Coordinator.
type Option func(*options)

// WithClock replaces the wall clock used by completion timers.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTransitTime sets the completion timer duration.
func WithTransitTime(d time.Duration) Option {
	return func(o *options) { o.duration = d }
}

// WithQueueSize sets the event queue buffer size.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithObserver registers an observer for every outcome.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithEchoSuppression controls whether inbound cover state messages, which
// are our own publications coming back, are dropped. Enabled by default.
func WithEchoSuppression(on bool) Option {
	return func(o *options) { o.suppressEcho = on }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.log = l }
}

// NewCoordinator creates a coordinator owning a fresh handler for one cover.
func NewCoordinator(transport mqtt.Transport, opts ...Option) *Coordinator {
	o := options{
		duration:     DefaultTransitTime,
		queueSize:    DefaultQueueSize,
		suppressEcho: true,
		log:          zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueSize <= 0 {
		o.queueSize = DefaultQueueSize
	}

	c := &Coordinator{
		events:       make(chan Event, o.queueSize),
		observers:    o.observers,
		suppressEcho: o.suppressEcho,
		log:          o.log,
	}
	c.handler = NewHandler(transport, o.duration, o.clock, c.injectTimer)
	return c
}

// injectTimer queues a completion timer event. Timer events are never
// dropped: with a full queue the event is dispatched on the timer's own
// goroutine.
func (c *Coordinator) injectTimer(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Debugf("event queue full, dispatching %s=%s directly", ev.Topic, ev.Payload)
		c.Dispatch(ev)
	}
}

// Initialize runs the handler startup sequence.
func (c *Coordinator) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.handler.Initialize(); err != nil {
		return err
	}
	c.log.Infof("initialized: state=%s", c.handler.State())
	return nil
}

// Finalize runs the handler shutdown sequence.
func (c *Coordinator) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Finalize()
}

// Receive is an mqtt.Sink that queues broker messages.
func (c *Coordinator) Receive(topic string, payload []byte) {
	c.Submit(NewEvent(topic, payload))
}

// Submit queues a broker event for the receive loop. It never blocks: a
// full queue drops the event.
func (c *Coordinator) Submit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.log.Warnf("event queue full, dropping %s=%s", ev.Topic, ev.Payload)
		c.notify(Outcome{Event: ev, Dropped: DropOverflow})
		return false
	}
}

// Events exposes queued events to the receive loop.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Run dispatches queued events until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.Dispatch(ev)
		}
	}
}

// Dispatch processes one event under the lock and notifies observers.
// Publish failures are logged and reported in the outcome only.
//
// Not every event reaches the state machine, so not every call republishes
// the cover state: with echo suppression on, inbound cover state messages
// from any publisher are dropped, and timer events from a replaced or
// canceled timer are dropped as stale.
func (c *Coordinator) Dispatch(ev Event) Outcome {
	c.mu.Lock()
	out := c.dispatchLocked(ev)
	c.mu.Unlock()

	switch {
	case out.Dropped != NotDropped:
		c.log.Debugf("dropped %s event %s=%s", out.Dropped, ev.Topic, ev.Payload)
	case out.From != out.To:
		c.log.Infof("state: %s -> %s (%s=%s)", out.From, out.To, ev.Topic, ev.Payload)
	}
	if out.Err != nil {
		c.log.Warnf("publish error: %v", out.Err)
	}

	c.notify(out)
	return out
}

// State returns the committed cover state.
func (c *Coordinator) State() logic.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.State()
}

// TimerArmed reports whether a completion timer is pending.
func (c *Coordinator) TimerArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.TimerArmed()
}

func (c *Coordinator) dispatchLocked(ev Event) Outcome {
	h := c.handler
	out := Outcome{Event: ev, From: h.State(), To: h.State(), TimerArmed: h.TimerArmed()}

	if c.suppressEcho && !ev.FromTimer() && ev.Topic == topics.CoverState {
		out.Dropped = DropEcho
		return out
	}
	if ev.FromTimer() && !h.timerCurrent(ev.generation) {
		out.Dropped = DropStale
		return out
	}

	d, err := h.Dispatch(ev)
	out.To = d.Next
	out.Timer = d.Timer
	out.Commands = len(d.Commands)
	out.TimerArmed = h.TimerArmed()
	out.Err = err
	return out
}

func (c *Coordinator) notify(out Outcome) {
	for _, obs := range c.observers {
		obs.Observe(out)
	}
}
