// Package status provides a thread-safe view of the cover controller for the
// HTTP status page.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/cover-control/internal/cover"
	"github.com/sweeney/cover-control/internal/logic"
	"github.com/sweeney/cover-control/internal/mqtt"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker        string
	ClientID      string
	TransitTimeMs int64
	HTTPAddr      string
}

// Counts tracks how events were handled since startup.
type Counts struct {
	Dispatched    int
	Transitions   int
	Stale         int
	Echoes        int
	Overflows     int
	PublishErrors int
}

// LastEvent is the most recent event that reached the state machine.
type LastEvent struct {
	Topic   string
	Payload string
	At      time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	TimerArmed    bool
	Last          *LastEvent
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	conn mqtt.ConnectionStatus
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config. The
// state starts at the handler's initial state.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.Initial,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Observe records a dispatch outcome. It implements cover.Observer.
func (t *Tracker) Observe(o cover.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch o.Dropped {
	case cover.DropStale:
		t.snap.Counts.Stale++
		return
	case cover.DropEcho:
		t.snap.Counts.Echoes++
		return
	case cover.DropOverflow:
		t.snap.Counts.Overflows++
		return
	}

	t.snap.Counts.Dispatched++
	if o.From != o.To {
		t.snap.Counts.Transitions++
	}
	if o.Err != nil {
		t.snap.Counts.PublishErrors++
	}
	t.snap.State = o.To
	t.snap.TimerArmed = o.TimerArmed
	t.snap.Last = &LastEvent{
		Topic:   o.Event.Topic,
		Payload: string(o.Event.Payload),
		At:      t.now(),
	}
}

// SetConnection makes snapshots report the live connection state of c.
func (t *Tracker) SetConnection(c mqtt.ConnectionStatus) {
	t.mu.Lock()
	t.conn = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status when no live
// connection is attached.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	conn := t.conn
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	t.mu.RUnlock()

	if conn != nil {
		s.MQTTConnected = conn.IsConnected()
	}
	s.Now = t.now()
	return s
}
