// Package metrics exports cover controller counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/cover-control/internal/cover"
	"github.com/sweeney/cover-control/internal/logic"
)

// Metrics holds the collectors fed from dispatch outcomes.
type Metrics struct {
	events        *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	timerEvents   *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	publishErrors prometheus.Counter
	state         *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cover_events_total",
				Help: "Events dispatched to the state machine by topic.",
			},
			[]string{"topic"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cover_transitions_total",
				Help: "State changes by source and destination state.",
			},
			[]string{"from", "to"},
		),
		timerEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cover_timer_events_total",
				Help: "Completion timer actions taken by the state machine.",
			},
			[]string{"action"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cover_dropped_events_total",
				Help: "Events that never reached the state machine, by reason.",
			},
			[]string{"reason"},
		),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cover_publish_errors_total",
			Help: "Dispatches with at least one failed publish.",
		}),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cover_state",
				Help: "1 for the current cover state, 0 otherwise.",
			},
			[]string{"state"},
		),
	}
	reg.MustRegister(m.events, m.transitions, m.timerEvents, m.dropped, m.publishErrors, m.state)
	m.setState(logic.Initial)
	return m
}

// Observe implements cover.Observer.
func (m *Metrics) Observe(o cover.Outcome) {
	if o.Dropped != cover.NotDropped {
		m.dropped.WithLabelValues(string(o.Dropped)).Inc()
		return
	}

	m.events.WithLabelValues(o.Event.Topic).Inc()
	if o.From != o.To {
		m.transitions.WithLabelValues(string(o.From), string(o.To)).Inc()
	}
	switch {
	case o.Event.FromTimer():
		m.timerEvents.WithLabelValues("fired").Inc()
	case o.Timer != logic.TimerNone:
		m.timerEvents.WithLabelValues(o.Timer.String()).Inc()
	}
	if o.Err != nil {
		m.publishErrors.Inc()
	}
	m.setState(o.To)
}

func (m *Metrics) setState(current logic.State) {
	for _, s := range logic.States() {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(string(s)).Set(v)
	}
}
