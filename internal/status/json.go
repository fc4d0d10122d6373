package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	State         string         `json:"state"`
	InTransit     bool           `json:"in_transit"`
	TimerArmed    bool           `json:"timer_armed"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	Config        ConfigJSON     `json:"config"`
}

// LastEventJSON is the JSON representation of the last dispatched event.
type LastEventJSON struct {
	Topic     string `json:"topic"`
	Payload   string `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	ClientID  string `json:"client_id,omitempty"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Dispatched    int `json:"dispatched"`
	Transitions   int `json:"transitions"`
	Stale         int `json:"stale_timers"`
	Echoes        int `json:"echoes"`
	Overflows     int `json:"overflows"`
	PublishErrors int `json:"publish_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TransitTimeMs int64  `json:"transit_time_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:         state,
		InTransit:     snap.State.InTransit(),
		TimerArmed:    snap.TimerArmed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			ClientID:  snap.Config.ClientID,
		},
		Counts: CountsJSON{
			Dispatched:    snap.Counts.Dispatched,
			Transitions:   snap.Counts.Transitions,
			Stale:         snap.Counts.Stale,
			Echoes:        snap.Counts.Echoes,
			Overflows:     snap.Counts.Overflows,
			PublishErrors: snap.Counts.PublishErrors,
		},
		Config: ConfigJSON{
			TransitTimeMs: snap.Config.TransitTimeMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}
	if snap.Last != nil {
		inner.LastEvent = &LastEventJSON{
			Topic:     snap.Last.Topic,
			Payload:   snap.Last.Payload,
			Timestamp: snap.Last.At.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
