// Package mqtt provides the broker transport with abstraction for testing.
package mqtt

// QoS is an MQTT quality-of-service level.
type QoS byte

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	ExactlyOnce QoS = 2
)

// Valid reports whether q is one of the three MQTT levels.
func (q QoS) Valid() bool {
	return q <= ExactlyOnce
}

// Transport publishes and subscribes on the broker.
type Transport interface {
	// Publish sends payload to topic. Returns error if publishing fails
	// (should not crash the process).
	Publish(topic string, payload []byte, qos QoS) error

	// SubscribeMany subscribes to all topics in one request. qos[i] applies
	// to topics[i].
	SubscribeMany(topics []string, qos []QoS) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Message is a single inbound or recorded outbound message.
type Message struct {
	Topic   string
	Payload []byte
	QoS     QoS
}

// Sink receives inbound messages from subscriptions.
type Sink func(topic string, payload []byte)

// UniformQoS returns n copies of q, for SubscribeMany.
func UniformQoS(q QoS, n int) []QoS {
	out := make([]QoS, n)
	for i := range out {
		out[i] = q
	}
	return out
}
