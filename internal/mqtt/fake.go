package mqtt

import (
	"errors"
	"sync"
)

// FakeTransport records published messages and subscriptions for test
// assertions. Safe for concurrent use.
type FakeTransport struct {
	mu sync.Mutex

	published     []Message
	subscriptions [][]string
	subscribeQoS  [][]QoS

	// PublishError, if set, will be returned by every Publish.
	PublishError error

	// FailTopics makes Publish fail for the listed topics only.
	FailTopics map[string]error

	// SubscribeError, if set, will be returned by SubscribeMany.
	SubscribeError error

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakeTransport creates a FakeTransport for testing.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Publish records the message. Failed publishes are not recorded.
func (f *FakeTransport) Publish(topic string, payload []byte, qos QoS) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}
	if err, ok := f.FailTopics[topic]; ok {
		return err
	}
	if !qos.Valid() {
		return errors.New("invalid qos")
	}

	f.published = append(f.published, Message{
		Topic:   topic,
		Payload: append([]byte(nil), payload...),
		QoS:     qos,
	})
	return nil
}

// SubscribeMany records the subscription request.
func (f *FakeTransport) SubscribeMany(topics []string, qos []QoS) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	if len(topics) != len(qos) {
		return errors.New("topics and qos length mismatch")
	}

	f.subscriptions = append(f.subscriptions, append([]string(nil), topics...))
	f.subscribeQoS = append(f.subscribeQoS, append([]QoS(nil), qos...))
	return nil
}

// IsConnected reports whether the fake transport is "connected".
func (f *FakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetPublishError replaces PublishError under the lock.
func (f *FakeTransport) SetPublishError(err error) {
	f.mu.Lock()
	f.PublishError = err
	f.mu.Unlock()
}

// Published returns a copy of every recorded publish, oldest first.
func (f *FakeTransport) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.published...)
}

// PublishedOn returns the payloads recorded for one topic, oldest first.
func (f *FakeTransport) PublishedOn(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, m := range f.published {
		if m.Topic == topic {
			out = append(out, string(m.Payload))
		}
	}
	return out
}

// Subscriptions returns a copy of every recorded SubscribeMany topic list.
func (f *FakeTransport) Subscriptions() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.subscriptions...)
}

// SubscribeQoS returns the qos lists matching Subscriptions.
func (f *FakeTransport) SubscribeQoS() [][]QoS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]QoS(nil), f.subscribeQoS...)
}

// Reset clears recorded calls and injected errors.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = nil
	f.subscriptions = nil
	f.subscribeQoS = nil
	f.PublishError = nil
	f.FailTopics = nil
	f.SubscribeError = nil
	f.Connected = false
}
