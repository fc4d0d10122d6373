package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/cover-control/internal/topics"
)

const (
	connectTimeout   = 10 * time.Second
	operationTimeout = 5 * time.Second
	keepAlive        = 20 * time.Second
	retryInterval    = 5 * time.Second
)

// Config holds broker connection parameters.
type Config struct {
	Broker   string
	ClientID string // empty derives "cover-control-<random>"
	Username string
	Password string
}

// RealTransport talks to an actual MQTT broker.
type RealTransport struct {
	client paho.Client
	log    *zap.SugaredLogger

	mu   sync.Mutex
	sink Sink
	subs map[string]byte
}

// NewRealTransport connects to the broker. The last will marks the cover
// offline if the connection drops without a clean shutdown.
func NewRealTransport(cfg Config, log *zap.SugaredLogger) (*RealTransport, error) {
	t := &RealTransport{
		log:  log,
		subs: make(map[string]byte),
	}

	paho.ERROR = zap.NewStdLog(log.Desugar().Named("paho"))

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(ClientID(cfg.ClientID)).
		SetKeepAlive(keepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetWill(topics.CoverAvailability, topics.AvailabilityOffline, byte(AtLeastOnce), false).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnf("connection lost: %v", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	t.client = paho.NewClient(opts)
	token := t.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return t, nil
}

// ClientID returns id, or a fresh "cover-control-xxxxxxxx" when id is empty.
func ClientID(id string) string {
	if id != "" {
		return id
	}
	return "cover-control-" + uuid.NewString()[:8]
}

// SetSink routes every inbound message to s.
func (t *RealTransport) SetSink(s Sink) {
	t.mu.Lock()
	t.sink = s
	t.mu.Unlock()
}

// Publish sends payload to topic, not retained.
func (t *RealTransport) Publish(topic string, payload []byte, qos QoS) error {
	if !qos.Valid() {
		return fmt.Errorf("publish %s: invalid qos %d", topic, qos)
	}
	token := t.client.Publish(topic, byte(qos), false, payload)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// SubscribeMany subscribes to topics in one request and remembers them so a
// reconnect can restore them.
func (t *RealTransport) SubscribeMany(topicList []string, qos []QoS) error {
	if len(topicList) != len(qos) {
		return errors.New("subscribe: topics and qos length mismatch")
	}
	filters := make(map[string]byte, len(topicList))
	for i, topic := range topicList {
		if !qos[i].Valid() {
			return fmt.Errorf("subscribe %s: invalid qos %d", topic, qos[i])
		}
		filters[topic] = byte(qos[i])
	}

	if err := t.subscribe(filters); err != nil {
		return err
	}

	t.mu.Lock()
	for topic, q := range filters {
		t.subs[topic] = q
	}
	t.mu.Unlock()

	t.log.Infof("subscribed: %v", topicList)
	return nil
}

// IsConnected reports whether the client currently holds a broker connection.
func (t *RealTransport) IsConnected() bool {
	return t.client.IsConnected()
}

// Close disconnects from the broker.
func (t *RealTransport) Close() error {
	t.client.Disconnect(1000) // 1 second quiesce
	return nil
}

func (t *RealTransport) subscribe(filters map[string]byte) error {
	token := t.client.SubscribeMultiple(filters, t.deliver)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (t *RealTransport) deliver(_ paho.Client, msg paho.Message) {
	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()

	if sink == nil {
		t.log.Debugf("no sink, dropping message on %s", msg.Topic())
		return
	}
	sink(msg.Topic(), msg.Payload())
}

func (t *RealTransport) onConnect(_ paho.Client) {
	t.mu.Lock()
	filters := make(map[string]byte, len(t.subs))
	for topic, q := range t.subs {
		filters[topic] = q
	}
	t.mu.Unlock()

	if len(filters) == 0 {
		t.log.Infof("connected")
		return
	}
	if err := t.subscribe(filters); err != nil {
		t.log.Errorf("resubscribe after reconnect: %v", err)
		return
	}
	t.log.Infof("reconnected, restored %d subscriptions", len(filters))
}
