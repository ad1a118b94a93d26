package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/heatmon/internal/logic"
)

// DefaultBufferSize is the number of messages held while the broker is unreachable.
const DefaultBufferSize = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int
	Logger     *logrus.Entry
}

// RealPublisher publishes to an actual MQTT broker. Publishing never waits
// for the broker: while disconnected, messages are held in a ring buffer and
// replayed once the connection comes back.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *logrus.Entry

	mu  sync.Mutex
	buf *ringBuffer
	// replayPending is set once a message is buffered and cleared when
	// onConnect has handed the buffer to the client. While set, new
	// messages queue behind the buffered ones even if the connection is open.
	replayPending bool
}

// NewRealPublisher creates a publisher for the given broker. It waits a
// bounded time for the first connection; if the broker is not reachable by
// then, the client keeps retrying in the background.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		topics: opts.Topics,
		log:    log,
		buf:    newRingBuffer(opts.BufferSize, log),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	o := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetBinaryWill(opts.Topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})

	p.client = paho.NewClient(o)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.WithField("broker", opts.Broker).Warn("mqtt broker not reachable yet, buffering until connected")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect replays messages buffered while disconnected. paho runs it after
// the connection is already open, so the lock is held until every buffered
// message is with the client.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := p.buf.drainAll()
	p.log.WithField("buffered", len(msgs)).Info("connected to mqtt broker")
	for _, m := range msgs {
		go p.await(c.Publish(m.topic, m.qos, m.retained, m.payload), m.topic)
	}
	p.replayPending = false
}

// PublishEvent sends a zone transition, QoS 1, not retained.
func (p *RealPublisher) PublishEvent(event logic.ZoneEvent) error {
	return p.publish(bufferedMsg{topic: p.topics.Events, payload: FormatEventPayload(event), qos: 1})
}

// PublishHeartbeat sends the heartbeat counter, QoS 0 (at-most-once).
// Heartbeats are not buffered: a stale one says nothing about connectivity.
func (p *RealPublisher) PublishHeartbeat(n uint64) error {
	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("publish heartbeat: not connected")
	}
	token := p.client.Publish(p.topics.Heartbeat, 0, false, FormatHeartbeatPayload(n))
	go p.await(token, p.topics.Heartbeat)
	return nil
}

// PublishSystem sends a system lifecycle event. QoS 1 so shutdown events are
// delivered.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	p.mu.Lock()
	if p.replayPending || !p.client.IsConnectionOpen() {
		p.buf.push(m)
		p.replayPending = true
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	go p.await(token, m.topic)
	return nil
}

// await logs the outcome of an in-flight publish.
func (p *RealPublisher) await(token paho.Token, topic string) {
	if !token.WaitTimeout(publishTimeout) {
		p.log.WithField("topic", topic).Warn("mqtt publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		p.log.WithField("topic", topic).WithError(err).Warn("mqtt publish failed")
	}
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
