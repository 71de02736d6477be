package bus

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-link/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-link/internal/link"
	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// Broker is the part of the MQTT client the bus uses.
// *mqtt.Client satisfies it.
type Broker interface {
	PublishJSON(topic string, v any, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	QoS() byte
}

// Logger is the logging surface of the bus.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher turns profile emissions into outbound MQTT messages.
// It is the link.CallbackFactory of a running hub.
type Publisher struct {
	broker Broker
	topics mqtt.Topics
	now    func() time.Time

	mu     sync.RWMutex
	logger Logger
}

// NewPublisher creates a Publisher writing under topics.
func NewPublisher(broker Broker, topics mqtt.Topics) *Publisher {
	return &Publisher{
		broker: broker,
		topics: topics,
		now:    func() time.Time { return time.Now().UTC() },
		logger: noopLogger{},
	}
}

// SetLogger sets the logger. Publish failures are logged at warn level.
func (p *Publisher) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	p.mu.Lock()
	p.logger = logger
	p.mu.Unlock()
}

func (p *Publisher) getLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// NewCallback implements link.CallbackFactory.
func (p *Publisher) NewCallback(l *link.Link) profile.Callback {
	return &linkCallback{
		pub:        p,
		linkID:     l.ID,
		channelUID: l.ChannelUID,
		itemName:   l.ItemName,
	}
}

func (p *Publisher) publish(topic string, msg OutboundMessage, retained bool) {
	msg.Timestamp = p.now()
	if err := p.broker.PublishJSON(topic, msg, retained); err != nil {
		p.getLogger().Warn("profile output not published",
			"topic", topic,
			"link_id", msg.LinkID,
			"error", err,
		)
	}
}

// linkCallback is the profile.Callback of one link. Commands are not
// retained; item state updates are.
type linkCallback struct {
	pub        *Publisher
	linkID     string
	channelUID string
	itemName   string

	mu      sync.RWMutex
	typeUID profile.TypeUID
}

var (
	_ profile.Callback       = (*linkCallback)(nil)
	_ link.ProfileTypeSetter = (*linkCallback)(nil)
	_ link.CallbackFactory   = (*Publisher)(nil)
)

func (c *linkCallback) SetProfileType(uid profile.TypeUID) {
	c.mu.Lock()
	c.typeUID = uid
	c.mu.Unlock()
}

func (c *linkCallback) message(v any) OutboundMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return OutboundMessage{LinkID: c.linkID, Profile: c.typeUID.String(), Value: v}
}

func (c *linkCallback) HandleCommand(cmd profile.Command) {
	c.pub.publish(c.pub.topics.OutChannelCommand(c.channelUID), c.message(cmd), false)
}

func (c *linkCallback) SendCommand(cmd profile.Command) {
	c.pub.publish(c.pub.topics.OutItemCommand(c.itemName), c.message(cmd), false)
}

func (c *linkCallback) SendUpdate(state profile.State) {
	c.pub.publish(c.pub.topics.OutItemState(c.itemName), c.message(state), true)
}
