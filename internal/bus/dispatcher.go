package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-link/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// Handler receives routed events. *link.Manager satisfies it.
// Each method returns the number of profiles the event reached.
type Handler interface {
	HandleChannelState(channelUID string, state profile.State) int
	HandleChannelCommand(channelUID string, cmd profile.Command) int
	HandleChannelTrigger(channelUID, event string) int
	HandleItemCommand(itemName string, cmd profile.Command) int
	HandleItemState(itemName string, state profile.State) int
}

// Stats counts inbound traffic since Start.
type Stats struct {
	Received  uint64
	Delivered uint64 // profile deliveries, one message may fan out
	Dropped   uint64 // malformed or unroutable
}

// Dispatcher subscribes to the inbound channel and item topics and routes
// each message to the Handler. Malformed messages are logged and dropped.
type Dispatcher struct {
	broker  Broker
	topics  mqtt.Topics
	handler Handler

	mu      sync.Mutex
	started bool
	subs    []string

	logMu  sync.RWMutex
	logger Logger

	received  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher creates a Dispatcher. Call Start to subscribe.
func NewDispatcher(broker Broker, topics mqtt.Topics, handler Handler) *Dispatcher {
	return &Dispatcher{
		broker:  broker,
		topics:  topics,
		handler: handler,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	d.logMu.Lock()
	d.logger = logger
	d.logMu.Unlock()
}

func (d *Dispatcher) getLogger() Logger {
	d.logMu.RLock()
	defer d.logMu.RUnlock()
	return d.logger
}

// Start subscribes to the inbound wildcards. If a subscription fails the
// ones already made are undone.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return ErrAlreadyStarted
	}

	for _, topic := range []string{d.topics.AllChannelEvents(), d.topics.AllItemEvents()} {
		if err := d.broker.Subscribe(topic, d.broker.QoS(), d.onMessage); err != nil {
			d.unsubscribeAll()
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		d.subs = append(d.subs, topic)
		d.getLogger().Info("subscribed", "topic", topic)
	}

	d.started = true
	return nil
}

// Stop unsubscribes. Safe to call more than once.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return nil
	}
	d.started = false
	return d.unsubscribeAll()
}

func (d *Dispatcher) unsubscribeAll() error {
	var errs []error
	for _, topic := range d.subs {
		if err := d.broker.Unsubscribe(topic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing from %s: %w", topic, err))
		}
	}
	d.subs = nil
	return errors.Join(errs...)
}

// Stats returns the traffic counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Received:  d.received.Load(),
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// onMessage is the broker handler. Errors are logged here so the message
// is dropped without a second report from the client.
func (d *Dispatcher) onMessage(topic string, payload []byte) error {
	d.received.Add(1)

	n, err := d.Route(topic, payload)
	if err != nil {
		d.dropped.Add(1)
		d.getLogger().Warn("inbound message dropped", "topic", topic, "error", err)
		return nil
	}

	d.delivered.Add(uint64(n)) //nolint:gosec // n is a non-negative count
	if n == 0 {
		d.getLogger().Debug("no bound profile for event", "topic", topic)
	}
	return nil
}

// Route decodes one inbound message and hands it to the Handler. It
// returns how many profiles received the event.
func (d *Dispatcher) Route(topic string, payload []byte) (int, error) {
	route, ok := d.topics.Parse(topic)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnroutableTopic, topic)
	}

	if route.Event == mqtt.EventTrigger {
		event, err := decodeTrigger(payload)
		if err != nil {
			return 0, err
		}
		return d.handler.HandleChannelTrigger(route.ID, event), nil
	}

	value, err := decodeValue(payload)
	if err != nil {
		return 0, err
	}

	switch {
	case route.Channel && route.Event == mqtt.EventState:
		return d.handler.HandleChannelState(route.ID, value), nil
	case route.Channel:
		return d.handler.HandleChannelCommand(route.ID, value), nil
	case route.Event == mqtt.EventCommand:
		return d.handler.HandleItemCommand(route.ID, value), nil
	default:
		return d.handler.HandleItemState(route.ID, value), nil
	}
}
