package bus

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueMessage carries a state or command on an inbound topic.
// Topic: {prefix}/channel/{uid}/state|command, {prefix}/item/{name}/command|state
type ValueMessage struct {
	// Value is any JSON value. Numbers decode as float64.
	Value any `json:"value"`

	// Timestamp is when the sender observed the value (optional).
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// TriggerMessage carries a trigger event.
// Topic: {prefix}/channel/{uid}/trigger
type TriggerMessage struct {
	// Event is the trigger name, e.g. "PRESSED". Compared exactly.
	Event string `json:"event"`

	Timestamp time.Time `json:"timestamp,omitzero"`
}

// OutboundMessage is published for every profile emission.
// Topic: {prefix}/out/item/{name}/command|state, {prefix}/out/channel/{uid}/command
type OutboundMessage struct {
	LinkID    string    `json:"link_id"`
	Profile   string    `json:"profile"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// decodeValue parses a ValueMessage. The "value" key must be present;
// an explicit null is accepted and delivered as nil.
func decodeValue(payload []byte) (any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	rawValue, ok := raw["value"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"value\"", ErrMalformedPayload)
	}

	var v any
	if err := json.Unmarshal(rawValue, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return v, nil
}

// decodeTrigger parses a TriggerMessage and returns its event.
func decodeTrigger(payload []byte) (string, error) {
	var msg TriggerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if msg.Event == "" {
		return "", fmt.Errorf("%w: missing \"event\"", ErrMalformedPayload)
	}
	return msg.Event, nil
}
