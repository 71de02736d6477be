package bus

import "errors"

var (
	// ErrMalformedPayload is returned for payloads that are not the
	// expected JSON message.
	ErrMalformedPayload = errors.New("bus: malformed payload")

	// ErrUnroutableTopic is returned for topics outside the inbound tree.
	ErrUnroutableTopic = errors.New("bus: unroutable topic")

	// ErrAlreadyStarted is returned by Start on a running dispatcher.
	ErrAlreadyStarted = errors.New("bus: dispatcher already started")
)
