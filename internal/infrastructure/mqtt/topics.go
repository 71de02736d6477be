package mqtt

import "strings"

// DefaultTopicPrefix is the root of every topic when none is configured.
const DefaultTopicPrefix = "graylink"

// Topic segments.
const (
	segChannel = "channel"
	segItem    = "item"
	segOut     = "out"
	segSystem  = "system"
)

// Inbound event names (last topic segment).
const (
	EventState   = "state"
	EventCommand = "command"
	EventTrigger = "trigger"
)

// Topics builds link topics under a common prefix.
//
// Inbound (published by bindings and the item layer, consumed here):
//
//	{prefix}/channel/{channelUID}/state
//	{prefix}/channel/{channelUID}/command
//	{prefix}/channel/{channelUID}/trigger
//	{prefix}/item/{itemName}/command
//	{prefix}/item/{itemName}/state
//
// Outbound (emitted by profiles):
//
//	{prefix}/out/item/{itemName}/command
//	{prefix}/out/item/{itemName}/state
//	{prefix}/out/channel/{channelUID}/command
//
// The zero value uses DefaultTopicPrefix.
type Topics struct {
	Prefix string
}

// NewTopics returns a builder for prefix.
func NewTopics(prefix string) Topics {
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

func (t Topics) join(parts ...string) string {
	return t.prefix() + "/" + strings.Join(parts, "/")
}

// ─── Inbound ────────────────────────────────────────────────────────

// ChannelState is where a binding reports a channel's state.
func (t Topics) ChannelState(channelUID string) string {
	return t.join(segChannel, channelUID, EventState)
}

// ChannelCommand is where a binding reports a command issued by a channel.
func (t Topics) ChannelCommand(channelUID string) string {
	return t.join(segChannel, channelUID, EventCommand)
}

// ChannelTrigger is where a binding reports a trigger event.
func (t Topics) ChannelTrigger(channelUID string) string {
	return t.join(segChannel, channelUID, EventTrigger)
}

// ItemCommand is where the item layer reports a command sent to an item.
func (t Topics) ItemCommand(itemName string) string {
	return t.join(segItem, itemName, EventCommand)
}

// ItemState is where the item layer reports an item state update.
func (t Topics) ItemState(itemName string) string {
	return t.join(segItem, itemName, EventState)
}

// ─── Outbound ───────────────────────────────────────────────────────

// OutItemCommand carries commands emitted toward an item.
func (t Topics) OutItemCommand(itemName string) string {
	return t.join(segOut, segItem, itemName, EventCommand)
}

// OutItemState carries state updates emitted toward an item.
func (t Topics) OutItemState(itemName string) string {
	return t.join(segOut, segItem, itemName, EventState)
}

// OutChannelCommand carries commands forwarded to a channel handler.
func (t Topics) OutChannelCommand(channelUID string) string {
	return t.join(segOut, segChannel, channelUID, EventCommand)
}

// ─── System ─────────────────────────────────────────────────────────

// SystemStatus is the retained online/offline topic.
func (t Topics) SystemStatus() string {
	return t.join(segSystem, "status")
}

// ─── Wildcards ──────────────────────────────────────────────────────

// AllChannelEvents matches every inbound channel topic.
func (t Topics) AllChannelEvents() string {
	return t.join(segChannel, "+", "+")
}

// AllItemEvents matches every inbound item topic.
func (t Topics) AllItemEvents() string {
	return t.join(segItem, "+", "+")
}

// ─── Parsing ────────────────────────────────────────────────────────

// Route is a parsed inbound topic.
type Route struct {
	// Channel is true for channel topics, false for item topics.
	Channel bool

	// ID is the channel UID or item name.
	ID string

	// Event is EventState, EventCommand or EventTrigger.
	Event string
}

// Parse splits an inbound topic into its route. It returns false for
// topics outside the prefix, outbound topics and unknown events.
// Item topics never carry EventTrigger.
func (t Topics) Parse(topic string) (Route, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/")
	if !ok {
		return Route{}, false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] == "" {
		return Route{}, false
	}

	r := Route{ID: parts[1], Event: parts[2]}
	switch parts[0] {
	case segChannel:
		r.Channel = true
		switch r.Event {
		case EventState, EventCommand, EventTrigger:
			return r, true
		}
	case segItem:
		switch r.Event {
		case EventState, EventCommand:
			return r, true
		}
	}
	return Route{}, false
}
