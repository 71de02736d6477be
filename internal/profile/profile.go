package profile

import "sort"

// Profile is the common capability of every profile instance.
//
// A profile is bound at construction to a single Callback and lives as long
// as its link. Concrete profiles implement StateProfile or TriggerProfile.
type Profile interface {
	// TypeUID returns the profile type this instance was created for.
	TypeUID() TypeUID

	// Kind returns the channel kind the profile handles.
	Kind() ChannelKind
}

// StateProfile handles links to STATE channels.
type StateProfile interface {
	Profile

	// OnStateFromHandler is called when the channel reports a new state.
	OnStateFromHandler(state State)

	// OnCommandFromHandler is called when the channel issues a command toward the item.
	OnCommandFromHandler(cmd Command)

	// OnCommandFromItem is called when the item receives a command.
	OnCommandFromItem(cmd Command)

	// OnStateUpdateFromItem is called when the item's state is updated.
	OnStateUpdateFromItem(state State)
}

// TriggerProfile handles links to TRIGGER channels.
type TriggerProfile interface {
	Profile

	// OnTriggerFromHandler is called when the channel fires an event.
	OnTriggerFromHandler(event string)
}

// IsState reports whether p can process state updates.
func IsState(p Profile) bool {
	_, ok := p.(StateProfile)
	return ok && p.Kind() == KindState
}

// IsTrigger reports whether p can process trigger events.
func IsTrigger(p Profile) bool {
	_, ok := p.(TriggerProfile)
	return ok && p.Kind() == KindTrigger
}

// Callback is the output port a profile emits through.
// Profiles call it; they never call back into the Registry.
type Callback interface {
	// HandleCommand forwards a command to the channel handler (item → channel).
	HandleCommand(cmd Command)

	// SendCommand emits a command toward the item (channel → item).
	SendCommand(cmd Command)

	// SendUpdate emits a state update toward the item (channel → item).
	SendUpdate(state State)
}

// Context carries per-instance configuration into a factory.
// It is opaque beyond key/value lookup.
type Context struct {
	config map[string]any
}

// NewContext returns a Context holding a copy of config.
func NewContext(config map[string]any) Context {
	c := make(map[string]any, len(config))
	for k, v := range config {
		c[k] = v
	}
	return Context{config: c}
}

// Get returns the configuration value stored under key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c.config[key]
	return v, ok
}

// Keys returns the configured keys in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.config))
	for k := range c.config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
