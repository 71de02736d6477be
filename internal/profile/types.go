package profile

import (
	"fmt"
	"regexp"
	"strings"
)

// ChannelKind determines which profile capability a channel requires.
type ChannelKind string

// Channel kinds.
const (
	// KindState channels report persistent state values.
	KindState ChannelKind = "STATE"

	// KindTrigger channels fire momentary events (button presses, etc.).
	KindTrigger ChannelKind = "TRIGGER"
)

// ParseChannelKind converts a string to a ChannelKind.
// Matching is case-insensitive. Anything other than STATE or TRIGGER
// returns ErrUnsupportedChannelKind.
func ParseChannelKind(s string) (ChannelKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindState):
		return KindState, nil
	case string(KindTrigger):
		return KindTrigger, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedChannelKind, s)
	}
}

// String implements fmt.Stringer.
func (k ChannelKind) String() string {
	return string(k)
}

// ChannelTypeUID identifies a channel type, e.g. "system:rawbutton".
type ChannelTypeUID string

// ChannelTypeRawButton is the system channel type of a raw push button.
// Raw buttons fire PRESSED and RELEASED and have no readable state.
const ChannelTypeRawButton ChannelTypeUID = "system:rawbutton"

// Channel describes the endpoint side of a link.
type Channel struct {
	// UID uniquely identifies the channel (e.g. "hue:0210:bridge:dimmer:button1").
	UID string

	// Kind is STATE or TRIGGER.
	Kind ChannelKind

	// TypeUID is the channel type, used to recognise well-known system
	// channel types. Empty when the channel has no declared type.
	TypeUID ChannelTypeUID
}

// TypeUID is the globally unique identifier of a profile type.
// It is namespaced as "namespace:id" and compared by value.
type TypeUID string

// System profile type UIDs.
const (
	DefaultUID               TypeUID = "system:default"
	FollowUID                TypeUID = "system:follow"
	RawButtonToggleSwitchUID TypeUID = "system:rawbutton-toggle-switch"
)

// typeUIDPattern matches "namespace:id" where both segments are non-empty
// and contain only letters, digits, '-' and '_'.
var typeUIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+:[A-Za-z0-9_-]+$`)

// ParseTypeUID validates s and returns it as a TypeUID.
func ParseTypeUID(s string) (TypeUID, error) {
	if !typeUIDPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTypeUID, s)
	}
	return TypeUID(s), nil
}

// Namespace returns the part before the first colon.
func (u TypeUID) Namespace() string {
	ns, _, _ := strings.Cut(string(u), ":")
	return ns
}

// ID returns the part after the first colon.
func (u TypeUID) ID() string {
	_, id, _ := strings.Cut(string(u), ":")
	return id
}

// IsZero reports whether the UID is empty (not configured).
func (u TypeUID) IsZero() bool {
	return u == ""
}

// String implements fmt.Stringer.
func (u TypeUID) String() string {
	return string(u)
}

// Type describes a profile kind: its identity, label, the item types it
// supports and whether it handles state or trigger channels.
//
// Types are created once at registration time and never mutated. Use
// NewStateType or NewTriggerType so the item type list is copied.
type Type struct {
	UID       TypeUID
	Label     string
	ItemTypes []string
	Kind      ChannelKind
}

// NewStateType returns a state-based profile type.
func NewStateType(uid TypeUID, label string, itemTypes ...string) Type {
	return newType(uid, label, KindState, itemTypes)
}

// NewTriggerType returns a trigger-based profile type.
func NewTriggerType(uid TypeUID, label string, itemTypes ...string) Type {
	return newType(uid, label, KindTrigger, itemTypes)
}

func newType(uid TypeUID, label string, kind ChannelKind, itemTypes []string) Type {
	var its []string
	if len(itemTypes) > 0 {
		its = make([]string, len(itemTypes))
		copy(its, itemTypes)
	}
	return Type{UID: uid, Label: label, ItemTypes: its, Kind: kind}
}

// SupportsItemType reports whether the type can be used with the given item
// type. An empty ItemTypes list supports every item type.
func (t Type) SupportsItemType(itemType string) bool {
	if len(t.ItemTypes) == 0 {
		return true
	}
	for _, it := range t.ItemTypes {
		if strings.EqualFold(it, itemType) {
			return true
		}
	}
	return false
}

// WithLabel returns a copy of t with a different label.
// Used by providers when localising.
func (t Type) WithLabel(label string) Type {
	return newType(t.UID, label, t.Kind, t.ItemTypes)
}

// Command is a value sent toward an item or a channel handler.
type Command any

// State is a state value reported by a channel or an item.
type State any

// OnOff is the command type emitted by switch-like profiles.
type OnOff string

// OnOff values.
const (
	On  OnOff = "ON"
	Off OnOff = "OFF"
)

// Common trigger events fired by raw button channels.
const (
	EventPressed  = "PRESSED"
	EventReleased = "RELEASED"
)

// Item types referenced by the system profiles.
const (
	ItemTypeSwitch = "Switch"
)
