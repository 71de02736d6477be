package link

import (
	"time"

	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// Link associates a channel with an item.
type Link struct {
	// Identity
	ID string `json:"id" yaml:"id,omitempty"`

	// Channel side
	ChannelUID     string                 `json:"channel_uid" yaml:"channel"`
	ChannelKind    profile.ChannelKind    `json:"channel_kind" yaml:"kind"`
	ChannelTypeUID profile.ChannelTypeUID `json:"channel_type_uid,omitempty" yaml:"channel_type,omitempty"`

	// Item side
	ItemName string `json:"item_name" yaml:"item"`
	ItemType string `json:"item_type,omitempty" yaml:"item_type,omitempty"`

	// ProfileTypeUID is the explicitly configured profile. Empty means the
	// profile is chosen by the advisors.
	ProfileTypeUID profile.TypeUID `json:"profile_type_uid,omitempty" yaml:"profile,omitempty"`

	// Configuration is handed to the profile factory as its Context.
	Configuration map[string]any `json:"configuration,omitempty" yaml:"configuration,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Channel returns the channel descriptor used during resolution.
func (l *Link) Channel() profile.Channel {
	return profile.Channel{
		UID:     l.ChannelUID,
		Kind:    l.ChannelKind,
		TypeUID: l.ChannelTypeUID,
	}
}

// Request builds the resolution request for this link.
func (l *Link) Request() profile.Request {
	return profile.Request{
		Channel:    l.Channel(),
		Configured: l.ProfileTypeUID,
		ItemType:   l.ItemType,
		Context:    profile.NewContext(l.Configuration),
	}
}

// DeepCopy creates a deep copy of the link.
func (l *Link) DeepCopy() *Link {
	if l == nil {
		return nil
	}
	cpy := *l
	cpy.Configuration = deepCopyMap(l.Configuration)
	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// Direction identifies where a profile emission is headed.
type Direction string

// Emission directions.
const (
	DirectionItemCommand    Direction = "item_command"
	DirectionItemState      Direction = "item_state"
	DirectionChannelCommand Direction = "channel_command"
)

// Emission is one value a bound profile sent through its callback.
type Emission struct {
	LinkID    string
	Profile   profile.TypeUID
	Direction Direction
	Value     any
	Timestamp time.Time
}

// BindingInfo describes an active binding.
type BindingInfo struct {
	LinkID    string
	TypeUID   profile.TypeUID
	Source    profile.Source
	BoundAt   time.Time
	Delivered uint64 // events delivered to the profile
}

// UnresolvedLink is a link that could not be bound to a profile.
type UnresolvedLink struct {
	Link  *Link
	Err   error
	Since time.Time
}
