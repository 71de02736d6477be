package profile

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// System profile types.
var (
	DefaultType               = NewStateType(DefaultUID, "Default")
	FollowType                = NewStateType(FollowUID, "Follow")
	RawButtonToggleSwitchType = NewTriggerType(RawButtonToggleSwitchUID, "Raw Button Toggle", ItemTypeSwitch)
)

// TriggerPairing maps a trigger channel type and an item type to the
// profile type the fallback advisor suggests for it.
type TriggerPairing struct {
	ChannelType ChannelTypeUID
	ItemType    string // compared case-insensitively
	Profile     TypeUID
}

// DefaultTriggerPairings returns the built-in pairing table: a raw button
// linked to a Switch item toggles it.
func DefaultTriggerPairings() []TriggerPairing {
	return []TriggerPairing{
		{ChannelType: ChannelTypeRawButton, ItemType: ItemTypeSwitch, Profile: RawButtonToggleSwitchUID},
	}
}

// SystemFactory is the advisor, factory and type provider for the system
// profiles. The Registry always consults it last, after every registered
// advisor and factory.
type SystemFactory struct {
	constructors Constructors
	pairings     []TriggerPairing
	types        []Type
	labels       *catalog.Builder
}

// NewSystemFactory creates the system factory. With no pairings the
// DefaultTriggerPairings table is used.
func NewSystemFactory(pairings ...TriggerPairing) *SystemFactory {
	if len(pairings) == 0 {
		pairings = DefaultTriggerPairings()
	}
	p := make([]TriggerPairing, len(pairings))
	copy(p, pairings)

	return &SystemFactory{
		constructors: Constructors{
			DefaultUID: func(cb Callback, _ Context) Profile { return NewDefaultProfile(cb) },
			FollowUID:  func(cb Callback, _ Context) Profile { return NewFollowProfile(cb) },
			RawButtonToggleSwitchUID: func(cb Callback, _ Context) Profile {
				return NewRawButtonToggleSwitchProfile(cb)
			},
		},
		pairings: p,
		types:    []Type{DefaultType, FollowType, RawButtonToggleSwitchType},
		labels:   systemLabelCatalog(),
	}
}

// systemLabelCatalog holds label translations. English labels double as
// the message keys, so a locale without translations prints them unchanged.
func systemLabelCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, m := range []struct {
		tag   language.Tag
		key   string
		trans string
	}{
		{language.English, "Default", "Default"},
		{language.English, "Follow", "Follow"},
		{language.English, "Raw Button Toggle", "Raw Button Toggle"},
		{language.German, "Default", "Standard"},
		{language.German, "Follow", "Folgen"},
		{language.German, "Raw Button Toggle", "Taster umschalten"},
		{language.French, "Default", "Par défaut"},
		{language.French, "Follow", "Suivre"},
		{language.French, "Raw Button Toggle", "Basculer par bouton"},
	} {
		// SetString only fails for malformed messages; these are literals.
		_ = b.SetString(m.tag, m.key, m.trans) //nolint:errcheck // static catalog
	}
	return b
}

// SuggestProfileType implements Advisor.
//
// STATE channels always get the default profile. TRIGGER channels get a
// suggestion only when the channel type and item type match a pairing.
// Any other kind is a model error and returns ErrUnsupportedChannelKind.
func (f *SystemFactory) SuggestProfileType(ch Channel, itemType string) (TypeUID, bool, error) {
	switch ch.Kind {
	case KindState:
		return DefaultUID, true, nil
	case KindTrigger:
		for _, p := range f.pairings {
			if p.ChannelType == ch.TypeUID && strings.EqualFold(p.ItemType, itemType) {
				return p.Profile, true, nil
			}
		}
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%w: %q on channel %s", ErrUnsupportedChannelKind, ch.Kind, ch.UID)
	}
}

// CreateProfile implements Factory.
func (f *SystemFactory) CreateProfile(uid TypeUID, cb Callback, pctx Context) (Profile, bool) {
	return f.constructors.CreateProfile(uid, cb, pctx)
}

// ProfileTypes implements TypeProvider.
func (f *SystemFactory) ProfileTypes(locale language.Tag) []Type {
	printer := message.NewPrinter(locale, message.Catalog(f.labels))
	out := make([]Type, 0, len(f.types))
	for _, t := range f.types {
		out = append(out, t.WithLabel(printer.Sprintf(t.Label)))
	}
	return out
}

// SupportedTypeUIDs implements TypeProvider.
func (f *SystemFactory) SupportedTypeUIDs() []TypeUID {
	return f.constructors.SupportedTypeUIDs()
}

// Pairings returns a copy of the trigger pairing table.
func (f *SystemFactory) Pairings() []TriggerPairing {
	out := make([]TriggerPairing, len(f.pairings))
	copy(out, f.pairings)
	return out
}
