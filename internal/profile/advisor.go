package profile

import (
	"sort"

	"golang.org/x/text/language"
)

// Advisor suggests a profile type for a link that has none configured.
//
// Advisors must be side-effect free. When unsure they return ok=false
// rather than a guess. An error aborts resolution for the link.
type Advisor interface {
	SuggestProfileType(ch Channel, itemType string) (uid TypeUID, ok bool, err error)
}

// AdvisorFunc adapts a function to the Advisor interface.
type AdvisorFunc func(ch Channel, itemType string) (TypeUID, bool, error)

// SuggestProfileType implements Advisor.
func (f AdvisorFunc) SuggestProfileType(ch Channel, itemType string) (TypeUID, bool, error) {
	return f(ch, itemType)
}

// Factory instantiates profiles for the type UIDs it supports.
// It returns ok=false for UIDs it does not know.
type Factory interface {
	CreateProfile(uid TypeUID, cb Callback, pctx Context) (p Profile, ok bool)
}

// TypeProvider publishes profile type metadata.
//
// The locale only affects labels, never identity or semantics.
type TypeProvider interface {
	ProfileTypes(locale language.Tag) []Type
	SupportedTypeUIDs() []TypeUID
}

// Constructor builds a profile instance bound to cb.
type Constructor func(cb Callback, pctx Context) Profile

// Constructors is a lookup table from type UID to constructor.
// It implements Factory, so new profile kinds can be added by registering a
// constructor instead of writing a factory.
type Constructors map[TypeUID]Constructor

// CreateProfile implements Factory.
func (c Constructors) CreateProfile(uid TypeUID, cb Callback, pctx Context) (Profile, bool) {
	ctor, ok := c[uid]
	if !ok {
		return nil, false
	}
	p := ctor(cb, pctx)
	if p == nil {
		return nil, false
	}
	return p, true
}

// SupportedTypeUIDs returns the registered UIDs in sorted order.
func (c Constructors) SupportedTypeUIDs() []TypeUID {
	uids := make([]TypeUID, 0, len(c))
	for uid := range c {
		uids = append(uids, uid)
	}
	sortUIDs(uids)
	return uids
}

func sortUIDs(uids []TypeUID) {
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
}
