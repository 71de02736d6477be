// Package profile provides the profile layer that sits on the event path
// between a channel and the item it is linked to.
//
// A profile translates channel state updates and trigger events into item
// commands and state updates, and item commands back into channel commands.
// Every link owns exactly one profile instance.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                        Registry (registry.go)                    │
//	│                                                                  │
//	│  1. configured type UID?  ──yes──▶ use it                        │
//	│  2. advisors (registration order), first suggestion wins         │
//	│  3. SystemFactory fallback advisor                               │
//	│  4. factories (registration order), then SystemFactory           │
//	│  5. kind check: channel kind == profile kind                     │
//	└─────────────────────────────────────────────────────────────────┘
//	              │                                   │
//	              ▼                                   ▼
//	┌──────────────────────────┐        ┌──────────────────────────────┐
//	│ Advisor / Factory /      │        │ Profiles                      │
//	│ TypeProvider interfaces  │        │ • DefaultProfile  (state)     │
//	│ (advisor.go)             │        │ • FollowProfile   (state)     │
//	└──────────────────────────┘        │ • RawButtonToggleSwitchProfile│
//	                                    │   (trigger)                   │
//	                                    └──────────────────────────────┘
//
// # Key Types
//
//   - Channel, ChannelKind: the endpoint being linked and whether it reports
//     state or fires trigger events
//   - TypeUID, Type: identity and metadata of a profile kind
//   - Profile, StateProfile, TriggerProfile: the capability interfaces
//   - Callback: the output port a profile emits through
//   - Registry: the composition root for advisors, factories and providers
//
// # Usage
//
//	registry := profile.NewRegistry()
//	registry.SetLogger(log)
//	registry.AddAdvisor(myAdvisor)
//
//	res, err := registry.Resolve(profile.Request{
//	    Channel:  profile.Channel{UID: "hue:0210:bridge:button", Kind: profile.KindTrigger, TypeUID: profile.ChannelTypeRawButton},
//	    ItemType: "Switch",
//	}, callback)
//	if err != nil {
//	    return err
//	}
//	res.Profile.(profile.TriggerProfile).OnTriggerFromHandler(profile.EventPressed)
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Profile instances are not
// internally synchronised; callers must serialise the events delivered to a
// single instance (see the link package).
package profile
