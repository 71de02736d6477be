package profile

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Source records which resolution step settled the type UID.
type Source string

// Resolution sources.
const (
	SourceConfigured Source = "configured"
	SourceAdvisor    Source = "advisor"
	SourceFallback   Source = "fallback"
)

// Request is everything the hub knows about a link when it is activated.
type Request struct {
	Channel    Channel
	Configured TypeUID // empty when the link has no explicit profile
	ItemType   string
	Context    Context
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	TypeUID TypeUID
	Source  Source
	Profile Profile
}

// Registry aggregates the advisors, factories and type providers of a hub
// and runs the resolution protocol.
//
// Registration order is significant: advisors and factories are consulted
// in the order they were added. The SystemFactory always runs after them.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	advisors  []Advisor
	factories []Factory
	providers []TypeProvider
	system    *SystemFactory
	logger    Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithSystemFactory replaces the fallback SystemFactory, e.g. to supply a
// custom trigger pairing table.
func WithSystemFactory(f *SystemFactory) Option {
	return func(r *Registry) {
		if f != nil {
			r.system = f
		}
	}
}

// NewRegistry creates a registry containing only the system profiles.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		system: NewSystemFactory(),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// AddAdvisor appends an advisor. It is consulted after every advisor
// added before it.
func (r *Registry) AddAdvisor(a Advisor) {
	r.mu.Lock()
	r.advisors = append(r.advisors, a)
	r.mu.Unlock()
}

// AddFactory appends a factory.
func (r *Registry) AddFactory(f Factory) {
	r.mu.Lock()
	r.factories = append(r.factories, f)
	r.mu.Unlock()
}

// AddTypeProvider appends a type provider.
func (r *Registry) AddTypeProvider(p TypeProvider) {
	r.mu.Lock()
	r.providers = append(r.providers, p)
	r.mu.Unlock()
}

func (r *Registry) getLogger() Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// System returns the fallback SystemFactory.
func (r *Registry) System() *SystemFactory {
	return r.system
}

// SuggestTypeUID settles the profile type UID for a link.
//
// A configured UID is returned as-is without consulting any advisor.
// Otherwise advisors run in registration order and the first suggestion
// wins; the SystemFactory runs last.
//
// Returns:
//   - ErrNoSuggestion if nobody suggested a type
//   - ErrUnsupportedChannelKind if the fallback met an unknown channel kind
//   - any error returned by an advisor
func (r *Registry) SuggestTypeUID(ch Channel, configured TypeUID, itemType string) (TypeUID, error) {
	uid, _, err := r.suggest(ch, configured, itemType)
	return uid, err
}

func (r *Registry) suggest(ch Channel, configured TypeUID, itemType string) (TypeUID, Source, error) {
	if !configured.IsZero() {
		return configured, SourceConfigured, nil
	}

	r.mu.RLock()
	advisors := make([]Advisor, len(r.advisors))
	copy(advisors, r.advisors)
	r.mu.RUnlock()

	for _, a := range advisors {
		uid, ok, err := a.SuggestProfileType(ch, itemType)
		if err != nil {
			return "", "", fmt.Errorf("advising channel %s: %w", ch.UID, err)
		}
		if ok {
			return uid, SourceAdvisor, nil
		}
	}

	uid, ok, err := r.system.SuggestProfileType(ch, itemType)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", fmt.Errorf("%w: channel %s (kind %s, type %q), item type %q",
			ErrNoSuggestion, ch.UID, ch.Kind, ch.TypeUID, itemType)
	}
	return uid, SourceFallback, nil
}

// CreateProfile instantiates a profile of the given type bound to cb.
// Factories run in registration order, then the SystemFactory. The first
// one that produces an instance wins.
func (r *Registry) CreateProfile(uid TypeUID, cb Callback, pctx Context) (Profile, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}

	r.mu.RLock()
	factories := make([]Factory, 0, len(r.factories)+1)
	factories = append(factories, r.factories...)
	factories = append(factories, r.system)
	r.mu.RUnlock()

	for _, f := range factories {
		if p, ok := f.CreateProfile(uid, cb, pctx); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnresolvedProfile, uid)
}

// Resolve runs the full protocol for one link: settle the type UID, create
// the profile and check that it handles the channel's kind.
//
// Resolution is deterministic: the same request against the same
// registration order always yields the same type UID and profile variant.
func (r *Registry) Resolve(req Request, cb Callback) (*Resolution, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}

	uid, source, err := r.suggest(req.Channel, req.Configured, req.ItemType)
	if err != nil {
		return nil, err
	}

	p, err := r.CreateProfile(uid, cb, req.Context)
	if err != nil {
		return nil, err
	}

	if !handlesKind(p, req.Channel.Kind) {
		return nil, fmt.Errorf("%w: profile %s handles %s, channel %s is %s",
			ErrKindMismatch, uid, p.Kind(), req.Channel.UID, req.Channel.Kind)
	}

	r.getLogger().Debug("profile resolved",
		"channel", req.Channel.UID,
		"profile", uid,
		"source", source,
	)

	return &Resolution{TypeUID: uid, Source: source, Profile: p}, nil
}

func handlesKind(p Profile, kind ChannelKind) bool {
	switch kind {
	case KindState:
		return IsState(p)
	case KindTrigger:
		return IsTrigger(p)
	default:
		return false
	}
}

// ProfileTypes returns the union of all provider types, de-duplicated by
// UID and sorted by UID. The SystemFactory is always the first provider, so
// a registered provider may override a system type. Duplicates are logged
// and the most recently registered definition wins.
func (r *Registry) ProfileTypes(locale language.Tag) []Type {
	r.mu.RLock()
	providers := make([]TypeProvider, 0, len(r.providers)+1)
	providers = append(providers, r.system)
	providers = append(providers, r.providers...)
	logger := r.logger
	r.mu.RUnlock()

	byUID := make(map[TypeUID]Type)
	owner := make(map[TypeUID]int)
	for i, p := range providers {
		for _, t := range p.ProfileTypes(locale) {
			if prev, dup := owner[t.UID]; dup {
				logger.Warn("duplicate profile type",
					"uid", t.UID,
					"previous_provider", fmt.Sprintf("%T", providers[prev]),
					"provider", fmt.Sprintf("%T", p),
				)
			}
			byUID[t.UID] = t
			owner[t.UID] = i
		}
	}

	uids := make([]TypeUID, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}
	sortUIDs(uids)

	out := make([]Type, 0, len(uids))
	for _, uid := range uids {
		out = append(out, byUID[uid])
	}
	return out
}

// ProfileType returns the type registered under uid.
func (r *Registry) ProfileType(uid TypeUID, locale language.Tag) (Type, bool) {
	for _, t := range r.ProfileTypes(locale) {
		if t.UID == uid {
			return t, true
		}
	}
	return Type{}, false
}
