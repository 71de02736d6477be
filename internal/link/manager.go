package link

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// DefaultActivationWorkers bounds concurrent resolutions in ActivateAll.
const DefaultActivationWorkers = 4

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CallbackFactory creates the callback a link's profile emits through.
// Implemented by the event bus.
type CallbackFactory interface {
	NewCallback(l *Link) profile.Callback
}

// ProfileTypeSetter is implemented by callbacks that label their output
// with the resolved profile type. It is called once per activation, before
// the binding receives any event.
type ProfileTypeSetter interface {
	SetProfileType(uid profile.TypeUID)
}

// Recorder observes every value a bound profile emits.
type Recorder interface {
	RecordEmission(e Emission)
}

// ResolutionRecorder may additionally be implemented by a Recorder to
// observe each successful activation.
type ResolutionRecorder interface {
	RecordResolution(linkID string, uid profile.TypeUID, source profile.Source)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(Emission)

// RecordEmission implements Recorder.
func (f RecorderFunc) RecordEmission(e Emission) { f(e) }

// binding is an activated link and its cached profile.
//
// mu serialises event delivery. Once stale is set the profile receives
// nothing more.
type binding struct {
	mu    sync.Mutex
	stale bool

	link      *Link
	res       *profile.Resolution
	boundAt   time.Time
	delivered atomic.Uint64
}

// deliver hands the profile to fn while holding the binding lock.
// fn reports whether the profile accepted the event.
func (b *binding) deliver(fn func(profile.Profile) bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stale {
		return false
	}
	if !fn(b.res.Profile) {
		return false
	}
	b.delivered.Add(1)
	return true
}

func (b *binding) info() BindingInfo {
	return BindingInfo{
		LinkID:    b.link.ID,
		TypeUID:   b.res.TypeUID,
		Source:    b.res.Source,
		BoundAt:   b.boundAt,
		Delivered: b.delivered.Load(),
	}
}

// linkLocks hands out one mutex per link ID. Entries are dropped when no
// caller holds or waits for them.
type linkLocks struct {
	mu    sync.Mutex
	locks map[string]*linkLock
}

type linkLock struct {
	sync.Mutex
	refs int
}

// lock blocks until the caller owns id and returns the matching unlock.
func (k *linkLocks) lock(id string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*linkLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &linkLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

// Manager owns the bindings of all links and routes events to them.
//
// All public methods are thread-safe. Lifecycle operations on one link ID
// (store write, resolution and rebind) run one at a time, in call order.
type Manager struct {
	repo      Repository
	registry  *profile.Registry
	callbacks CallbackFactory
	links     linkLocks

	mu         sync.RWMutex
	bindings   map[string]*binding            // link ID → binding
	byChannel  map[string]map[string]*binding // channel UID → link ID → binding
	byItem     map[string]map[string]*binding // item name → link ID → binding
	unresolved map[string]UnresolvedLink
	workers    int
	logger     Logger

	recMu    sync.RWMutex
	recorder Recorder
}

// NewManager creates a Manager.
func NewManager(repo Repository, registry *profile.Registry, callbacks CallbackFactory) *Manager {
	return &Manager{
		repo:       repo,
		registry:   registry,
		callbacks:  callbacks,
		bindings:   make(map[string]*binding),
		byChannel:  make(map[string]map[string]*binding),
		byItem:     make(map[string]map[string]*binding),
		unresolved: make(map[string]UnresolvedLink),
		workers:    DefaultActivationWorkers,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// SetRecorder sets the emission recorder. Nil disables recording.
func (m *Manager) SetRecorder(r Recorder) {
	m.recMu.Lock()
	m.recorder = r
	m.recMu.Unlock()
}

// SetActivationWorkers bounds the number of concurrent resolutions in
// ActivateAll. Values below 1 are ignored.
func (m *Manager) SetActivationWorkers(n int) {
	if n < 1 {
		return
	}
	m.mu.Lock()
	m.workers = n
	m.mu.Unlock()
}

func (m *Manager) getLogger() Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Activate resolves a profile for the link and binds it. An existing
// binding for the same link ID is replaced atomically.
//
// When resolution fails the link is left inert, recorded as unresolved,
// and the error is returned.
func (m *Manager) Activate(ctx context.Context, l *Link) error {
	if l == nil || l.ID == "" {
		return fmt.Errorf("%w: link id is required", ErrInvalidLink)
	}
	unlock := m.links.lock(l.ID)
	defer unlock()
	return m.activate(ctx, l)
}

// activate must be called with the link's lock held.
func (m *Manager) activate(ctx context.Context, l *Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l = l.DeepCopy()

	if m.callbacks == nil {
		return errNilFactory
	}
	cb := &observedCallback{next: m.callbacks.NewCallback(l), manager: m, linkID: l.ID}

	res, err := m.registry.Resolve(l.Request(), cb)
	if err != nil {
		m.markUnresolved(l, err)
		m.getLogger().Warn("link unresolved",
			"link_id", l.ID,
			"channel", l.ChannelUID,
			"item", l.ItemName,
			"error", err,
		)
		return fmt.Errorf("activating link %s: %w", l.ID, err)
	}
	cb.typeUID = res.TypeUID
	if s, ok := cb.next.(ProfileTypeSetter); ok {
		s.SetProfileType(res.TypeUID)
	}

	m.install(&binding{link: l, res: res, boundAt: time.Now().UTC()})

	m.getLogger().Debug("link bound",
		"link_id", l.ID,
		"channel", l.ChannelUID,
		"item", l.ItemName,
		"profile", res.TypeUID,
		"source", res.Source,
	)
	m.recordResolution(l.ID, res)
	return nil
}

// Deactivate removes the binding of a link. Returns false if the link was
// neither bound nor unresolved.
func (m *Manager) Deactivate(id string) bool {
	unlock := m.links.lock(id)
	defer unlock()
	return m.deactivate(id)
}

// deactivate must be called with the link's lock held.
func (m *Manager) deactivate(id string) bool {
	old := m.retireCurrent(id)
	if old != nil {
		defer old.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old != nil {
		m.unindex(old)
		delete(m.bindings, id)
	}
	_, unresolved := m.unresolved[id]
	delete(m.unresolved, id)
	return old != nil || unresolved
}

// ActivateAll loads every stored link and activates it. Resolutions run
// concurrently up to the configured worker count. Links that fail to
// resolve are reported by Unresolved and do not fail the call. Each link is
// re-read under its lock, so a link changed or deleted after the listing
// is bound as stored, or not at all.
func (m *Manager) ActivateAll(ctx context.Context) error {
	links, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading links: %w", err)
	}

	m.mu.RLock()
	workers := m.workers
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var bound, failed atomic.Int64
	for i := range links {
		id := links[i].ID
		g.Go(func() error {
			if err := m.activateStored(gctx, id); err != nil {
				if errors.Is(err, ErrLinkNotFound) {
					return nil
				}
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				return nil
			}
			bound.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("activating links: %w", err)
	}

	m.getLogger().Info("links activated",
		"total", len(links),
		"bound", bound.Load(),
		"unresolved", failed.Load(),
	)
	return nil
}

func (m *Manager) activateStored(ctx context.Context, id string) error {
	unlock := m.links.lock(id)
	defer unlock()

	l, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return m.activate(ctx, l)
}

// ─── Persisted Operations ───────────────────────────────────────────────────

// CreateLink validates, stores and activates a new link. A link that is
// stored but cannot be resolved is returned with the resolution error.
func (m *Manager) CreateLink(ctx context.Context, l *Link) error {
	l.normalize()
	if l.ID == "" {
		l.ID = GenerateID()
	}
	if err := ValidateLink(l); err != nil {
		return err
	}

	unlock := m.links.lock(l.ID)
	defer unlock()
	if err := m.repo.Create(ctx, l); err != nil {
		return fmt.Errorf("creating link: %w", err)
	}
	return m.activate(ctx, l)
}

// Reconfigure stores the changed link and rebinds it with a freshly
// resolved profile. The previous profile receives no event once
// Reconfigure returns. Concurrent calls for one link are applied in turn,
// so the live binding always matches the last stored version.
func (m *Manager) Reconfigure(ctx context.Context, l *Link) error {
	l.normalize()
	if err := ValidateLink(l); err != nil {
		return err
	}

	unlock := m.links.lock(l.ID)
	defer unlock()
	if err := m.repo.Update(ctx, l); err != nil {
		return fmt.Errorf("updating link: %w", err)
	}
	return m.activate(ctx, l)
}

// DeleteLink removes a link from the store and deactivates it. An
// activation of the same link already in progress finishes first and is
// then undone.
func (m *Manager) DeleteLink(ctx context.Context, id string) error {
	unlock := m.links.lock(id)
	defer unlock()
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	m.deactivate(id)
	return nil
}

// ─── Dispatch ───────────────────────────────────────────────────────────────

// HandleChannelState delivers a state update from a state channel.
// Returns the number of profiles that received it.
func (m *Manager) HandleChannelState(channelUID string, state profile.State) int {
	return m.dispatch(m.channelBindings(channelUID), func(p profile.Profile) bool {
		sp, ok := stateProfile(p)
		if ok {
			sp.OnStateFromHandler(state)
		}
		return ok
	})
}

// HandleChannelCommand delivers a command emitted by a state channel's handler.
func (m *Manager) HandleChannelCommand(channelUID string, cmd profile.Command) int {
	return m.dispatch(m.channelBindings(channelUID), func(p profile.Profile) bool {
		sp, ok := stateProfile(p)
		if ok {
			sp.OnCommandFromHandler(cmd)
		}
		return ok
	})
}

// HandleChannelTrigger delivers a trigger event. Only trigger profiles
// receive it.
func (m *Manager) HandleChannelTrigger(channelUID, event string) int {
	return m.dispatch(m.channelBindings(channelUID), func(p profile.Profile) bool {
		tp, ok := triggerProfile(p)
		if ok {
			tp.OnTriggerFromHandler(event)
		}
		return ok
	})
}

// HandleItemCommand delivers a command sent to an item.
func (m *Manager) HandleItemCommand(itemName string, cmd profile.Command) int {
	return m.dispatch(m.itemBindings(itemName), func(p profile.Profile) bool {
		sp, ok := stateProfile(p)
		if ok {
			sp.OnCommandFromItem(cmd)
		}
		return ok
	})
}

// HandleItemState delivers an item state update.
func (m *Manager) HandleItemState(itemName string, state profile.State) int {
	return m.dispatch(m.itemBindings(itemName), func(p profile.Profile) bool {
		sp, ok := stateProfile(p)
		if ok {
			sp.OnStateUpdateFromItem(state)
		}
		return ok
	})
}

func (m *Manager) dispatch(bindings []*binding, fn func(profile.Profile) bool) int {
	delivered := 0
	for _, b := range bindings {
		if b.deliver(fn) {
			delivered++
		}
	}
	return delivered
}

func stateProfile(p profile.Profile) (profile.StateProfile, bool) {
	if p.Kind() != profile.KindState {
		return nil, false
	}
	sp, ok := p.(profile.StateProfile)
	return sp, ok
}

func triggerProfile(p profile.Profile) (profile.TriggerProfile, bool) {
	if p.Kind() != profile.KindTrigger {
		return nil, false
	}
	tp, ok := p.(profile.TriggerProfile)
	return tp, ok
}

// ─── Introspection ──────────────────────────────────────────────────────────

// Binding returns information about a bound link.
func (m *Manager) Binding(id string) (BindingInfo, bool) {
	m.mu.RLock()
	b, ok := m.bindings[id]
	m.mu.RUnlock()
	if !ok {
		return BindingInfo{}, false
	}
	return b.info(), true
}

// Bindings returns all active bindings ordered by link ID.
func (m *Manager) Bindings() []BindingInfo {
	m.mu.RLock()
	out := make([]BindingInfo, 0, len(m.bindings))
	for _, b := range m.bindings {
		out = append(out, b.info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return out
}

// Unresolved returns the links that could not be bound, ordered by link ID.
func (m *Manager) Unresolved() []UnresolvedLink {
	m.mu.RLock()
	out := make([]UnresolvedLink, 0, len(m.unresolved))
	for _, u := range m.unresolved {
		out = append(out, UnresolvedLink{Link: u.Link.DeepCopy(), Err: u.Err, Since: u.Since})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Link.ID < out[j].Link.ID })
	return out
}

// UnresolvedByID returns the failure record of one link.
func (m *Manager) UnresolvedByID(id string) (UnresolvedLink, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.unresolved[id]
	if !ok {
		return UnresolvedLink{}, false
	}
	return UnresolvedLink{Link: u.Link.DeepCopy(), Err: u.Err, Since: u.Since}, true
}

// Count returns the number of bound links.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bindings)
}

// ─── Index Maintenance ──────────────────────────────────────────────────────

// retireCurrent waits for any in-flight delivery to the current binding of
// id, marks it stale and returns it with its mutex still held, so no event
// reaches it or its successor until the caller has swapped the indexes.
// Returns nil when id is not bound. The link's lock must be held.
func (m *Manager) retireCurrent(id string) *binding {
	m.mu.RLock()
	old := m.bindings[id]
	m.mu.RUnlock()
	if old == nil {
		return nil
	}
	old.mu.Lock()
	old.stale = true
	return old
}

// install publishes b in place of the link's current binding.
func (m *Manager) install(b *binding) {
	id := b.link.ID
	old := m.retireCurrent(id)
	if old != nil {
		defer old.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old != nil {
		m.unindex(old)
	}
	m.bindings[id] = b
	addIndex(m.byChannel, b.link.ChannelUID, b)
	addIndex(m.byItem, b.link.ItemName, b)
	delete(m.unresolved, id)
}

// markUnresolved drops any binding of l and records the failure.
func (m *Manager) markUnresolved(l *Link, err error) {
	old := m.retireCurrent(l.ID)
	if old != nil {
		defer old.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old != nil {
		m.unindex(old)
		delete(m.bindings, l.ID)
	}
	m.unresolved[l.ID] = UnresolvedLink{Link: l, Err: err, Since: time.Now().UTC()}
}

// unindex must be called with m.mu held.
func (m *Manager) unindex(b *binding) {
	removeIndex(m.byChannel, b.link.ChannelUID, b.link.ID)
	removeIndex(m.byItem, b.link.ItemName, b.link.ID)
}

func addIndex(idx map[string]map[string]*binding, key string, b *binding) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]*binding)
		idx[key] = set
	}
	set[b.link.ID] = b
}

func removeIndex(idx map[string]map[string]*binding, key, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func (m *Manager) channelBindings(channelUID string) []*binding {
	return m.snapshot(m.byChannel, channelUID)
}

func (m *Manager) itemBindings(itemName string) []*binding {
	return m.snapshot(m.byItem, itemName)
}

// snapshot copies one index entry so delivery runs without m.mu held.
func (m *Manager) snapshot(idx map[string]map[string]*binding, key string) []*binding {
	m.mu.RLock()
	set := idx[key]
	out := make([]*binding, 0, len(set))
	for _, b := range set {
		out = append(out, b)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].link.ID < out[j].link.ID })
	return out
}

// ─── Emission Recording ─────────────────────────────────────────────────────

// observedCallback forwards profile emissions to the bus callback and the
// recorder.
type observedCallback struct {
	next    profile.Callback
	manager *Manager
	linkID  string
	typeUID profile.TypeUID // set before the binding is published
}

func (c *observedCallback) HandleCommand(cmd profile.Command) {
	c.next.HandleCommand(cmd)
	c.manager.record(c, DirectionChannelCommand, cmd)
}

func (c *observedCallback) SendCommand(cmd profile.Command) {
	c.next.SendCommand(cmd)
	c.manager.record(c, DirectionItemCommand, cmd)
}

func (c *observedCallback) SendUpdate(state profile.State) {
	c.next.SendUpdate(state)
	c.manager.record(c, DirectionItemState, state)
}

func (m *Manager) recordResolution(linkID string, res *profile.Resolution) {
	m.recMu.RLock()
	r := m.recorder
	m.recMu.RUnlock()
	if rr, ok := r.(ResolutionRecorder); ok {
		rr.RecordResolution(linkID, res.TypeUID, res.Source)
	}
}

func (m *Manager) record(c *observedCallback, dir Direction, v any) {
	m.recMu.RLock()
	r := m.recorder
	m.recMu.RUnlock()
	if r == nil {
		return
	}
	r.RecordEmission(Emission{
		LinkID:    c.linkID,
		Profile:   c.typeUID,
		Direction: dir,
		Value:     v,
		Timestamp: time.Now().UTC(),
	})
}
