package link

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type busCall struct {
	LinkID string
	Method string
	Value  any
}

// mockBus is a CallbackFactory that records every emission.
type mockBus struct {
	mu    sync.Mutex
	calls []busCall
}

func (b *mockBus) NewCallback(l *Link) profile.Callback {
	return &mockLinkCallback{bus: b, linkID: l.ID}
}

func (b *mockBus) record(linkID, method string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, busCall{LinkID: linkID, Method: method, Value: v})
}

func (b *mockBus) getCalls() []busCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	cpy := make([]busCall, len(b.calls))
	copy(cpy, b.calls)
	return cpy
}

func (b *mockBus) reset() {
	b.mu.Lock()
	b.calls = nil
	b.mu.Unlock()
}

type mockLinkCallback struct {
	bus    *mockBus
	linkID string
}

func (c *mockLinkCallback) HandleCommand(cmd profile.Command) {
	c.bus.record(c.linkID, "HandleCommand", cmd)
}

func (c *mockLinkCallback) SendCommand(cmd profile.Command) {
	c.bus.record(c.linkID, "SendCommand", cmd)
}

func (c *mockLinkCallback) SendUpdate(state profile.State) {
	c.bus.record(c.linkID, "SendUpdate", state)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func newTestManager(t *testing.T) (*Manager, *SQLiteRepository, *mockBus) {
	t.Helper()
	repo := NewSQLiteRepository(setupTestDB(t))
	bus := &mockBus{}
	return NewManager(repo, profile.NewRegistry(), bus), repo, bus
}

func activate(t *testing.T, m *Manager, l *Link) {
	t.Helper()
	if err := m.Activate(context.Background(), l); err != nil {
		t.Fatalf("Activate(%s): %v", l.ID, err)
	}
}

// ─── Activation ─────────────────────────────────────────────────────────────

func TestManager_RawButtonTogglesSwitch(t *testing.T) {
	m, _, bus := newTestManager(t)
	activate(t, m, buttonLink("btn", "hue:dimmer:button1", "Hallway_Light"))

	info, ok := m.Binding("btn")
	if !ok {
		t.Fatal("Binding(btn) not found")
	}
	if info.TypeUID != profile.RawButtonToggleSwitchUID || info.Source != profile.SourceFallback {
		t.Errorf("binding = %+v", info)
	}

	for _, ev := range []string{profile.EventPressed, profile.EventReleased, profile.EventPressed} {
		m.HandleChannelTrigger("hue:dimmer:button1", ev)
	}

	calls := bus.getCalls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2: %+v", len(calls), calls)
	}
	if calls[0].Value != profile.On || calls[1].Value != profile.Off {
		t.Errorf("emitted %v, %v; want ON, OFF", calls[0].Value, calls[1].Value)
	}
	for _, c := range calls {
		if c.Method != "SendCommand" || c.LinkID != "btn" {
			t.Errorf("call = %+v, want SendCommand from btn", c)
		}
	}

	info, _ = m.Binding("btn")
	if info.Delivered != 3 {
		t.Errorf("Delivered = %d, want 3 (every trigger reaches the profile)", info.Delivered)
	}
}

func TestManager_StateLinkPassThrough(t *testing.T) {
	m, _, bus := newTestManager(t)
	activate(t, m, stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer"))

	if n := m.HandleChannelState("knx:dimmer:kitchen", 42); n != 1 {
		t.Errorf("HandleChannelState delivered %d, want 1", n)
	}
	if n := m.HandleChannelCommand("knx:dimmer:kitchen", "INCREASE"); n != 1 {
		t.Errorf("HandleChannelCommand delivered %d, want 1", n)
	}
	if n := m.HandleItemCommand("Kitchen_Dimmer", 80); n != 1 {
		t.Errorf("HandleItemCommand delivered %d, want 1", n)
	}
	if n := m.HandleItemState("Kitchen_Dimmer", 80); n != 1 {
		t.Errorf("HandleItemState delivered %d, want 1", n)
	}

	want := []busCall{
		{LinkID: "dim", Method: "SendUpdate", Value: 42},
		{LinkID: "dim", Method: "SendCommand", Value: "INCREASE"},
		{LinkID: "dim", Method: "HandleCommand", Value: 80},
	}
	calls := bus.getCalls()
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d: %+v", len(calls), len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestManager_KindsNeverCross(t *testing.T) {
	m, _, bus := newTestManager(t)
	activate(t, m, stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer"))
	activate(t, m, buttonLink("btn", "hue:dimmer:button1", "Hallway_Light"))

	if n := m.HandleChannelTrigger("knx:dimmer:kitchen", profile.EventPressed); n != 0 {
		t.Errorf("trigger on state channel delivered %d, want 0", n)
	}
	if n := m.HandleChannelState("hue:dimmer:button1", "ON"); n != 0 {
		t.Errorf("state on trigger channel delivered %d, want 0", n)
	}
	if n := m.HandleItemCommand("Hallway_Light", "ON"); n != 0 {
		t.Errorf("item command to trigger link delivered %d, want 0", n)
	}
	if calls := bus.getCalls(); len(calls) != 0 {
		t.Errorf("unexpected calls: %+v", calls)
	}
}

func TestManager_UnknownTargets(t *testing.T) {
	m, _, _ := newTestManager(t)
	if n := m.HandleChannelTrigger("nope", profile.EventPressed); n != 0 {
		t.Errorf("delivered %d, want 0", n)
	}
	if n := m.HandleItemCommand("Nope", "ON"); n != 0 {
		t.Errorf("delivered %d, want 0", n)
	}
}

func TestManager_OneChannelManyItems(t *testing.T) {
	m, _, bus := newTestManager(t)
	activate(t, m, buttonLink("a", "hue:dimmer:button1", "Hallway_Light"))
	activate(t, m, buttonLink("b", "hue:dimmer:button1", "Stairs_Light"))

	if n := m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed); n != 2 {
		t.Errorf("delivered %d, want 2", n)
	}

	// Each link has its own profile instance and so its own toggle state.
	calls := bus.getCalls()
	if len(calls) != 2 || calls[0].Value != profile.On || calls[1].Value != profile.On {
		t.Errorf("calls = %+v, want ON from both links", calls)
	}
	if calls[0].LinkID != "a" || calls[1].LinkID != "b" {
		t.Errorf("delivery order = %s, %s; want a, b", calls[0].LinkID, calls[1].LinkID)
	}
}

// ─── Resolution Failures ────────────────────────────────────────────────────

func TestManager_UnresolvedLinkIsInert(t *testing.T) {
	m, _, bus := newTestManager(t)

	// No pairing exists for rawbutton + Dimmer.
	l := buttonLink("btn", "hue:dimmer:button1", "Kitchen_Dimmer")
	l.ItemType = "Dimmer"

	err := m.Activate(context.Background(), l)
	if !errors.Is(err, profile.ErrNoSuggestion) {
		t.Fatalf("Activate() error = %v, want ErrNoSuggestion", err)
	}

	if _, ok := m.Binding("btn"); ok {
		t.Error("unresolved link should have no binding")
	}
	if n := m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed); n != 0 {
		t.Errorf("delivered %d to unresolved link", n)
	}
	if len(bus.getCalls()) != 0 {
		t.Error("unresolved link emitted")
	}

	unresolved := m.Unresolved()
	if len(unresolved) != 1 || unresolved[0].Link.ID != "btn" {
		t.Fatalf("Unresolved() = %+v", unresolved)
	}
	if !errors.Is(unresolved[0].Err, profile.ErrNoSuggestion) {
		t.Errorf("Unresolved()[0].Err = %v", unresolved[0].Err)
	}

	// Correcting the item type resolves the link.
	l.ItemType = profile.ItemTypeSwitch
	activate(t, m, l)
	if len(m.Unresolved()) != 0 {
		t.Error("corrected link still listed as unresolved")
	}
	if _, ok := m.UnresolvedByID("btn"); ok {
		t.Error("UnresolvedByID(btn) still present")
	}
}

func TestManager_ActivateErrors(t *testing.T) {
	tests := []struct {
		name    string
		link    *Link
		wantErr error
	}{
		{
			name: "unknown configured profile",
			link: func() *Link {
				l := stateLink("x", "knx:dimmer:kitchen", "Kitchen_Dimmer")
				l.ProfileTypeUID = "custom:missing"
				return l
			}(),
			wantErr: profile.ErrUnresolvedProfile,
		},
		{
			name: "state profile on trigger channel",
			link: func() *Link {
				l := buttonLink("x", "hue:dimmer:button1", "Hallway_Light")
				l.ProfileTypeUID = profile.FollowUID
				return l
			}(),
			wantErr: profile.ErrKindMismatch,
		},
		{
			name: "unsupported kind",
			link: func() *Link {
				l := stateLink("x", "knx:dimmer:kitchen", "Kitchen_Dimmer")
				l.ChannelKind = "EVENT"
				return l
			}(),
			wantErr: profile.ErrUnsupportedChannelKind,
		},
		{
			name:    "missing id",
			link:    stateLink("", "knx:dimmer:kitchen", "Kitchen_Dimmer"),
			wantErr: ErrInvalidLink,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestManager(t)
			err := m.Activate(context.Background(), tt.link)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Activate() error = %v, want %v", err, tt.wantErr)
			}
			if m.Count() != 0 {
				t.Errorf("Count() = %d, want 0", m.Count())
			}
		})
	}
}

// ─── Reconfiguration ────────────────────────────────────────────────────────

func TestManager_ReconfigureSwapsProfile(t *testing.T) {
	m, repo, bus := newTestManager(t)
	ctx := context.Background()

	l := stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer")
	if err := m.CreateLink(ctx, l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	m.HandleItemCommand("Kitchen_Dimmer", 10)
	if calls := bus.getCalls(); len(calls) != 1 || calls[0].Method != "HandleCommand" {
		t.Fatalf("default profile calls = %+v", calls)
	}
	bus.reset()

	l.ProfileTypeUID = profile.FollowUID
	if err := m.Reconfigure(ctx, l); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}

	// Follow ignores item commands; the old default profile must not see them.
	if n := m.HandleItemCommand("Kitchen_Dimmer", 20); n != 1 {
		t.Errorf("delivered %d, want 1", n)
	}
	if calls := bus.getCalls(); len(calls) != 0 {
		t.Errorf("stale profile still receiving events: %+v", calls)
	}

	info, _ := m.Binding("dim")
	if info.TypeUID != profile.FollowUID || info.Source != profile.SourceConfigured {
		t.Errorf("binding = %+v", info)
	}

	stored, err := repo.GetByID(ctx, "dim")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.ProfileTypeUID != profile.FollowUID {
		t.Errorf("stored profile = %q", stored.ProfileTypeUID)
	}
}

func TestManager_ReconfigureCreatesFreshInstance(t *testing.T) {
	m, _, bus := newTestManager(t)
	l := buttonLink("btn", "hue:dimmer:button1", "Hallway_Light")
	activate(t, m, l)

	m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed)
	activate(t, m, l)
	m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed)

	calls := bus.getCalls()
	if len(calls) != 2 || calls[0].Value != profile.On || calls[1].Value != profile.On {
		t.Errorf("calls = %+v, want ON then ON from a fresh instance", calls)
	}
}

func TestManager_ReconfigureMovesChannel(t *testing.T) {
	m, _, _ := newTestManager(t)
	l := buttonLink("btn", "hue:dimmer:button1", "Hallway_Light")
	activate(t, m, l)

	l.ChannelUID = "hue:dimmer:button2"
	activate(t, m, l)

	if n := m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed); n != 0 {
		t.Errorf("old channel delivered %d, want 0", n)
	}
	if n := m.HandleChannelTrigger("hue:dimmer:button2", profile.EventPressed); n != 1 {
		t.Errorf("new channel delivered %d, want 1", n)
	}
}

func TestManager_ReconfigureToUnresolvable(t *testing.T) {
	m, _, _ := newTestManager(t)
	l := stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer")
	activate(t, m, l)

	l.ProfileTypeUID = "custom:missing"
	if err := m.Activate(context.Background(), l); !errors.Is(err, profile.ErrUnresolvedProfile) {
		t.Fatalf("Activate() error = %v, want ErrUnresolvedProfile", err)
	}
	if n := m.HandleChannelState("knx:dimmer:kitchen", 1); n != 0 {
		t.Errorf("delivered %d after failed rebind, want 0", n)
	}
	if _, ok := m.UnresolvedByID("dim"); !ok {
		t.Error("link not recorded as unresolved")
	}
}

func TestManager_Deactivate(t *testing.T) {
	m, _, _ := newTestManager(t)
	activate(t, m, stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer"))

	if !m.Deactivate("dim") {
		t.Error("Deactivate(dim) = false")
	}
	if m.Deactivate("dim") {
		t.Error("second Deactivate(dim) = true")
	}
	if n := m.HandleChannelState("knx:dimmer:kitchen", 1); n != 0 {
		t.Errorf("delivered %d after deactivate", n)
	}
}

func TestManager_DeleteLink(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	l := &Link{ChannelUID: "hue:dimmer:button1", ChannelKind: "trigger", ChannelTypeUID: profile.ChannelTypeRawButton, ItemName: "Hallway_Light", ItemType: "switch"}
	if err := m.CreateLink(ctx, l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if l.ID == "" {
		t.Fatal("CreateLink did not assign an ID")
	}
	if l.ChannelKind != profile.KindTrigger {
		t.Errorf("kind not normalised: %q", l.ChannelKind)
	}

	if err := m.DeleteLink(ctx, l.ID); err != nil {
		t.Fatalf("DeleteLink: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}
	if _, err := repo.GetByID(ctx, l.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("GetByID after delete: %v", err)
	}
	if err := m.DeleteLink(ctx, l.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("second DeleteLink error = %v, want ErrLinkNotFound", err)
	}
}

func TestManager_CreateLinkInvalid(t *testing.T) {
	m, _, _ := newTestManager(t)
	l := stateLink("", "", "Kitchen_Dimmer")
	if err := m.CreateLink(context.Background(), l); !errors.Is(err, ErrInvalidLink) {
		t.Errorf("CreateLink() error = %v, want ErrInvalidLink", err)
	}
}

// ─── Bulk Activation ────────────────────────────────────────────────────────

func TestManager_ActivateAll(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	unresolvable := buttonLink("c", "hue:dimmer:button3", "Kitchen_Dimmer")
	unresolvable.ItemType = "Dimmer"

	for _, l := range []*Link{
		buttonLink("a", "hue:dimmer:button1", "Hallway_Light"),
		stateLink("b", "knx:dimmer:kitchen", "Kitchen_Dimmer"),
		unresolvable,
	} {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create(%s): %v", l.ID, err)
		}
	}

	m.SetActivationWorkers(2)
	if err := m.ActivateAll(ctx); err != nil {
		t.Fatalf("ActivateAll: %v", err)
	}

	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
	bindings := m.Bindings()
	if len(bindings) != 2 || bindings[0].LinkID != "a" || bindings[1].LinkID != "b" {
		t.Errorf("Bindings() = %+v", bindings)
	}
	if u := m.Unresolved(); len(u) != 1 || u[0].Link.ID != "c" {
		t.Errorf("Unresolved() = %+v", u)
	}
}

func TestManager_ActivateAllCancelled(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	if err := repo.Create(ctx, buttonLink("a", "hue:dimmer:button1", "Hallway_Light")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	cancel()

	if err := m.ActivateAll(ctx); err == nil {
		t.Error("ActivateAll() with cancelled context returned nil")
	}
}

// ─── Concurrency ────────────────────────────────────────────────────────────

func TestManager_SerialisedPerLink(t *testing.T) {
	m, _, bus := newTestManager(t)
	activate(t, m, buttonLink("btn", "hue:dimmer:button1", "Hallway_Light"))
	activate(t, m, stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer"))

	const presses = 200
	var wg sync.WaitGroup
	for i := 0; i < presses; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed)
		}()
		go func(v int) {
			defer wg.Done()
			m.HandleChannelState("knx:dimmer:kitchen", v)
		}(i)
	}
	wg.Wait()

	// Serialised delivery means the toggle strictly alternates.
	var toggles []any
	for _, c := range bus.getCalls() {
		if c.LinkID == "btn" {
			toggles = append(toggles, c.Value)
		}
	}
	if len(toggles) != presses {
		t.Fatalf("got %d toggles, want %d", len(toggles), presses)
	}
	for i, v := range toggles {
		want := profile.On
		if i%2 == 1 {
			want = profile.Off
		}
		if v != want {
			t.Fatalf("toggle %d = %v, want %v", i, v, want)
		}
	}
}

func TestManager_ConcurrentReconfigure(t *testing.T) {
	m, _, _ := newTestManager(t)
	l := buttonLink("btn", "hue:dimmer:button1", "Hallway_Light")
	activate(t, m, l)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed)
		}()
		go func() {
			defer wg.Done()
			_ = m.Activate(context.Background(), l) //nolint:errcheck // resolves deterministically
		}()
	}
	wg.Wait()

	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

// gatedBus is a mockBus that can park one NewCallback call or one emitted
// command until release is closed.
type gatedBus struct {
	mockBus
	blockCreate atomic.Bool
	blockEmit   atomic.Bool
	entered     chan struct{}
	release     chan struct{}
}

func newGatedBus() *gatedBus {
	return &gatedBus{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedBus) park() {
	close(g.entered)
	<-g.release
}

func (g *gatedBus) NewCallback(l *Link) profile.Callback {
	if g.blockCreate.CompareAndSwap(true, false) {
		g.park()
	}
	return &gatedCallback{mockLinkCallback: mockLinkCallback{bus: &g.mockBus, linkID: l.ID}, gate: g}
}

type gatedCallback struct {
	mockLinkCallback
	gate *gatedBus
}

func (c *gatedCallback) SendCommand(cmd profile.Command) {
	if c.gate.blockEmit.CompareAndSwap(true, false) {
		c.gate.park()
	}
	c.mockLinkCallback.SendCommand(cmd)
}

func newGatedManager(t *testing.T) (*Manager, *SQLiteRepository, *gatedBus) {
	t.Helper()
	repo := NewSQLiteRepository(setupTestDB(t))
	bus := newGatedBus()
	return NewManager(repo, profile.NewRegistry(), bus), repo, bus
}

func TestManager_DeleteDuringActivate(t *testing.T) {
	m, _, bus := newGatedManager(t)
	ctx := context.Background()

	l := buttonLink("btn", "hue:dimmer:button1", "Hallway_Light")
	if err := m.CreateLink(ctx, l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	bus.blockCreate.Store(true)
	activated := make(chan error, 1)
	go func() { activated <- m.Activate(ctx, l) }()
	<-bus.entered

	deleted := make(chan error, 1)
	go func() { deleted <- m.DeleteLink(ctx, "btn") }()

	select {
	case err := <-deleted:
		t.Fatalf("DeleteLink returned %v while an activation was in progress", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(bus.release)
	if err := <-activated; err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := <-deleted; err != nil {
		t.Fatalf("DeleteLink: %v", err)
	}

	if m.Count() != 0 {
		t.Errorf("Count() = %d after delete, want 0", m.Count())
	}
	if n := m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed); n != 0 {
		t.Errorf("trigger delivered to %d profiles after delete, want 0", n)
	}
	if calls := bus.getCalls(); len(calls) != 0 {
		t.Errorf("deleted link emitted %+v", calls)
	}
}

func TestManager_OverlappingReconfigureKeepsStoreOrder(t *testing.T) {
	m, repo, bus := newGatedManager(t)
	ctx := context.Background()

	l := stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer")
	if err := m.CreateLink(ctx, l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	follow := l.DeepCopy()
	follow.ProfileTypeUID = profile.FollowUID
	def := l.DeepCopy()
	def.ProfileTypeUID = profile.DefaultUID

	bus.blockCreate.Store(true)
	first := make(chan error, 1)
	go func() { first <- m.Reconfigure(ctx, follow) }()
	<-bus.entered

	second := make(chan error, 1)
	go func() { second <- m.Reconfigure(ctx, def) }()
	time.Sleep(20 * time.Millisecond)

	close(bus.release)
	if err := <-first; err != nil {
		t.Fatalf("Reconfigure(follow): %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("Reconfigure(default): %v", err)
	}

	stored, err := repo.GetByID(ctx, "dim")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	info, ok := m.Binding("dim")
	if !ok {
		t.Fatal("Binding(dim) not found")
	}
	if stored.ProfileTypeUID != profile.DefaultUID || info.TypeUID != profile.DefaultUID {
		t.Errorf("stored profile = %q, bound profile = %q; want both %q",
			stored.ProfileTypeUID, info.TypeUID, profile.DefaultUID)
	}
}

func TestManager_RebindWaitsForInFlightDelivery(t *testing.T) {
	m, _, bus := newGatedManager(t)
	l := buttonLink("btn", "hue:dimmer:button1", "Hallway_Light")
	activate(t, m, l)

	bus.blockEmit.Store(true)
	delivered := make(chan int, 1)
	go func() { delivered <- m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed) }()
	<-bus.entered

	rebound := make(chan error, 1)
	go func() { rebound <- m.Activate(context.Background(), l) }()

	select {
	case err := <-rebound:
		t.Fatalf("Activate returned %v while the old profile was still handling an event", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(bus.release)
	if n := <-delivered; n != 1 {
		t.Errorf("in-flight trigger delivered to %d profiles, want 1", n)
	}
	if err := <-rebound; err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// The fresh instance starts from OFF, so the next press emits ON again.
	m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed)
	calls := bus.getCalls()
	if len(calls) != 2 || calls[0].Value != profile.On || calls[1].Value != profile.On {
		t.Errorf("calls = %+v, want ON from the old instance then ON from the new one", calls)
	}
}

// ─── Recording ──────────────────────────────────────────────────────────────

func TestManager_Recorder(t *testing.T) {
	m, _, _ := newTestManager(t)

	var mu sync.Mutex
	var got []Emission
	m.SetRecorder(RecorderFunc(func(e Emission) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	}))

	activate(t, m, buttonLink("btn", "hue:dimmer:button1", "Hallway_Light"))
	activate(t, m, stateLink("dim", "knx:dimmer:kitchen", "Kitchen_Dimmer"))

	m.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed)
	m.HandleChannelState("knx:dimmer:kitchen", 55)
	m.HandleItemCommand("Kitchen_Dimmer", 60)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("recorded %d emissions, want 3", len(got))
	}

	want := []struct {
		link string
		uid  profile.TypeUID
		dir  Direction
		val  any
	}{
		{"btn", profile.RawButtonToggleSwitchUID, DirectionItemCommand, profile.On},
		{"dim", profile.DefaultUID, DirectionItemState, 55},
		{"dim", profile.DefaultUID, DirectionChannelCommand, 60},
	}
	for i, w := range want {
		e := got[i]
		if e.LinkID != w.link || e.Profile != w.uid || e.Direction != w.dir || e.Value != w.val {
			t.Errorf("emission %d = %+v, want %+v", i, e, w)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("emission %d has no timestamp", i)
		}
	}

	m.SetRecorder(nil)
	m.HandleChannelState("knx:dimmer:kitchen", 1)
	if len(got) != 3 {
		t.Error("recorder still called after SetRecorder(nil)")
	}
}

type resolutionLog struct {
	RecorderFunc
	mu   sync.Mutex
	seen map[string]profile.Source
}

func (r *resolutionLog) RecordResolution(linkID string, _ profile.TypeUID, source profile.Source) {
	r.mu.Lock()
	r.seen[linkID] = source
	r.mu.Unlock()
}

func TestManager_ResolutionRecorder(t *testing.T) {
	m, _, _ := newTestManager(t)
	rec := &resolutionLog{RecorderFunc: func(Emission) {}, seen: make(map[string]profile.Source)}
	m.SetRecorder(rec)

	configured := stateLink("cfg", "knx:dimmer:kitchen", "Kitchen_Dimmer")
	configured.ProfileTypeUID = profile.FollowUID

	activate(t, m, buttonLink("btn", "hue:dimmer:button1", "Hallway_Light"))
	activate(t, m, configured)

	bad := stateLink("bad", "knx:x", "Bad_Item")
	bad.ProfileTypeUID = "vendor:missing"
	_ = m.Activate(context.Background(), bad) //nolint:errcheck // expected to fail

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.seen["btn"] != profile.SourceFallback || rec.seen["cfg"] != profile.SourceConfigured {
		t.Errorf("resolutions = %v", rec.seen)
	}
	if _, ok := rec.seen["bad"]; ok {
		t.Error("failed activation was recorded as a resolution")
	}
}

// typedCallback records the profile type it was labelled with.
type typedCallback struct {
	mockLinkCallback
	uid profile.TypeUID
}

func (c *typedCallback) SetProfileType(uid profile.TypeUID) { c.uid = uid }

type typedBus struct {
	mockBus
	mu        sync.Mutex
	callbacks []*typedCallback
}

func (b *typedBus) NewCallback(l *Link) profile.Callback {
	cb := &typedCallback{mockLinkCallback: mockLinkCallback{bus: &b.mockBus, linkID: l.ID}}
	b.mu.Lock()
	b.callbacks = append(b.callbacks, cb)
	b.mu.Unlock()
	return cb
}

func TestManager_ProfileTypeSetter(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	bus := &typedBus{}
	m := NewManager(repo, profile.NewRegistry(), bus)

	activate(t, m, buttonLink("btn", "hue:dimmer:button1", "Hallway_Light"))

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.callbacks) != 1 {
		t.Fatalf("created %d callbacks, want 1", len(bus.callbacks))
	}
	if bus.callbacks[0].uid != profile.RawButtonToggleSwitchUID {
		t.Errorf("SetProfileType(%q), want %q", bus.callbacks[0].uid, profile.RawButtonToggleSwitchUID)
	}
}
