package profile

// DefaultProfile passes values through unchanged in both directions.
type DefaultProfile struct {
	callback Callback
}

// NewDefaultProfile returns a pass-through profile bound to cb.
func NewDefaultProfile(cb Callback) *DefaultProfile {
	return &DefaultProfile{callback: cb}
}

// TypeUID implements Profile.
func (p *DefaultProfile) TypeUID() TypeUID { return DefaultUID }

// Kind implements Profile.
func (p *DefaultProfile) Kind() ChannelKind { return KindState }

// OnStateFromHandler forwards the channel state as an item state update.
func (p *DefaultProfile) OnStateFromHandler(state State) {
	p.callback.SendUpdate(state)
}

// OnCommandFromHandler forwards the channel command to the item.
func (p *DefaultProfile) OnCommandFromHandler(cmd Command) {
	p.callback.SendCommand(cmd)
}

// OnCommandFromItem forwards the item command to the channel handler.
func (p *DefaultProfile) OnCommandFromItem(cmd Command) {
	p.callback.HandleCommand(cmd)
}

// OnStateUpdateFromItem does nothing.
func (p *DefaultProfile) OnStateUpdateFromItem(State) {}

// FollowProfile mirrors channel state onto the item without making the
// item commandable through the link.
type FollowProfile struct {
	callback Callback
}

// NewFollowProfile returns a follow profile bound to cb.
func NewFollowProfile(cb Callback) *FollowProfile {
	return &FollowProfile{callback: cb}
}

// TypeUID implements Profile.
func (p *FollowProfile) TypeUID() TypeUID { return FollowUID }

// Kind implements Profile.
func (p *FollowProfile) Kind() ChannelKind { return KindState }

// OnStateFromHandler forwards the channel state as an item state update.
func (p *FollowProfile) OnStateFromHandler(state State) {
	p.callback.SendUpdate(state)
}

// OnCommandFromHandler does nothing.
func (p *FollowProfile) OnCommandFromHandler(Command) {}

// OnCommandFromItem does nothing.
func (p *FollowProfile) OnCommandFromItem(Command) {}

// OnStateUpdateFromItem does nothing.
func (p *FollowProfile) OnStateUpdateFromItem(State) {}

// RawButtonToggleSwitchProfile turns PRESSED events of a raw button into
// alternating ON/OFF commands.
//
// It remembers only the last command it emitted. Raw buttons have no state
// to read back, so the channel state is never consulted.
//
//	unknown --PRESSED--> ON
//	ON      --PRESSED--> OFF
//	OFF     --PRESSED--> ON
//
// Every other event is a no-op.
type RawButtonToggleSwitchProfile struct {
	callback Callback
	last     OnOff // "" until the first emission
}

// NewRawButtonToggleSwitchProfile returns a toggle profile bound to cb.
func NewRawButtonToggleSwitchProfile(cb Callback) *RawButtonToggleSwitchProfile {
	return &RawButtonToggleSwitchProfile{callback: cb}
}

// TypeUID implements Profile.
func (p *RawButtonToggleSwitchProfile) TypeUID() TypeUID { return RawButtonToggleSwitchUID }

// Kind implements Profile.
func (p *RawButtonToggleSwitchProfile) Kind() ChannelKind { return KindTrigger }

// OnTriggerFromHandler implements TriggerProfile.
func (p *RawButtonToggleSwitchProfile) OnTriggerFromHandler(event string) {
	if event != EventPressed {
		return
	}
	next := On
	if p.last == On {
		next = Off
	}
	p.callback.SendCommand(next)
	p.last = next
}

// LastCommand returns the last emitted command. ok is false before the
// first PRESSED event.
func (p *RawButtonToggleSwitchProfile) LastCommand() (cmd OnOff, ok bool) {
	return p.last, p.last != ""
}
