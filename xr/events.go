package xr

import "time"

// Event is implemented by all runtime events. The set is closed; use a type
// switch to dispatch.
type Event interface {
	event()
}

// EventsLost reports that the runtime event queue overflowed.
type EventsLost struct {
	Count int
}

// InstanceLossPending reports that the runtime is about to go away.
type InstanceLossPending struct {
	LossTime time.Time
}

type InteractionProfileChanged struct {
	Session Handle
}

type ReferenceSpaceChangePending struct {
	Session    Handle
	ChangeTime time.Time
}

type SessionStateChanged struct {
	Session Handle
	State   SessionState
	Time    time.Time
}

// Ignored wraps event kinds this client does not handle.
type Ignored struct {
	Kind string
}

func (EventsLost) event()                  {}
func (InstanceLossPending) event()         {}
func (InteractionProfileChanged) event()   {}
func (ReferenceSpaceChangePending) event() {}
func (SessionStateChanged) event()         {}
func (Ignored) event()                     {}
