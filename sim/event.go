package sim

// VTimeInCycle defines the time in the simulated space in the unit of cycles
// of the global clock.
type VTimeInCycle uint64

// An Event is something going to happen in the future.
type Event interface {
	// Return the time that the event should happen
	Time() VTimeInCycle

	// Returns the handler that can should handle the event
	Handler() Handler
}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	time    VTimeInCycle
	handler Handler
}

// NewEventBase creates a new EventBase
func NewEventBase(t VTimeInCycle, handler Handler) *EventBase {
	e := new(EventBase)
	e.time = t
	e.handler = handler

	return e
}

// Time return the time that the event is going to happen
func (e EventBase) Time() VTimeInCycle {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// A Handler defines a domain for the events.
//
// One event is always constraint to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}

// CyclesLater returns the time that is n cycles after the current time of the
// time teller.
func CyclesLater(t TimeTeller, n int) VTimeInCycle {
	if n < 0 {
		panic("cannot schedule into the past")
	}

	return t.CurrentTime() + VTimeInCycle(n)
}
