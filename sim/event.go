package sim

// VTimeInSec is a point on the virtual time axis of a simulated device, in
// seconds.
type VTimeInSec float64

// An Event is something that a Handler has to react to at a given virtual
// time.
type Event interface {
	// Time returns the virtual time at which the event fires.
	Time() VTimeInSec

	// Handler returns who processes the event.
	Handler() Handler

	// IsSecondary tells if the event runs after all the primary events that
	// fire at the same time.
	IsSecondary() bool
}

// EventBase carries the fields shared by all the events.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a primary EventBase.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	return &EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// NewSecondaryEventBase creates an EventBase that fires after all the primary
// events of the same time.
func NewSecondaryEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := NewEventBase(t, handler)
	e.secondary = true

	return e
}

// Time returns the time that the event fires.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler of the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler owns events. A component may only schedule events for itself.
type Handler interface {
	Handle(e Event) error
}
