package sim

// TimeTeller can tell the current virtual time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// An Engine drives the events of a simulated device.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes events until the queue drains.
	Run() error

	// RunUntil processes all the events that fire no later than t and then
	// moves the current time to t. The device only advances when someone
	// looks at it, so hosts that poll a status register call RunUntil once
	// per poll.
	RunUntil(t VTimeInSec) error

	// Pending returns the number of events that are waiting to fire.
	Pending() int
}
