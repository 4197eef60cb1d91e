package sim

import "sync"

// TickEvent asks a ticking component to update its state for one cycle.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a TickEvent.
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	return TickEvent{EventBase: *NewEventBase(time, handler)}
}

// A Ticker updates its state once per cycle. Tick returns false when nothing
// changed, which stops the ticking until somebody wakes the component up.
type Ticker interface {
	Tick() bool
}

// TickScheduler schedules tick events, at most one per cycle.
type TickScheduler struct {
	lock    sync.Mutex
	handler Handler
	Freq    Freq
	Engine  Engine

	nextTickTime VTimeInSec
}

// NewTickScheduler creates a TickScheduler.
func NewTickScheduler(handler Handler, engine Engine, freq Freq) *TickScheduler {
	return &TickScheduler{
		handler:      handler,
		Engine:       engine,
		Freq:         freq,
		nextTickTime: -1,
	}
}

// TickNow schedules a tick in the current cycle.
func (t *TickScheduler) TickNow() {
	t.schedule(t.Freq.ThisTick(t.Engine.CurrentTime()))
}

// TickLater schedules a tick in the next cycle.
func (t *TickScheduler) TickLater() {
	t.schedule(t.Freq.NextTick(t.Engine.CurrentTime()))
}

func (t *TickScheduler) schedule(time VTimeInSec) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.nextTickTime >= time {
		return
	}

	t.nextTickTime = time
	t.Engine.Schedule(MakeTickEvent(t.handler, time))
}

// TickingComponent is a component whose behavior is entirely described by a
// Tick function.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a TickingComponent.
func NewTickingComponent(
	name string,
	engine Engine,
	freq Freq,
	ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{
		ComponentBase: NewComponentBase(name),
		ticker:        ticker,
	}
	tc.TickScheduler = NewTickScheduler(tc, engine, freq)

	return tc
}

// Handle runs one cycle and keeps ticking while progress is made.
func (c *TickingComponent) Handle(_ Event) error {
	if c.ticker.Tick() {
		c.TickLater()
	}

	return nil
}
