package sim

import (
	"log"
	"reflect"
	"sync"
)

// A SerialEngine fires events one after another on the calling goroutine.
type SerialEngine struct {
	HookableBase

	timeLock       sync.RWMutex
	time           VTimeInSec
	queue          EventQueue
	secondaryQueue EventQueue

	runLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine at time 0.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		queue:          NewEventQueue(),
		secondaryQueue: NewEventQueue(),
	}
}

// Schedule registers an event to fire in the future.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.readNow() {
		log.Panicf("scheduling %s at %.10f, earlier than now %.10f",
			reflect.TypeOf(evt), evt.Time(), e.readNow())
	}

	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)
		return
	}

	e.queue.Push(evt)
}

// CurrentTime returns the time of the event being processed, or the time
// that the last RunUntil call stopped at.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// Pending returns the number of queued events.
func (e *SerialEngine) Pending() int {
	return e.queue.Len() + e.secondaryQueue.Len()
}

// Run fires events until there are none left.
func (e *SerialEngine) Run() error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	for e.Pending() > 0 {
		if err := e.fire(e.nextEvent()); err != nil {
			return err
		}
	}

	return nil
}

// RunUntil fires every event scheduled at or before t, then sets the current
// time to t.
func (e *SerialEngine) RunUntil(t VTimeInSec) error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	for e.Pending() > 0 && e.peekNext().Time() <= t {
		if err := e.fire(e.nextEvent()); err != nil {
			return err
		}
	}

	if t > e.readNow() {
		e.writeNow(t)
	}

	return nil
}

func (e *SerialEngine) fire(evt Event) error {
	now := e.readNow()
	if evt.Time() < now {
		log.Panicf("cannot fire %s @ %.10f in the past, now %.10f",
			reflect.TypeOf(evt), evt.Time(), now)
	}

	e.writeNow(evt.Time())

	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	err := evt.Handler().Handle(evt)

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return err
}

func (e *SerialEngine) peekNext() Event {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Peek()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Peek()
	}

	primary := e.queue.Peek()
	secondary := e.secondaryQueue.Peek()

	if primary.Time() <= secondary.Time() {
		return primary
	}

	return secondary
}

func (e *SerialEngine) nextEvent() Event {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Pop()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Pop()
	}

	if e.queue.Peek().Time() <= e.secondaryQueue.Peek().Time() {
		return e.queue.Pop()
	}

	return e.secondaryQueue.Pop()
}

func (e *SerialEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.time
}

func (e *SerialEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}
