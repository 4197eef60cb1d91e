package sim

import (
	"log"
	"reflect"
)

// EventLogger is a hook that prints every event fired by an engine.
type EventLogger struct {
	*log.Logger
}

// NewEventLogger creates an EventLogger that writes into logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{Logger: logger}
}

// Func prints the event before it fires.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	if named, ok := evt.Handler().(Named); ok {
		h.Printf("%.10f, %s -> %s", evt.Time(), reflect.TypeOf(evt), named.Name())
		return
	}

	h.Printf("%.10f, %s", evt.Time(), reflect.TypeOf(evt))
}
