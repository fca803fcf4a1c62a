package sim

import (
	"log"
	"reflect"
)

// EventLogger is an hook that prints the event information
type EventLogger struct {
	logger *log.Logger
}

// NewEventLogger returns a new LogEventHook which will write in to the logger
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.logger = logger

	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	named, ok := evt.Handler().(Named)
	if ok {
		h.logger.Printf("%d, %s -> %s",
			evt.Time(), reflect.TypeOf(evt), named.Name())
		return
	}

	h.logger.Printf("%d, %s", evt.Time(), reflect.TypeOf(evt))
}

// A Named object is an object that has a name.
type Named interface {
	Name() string
}
