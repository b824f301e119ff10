package events

import (
	"github.com/kelindar/event"
)

// Publisher is the publishing half of Bus.
type Publisher interface {
	Publish(ev Event)
}

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(JobStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case JobStartedEvent:
		event.Publish(b.dispatcher, e)
	case JobCompletedEvent:
		event.Publish(b.dispatcher, e)
	case JobKillRequestedEvent:
		event.Publish(b.dispatcher, e)
	case ReaperDrainedEvent:
		event.Publish(b.dispatcher, e)
	case ReaperInconsistencyEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the event it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e JobCompletedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(JobStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobKillRequestedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReaperDrainedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReaperInconsistencyEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
