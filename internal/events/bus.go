package events

import (
	"github.com/kelindar/event"
)

// Bus wraps the kelindar/event dispatcher for event broadcasting.
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
// Usage: bus.Publish(ChannelStateChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Type switch routes to the generic Publish with the concrete type.
	switch e := ev.(type) {
	case ChannelAddedEvent:
		event.Publish(b.dispatcher, e)
	case ChannelRemovedEvent:
		event.Publish(b.dispatcher, e)
	case ChannelStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ChannelLogEvent:
		event.Publish(b.dispatcher, e)
	case ChannelExitedEvent:
		event.Publish(b.dispatcher, e)
	case MediaServerStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e ChannelLogEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ChannelAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelLogEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelExitedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MediaServerStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler type, nothing will be delivered.
		return func() {}
	}
}
