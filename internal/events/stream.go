package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T from bus into ch.
// Events are dropped while ch is full so a slow reader never stalls publishers.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
