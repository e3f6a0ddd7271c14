package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// for consumers that want a select loop (the CLI event printer).
// Events are dropped when ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeAll forwards every process event type to ch.
// The returned function removes all subscriptions.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[ProcessStartedEvent](bus, ch),
		SubscribeToChannel[ProcessExitedEvent](bus, ch),
		SubscribeToChannel[ProcessKilledEvent](bus, ch),
		SubscribeToChannel[SpawnFailedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
