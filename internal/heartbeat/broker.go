package heartbeat

import "sync"

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped for a subscriber that falls this far behind.
const subscriberBufferSize = 64

// Broker fans engine events out to subscribers. It is safe for concurrent
// use and outlives individual engine runs, so a subscriber holding a stream
// open sees the events of every run started while it is connected.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBroker creates an empty event broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel receiving published events and an unsubscribe
// function. The channel is closed on unsubscribe.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBufferSize)
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Publish sends ev to all subscribers. Events are dropped for subscribers
// whose buffers are full to avoid blocking the publisher.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop for slow subscribers.
		}
	}
}
