package session

import (
	"context"
	"sync"
)

// Event is a signal from outside the gate.
type Event int

const (
	// EventRequirePinUnlock is raised when the backend rejects the session
	// and a silent refresh could not recover it.
	EventRequirePinUnlock Event = iota + 1
)

func (e Event) String() string {
	if e == EventRequirePinUnlock {
		return "require-pin-unlock"
	}
	return "unknown"
}

const busBuffer = 8

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// that falls behind by more than its buffer loses events.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Event)}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a channel of events published from now on. It is closed
// once ctx is done.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, busBuffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}
