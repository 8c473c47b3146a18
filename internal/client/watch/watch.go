// Package watch provides the small publish/subscribe primitives behind the
// reactive reads of the client core.
//
// Subscribers never block publishers: every subscription holds a single
// pending slot, and a newer publication replaces an undelivered one. A
// subscriber therefore always observes the latest value, though it may skip
// intermediate ones.
package watch

import (
	"context"
	"sync"
)

// Value holds the latest published value of T.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	version uint64
	subs    map[uint64]chan T
	nextID  uint64
}

// NewValue returns a Value starting at initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subs: make(map[uint64]chan T)}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Version counts publications since creation.
func (v *Value[T]) Version() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version
}

// Set publishes val to every subscriber.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = val
	v.version++
	for _, ch := range v.subs {
		offer(ch, val)
	}
}

// Subscribe returns a channel that first yields the current value and then
// every later one. The channel is closed when ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = ch
	ch <- v.current
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, id)
		close(ch)
		v.mu.Unlock()
	}()
	return ch
}

// offer places val in ch, replacing a value nobody has read yet.
func offer[T any](ch chan T, val T) {
	for {
		select {
		case ch <- val:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Notifier signals that some underlying data changed without carrying it.
type Notifier struct {
	v *Value[struct{}]
}

// NewNotifier returns a ready Notifier.
func NewNotifier() *Notifier {
	return &Notifier{v: NewValue(struct{}{})}
}

// Notify wakes every subscriber.
func (n *Notifier) Notify() {
	n.v.Set(struct{}{})
}

// Subscribe yields once immediately and once after each coalesced batch of
// Notify calls.
func (n *Notifier) Subscribe(ctx context.Context) <-chan struct{} {
	return n.v.Subscribe(ctx)
}

// Project re-runs load on every change signalled by n and streams the
// results. Load errors are passed to onErr, when set, and skipped.
func Project[T any](ctx context.Context, n *Notifier, load func(context.Context) (T, error), onErr func(error)) <-chan T {
	out := make(chan T, 1)
	ticks := n.Subscribe(ctx)

	go func() {
		defer close(out)
		for range ticks {
			val, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if onErr != nil {
					onErr(err)
				}
				continue
			}
			offer(out, val)
		}
	}()
	return out
}
