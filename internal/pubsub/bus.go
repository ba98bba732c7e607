// Package pubsub implements the fan-out bus used by the store and the
// connection machinery to notify UI observers.
package pubsub

import "sync"

// Bus delivers snapshots of type T to any number of observers.
//
// Every observer receives the current snapshot immediately on registration
// and every published snapshot afterwards, in registration order. A publish
// that happens while a dispatch pass is running (an observer mutating state
// from its callback) is queued and drained after the current pass, so no
// observer is ever re-entered recursively.
type Bus[T any] struct {
	mu          sync.Mutex
	nextID      int
	order       []int
	handlers    map[int]func(T)
	last        T
	dispatching bool
	queue       []T
	closed      bool
}

// NewBus returns a Bus whose current snapshot starts at initial.
func NewBus[T any](initial T) *Bus[T] {
	return &Bus[T]{
		handlers: make(map[int]func(T)),
		last:     initial,
	}
}

// Observe registers fn and immediately invokes it with the current snapshot.
// The returned cancel func unregisters fn; calling it more than once is safe.
func (b *Bus[T]) Observe(fn func(T)) (cancel func()) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.order = append(b.order, id)
	last := b.last
	b.mu.Unlock()

	fn(last)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.handlers[id]; !ok {
			return
		}
		delete(b.handlers, id)
		for i, oid := range b.order {
			if oid == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish records v as the current snapshot and notifies observers.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.last = v
	if b.dispatching {
		b.queue = append(b.queue, v)
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	b.drain(v)
}

func (b *Bus[T]) drain(v T) {
	for {
		b.mu.Lock()
		ids := append([]int(nil), b.order...)
		handlers := make(map[int]func(T), len(ids))
		for _, id := range ids {
			handlers[id] = b.handlers[id]
		}
		b.mu.Unlock()

		for _, id := range ids {
			if h := handlers[id]; h != nil {
				h(v)
			}
		}

		b.mu.Lock()
		if b.closed || len(b.queue) == 0 {
			b.dispatching = false
			b.queue = nil
			b.mu.Unlock()
			return
		}
		v = b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()
	}
}

// Last returns the current snapshot.
func (b *Bus[T]) Last() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Close drops every observer and silences the bus. Publish and Observe become
// no-ops afterwards.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[int]func(T))
	b.order = nil
	b.queue = nil
}
