// Package events provides a small publish/subscribe bus used to notify
// observers about settings changes and chat lifecycle events. Publish is
// non-blocking and safe on a nil *Bus.
package events

import "sync"

// DefaultBuffer is the channel buffer used when Subscribe is given a
// non-positive size.
const DefaultBuffer = 16

// Bus broadcasts values of type T to every subscriber. Slow subscribers
// miss events instead of blocking publishers.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[<-chan T]chan T
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[<-chan T]chan T)}
}

// Publish delivers e to all subscribers without blocking.
func (b *Bus[T]) Publish(e T) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel receiving published values. Call
// Unsubscribe to release it.
func (b *Bus[T]) Subscribe(size int) <-chan T {
	if size <= 0 {
		size = DefaultBuffer
	}
	ch := make(chan T, size)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = ch
	return ch
}

// Unsubscribe removes the subscription and closes its channel. Unknown
// channels are ignored.
func (b *Bus[T]) Unsubscribe(ch <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	send, ok := b.subs[ch]
	if !ok {
		return
	}
	delete(b.subs, ch)
	close(send)
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
