// Package feed fans committed roster transactions out to in-process
// subscribers (cache invalidation, the websocket transaction feed).
package feed

import "sync"

const recentSize = 100

type Bus struct {
	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
	recent []Event
}

func New() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every later event and returns a func that
// removes it. fn runs on the publisher's goroutine and must not block.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish is called after the unit of work that produced evt committed.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.recent = append(b.recent, evt)
	if len(b.recent) > recentSize {
		b.recent = b.recent[len(b.recent)-recentSize:]
	}
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(evt)
	}
}

// Recent returns up to n of the latest events, oldest first.
func (b *Bus) Recent(n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.recent) {
		n = len(b.recent)
	}
	return append([]Event(nil), b.recent[len(b.recent)-n:]...)
}
