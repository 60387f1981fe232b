// Package eventbus implements the process-wide publish/subscribe channel that
// every shell component communicates through. Dispatch is synchronous: all
// subscribers current at publish time are invoked once, in subscription order.
package eventbus

import (
	"sync"
)

// Kind identifies one category of event on the bus.
type Kind string

// Event kinds published by the shell and its surfaces.
const (
	KindLevelLoadRequested  Kind = "level:load-requested"
	KindLevelStartRequested Kind = "level:start-requested"
	KindLevelLoaded         Kind = "level:loaded"
	KindLevelCompleted      Kind = "level:completed"
	KindPhaseChanged        Kind = "phase:changed"
	KindMinigameEnded       Kind = "minigame:ended"
	KindScoreChanged        Kind = "score:changed"
	KindCollectibleGained   Kind = "collectible:gained"
	KindInputKey            Kind = "input:key"
	KindToast               Kind = "toast"
)

// Handler receives the payload published for a subscribed kind.
type Handler func(payload any)

// Subscription identifies one registered handler so it can be removed later.
type Subscription struct {
	kind Kind
	id   uint64
	fn   Handler
}

// Bus is a synchronous pub/sub channel. The zero value is not usable; create
// one with New. A Bus is safe for use from multiple goroutines, but handlers
// run on the publisher's goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]*Subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Kind][]*Subscription)}
}

// Subscribe registers a handler for one event kind. Handlers for the same
// kind are invoked in the order they subscribed.
func (b *Bus) Subscribe(kind Kind, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{kind: kind, id: b.nextID, fn: fn}
	b.subs[kind] = append(b.subs[kind], sub)
	return sub
}

// Unsubscribe removes a previously registered handler. Removing a
// subscription twice, or a nil subscription, is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.kind]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every handler subscribed to kind at the moment
// of the call. Fire-and-forget: there is no error path and no delivery
// guarantee beyond "current subscribers are invoked once".
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.RLock()
	list := b.subs[kind]
	// Snapshot so handlers can subscribe/unsubscribe during dispatch.
	snapshot := make([]*Subscription, len(list))
	copy(snapshot, list)
	b.mu.RUnlock()

	for _, s := range snapshot {
		s.fn(payload)
	}
}

// SubscriberCount reports how many handlers are registered for kind.
// Diagnostics only.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
