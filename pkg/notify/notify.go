// Package notify broadcasts "the reading list changed" to every open surface.
//
// There is exactly one event kind and it carries no payload: receivers
// always refetch the whole list. Delivery is best-effort and coalescing; a
// receiver that already has a pending event does not get a second one.
package notify

import (
	"context"
	"sync"
)

// Event is the single notification kind.
type Event string

// ReadingListUpdated means "invalidate and refetch".
const ReadingListUpdated Event = "READING_LIST_UPDATED"

// Notifier publishes ReadingListUpdated.
type Notifier interface {
	Notify(ctx context.Context) error
}

// Hub fans events out to in-process subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a receiver. The returned func unsubscribes and closes
// the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Notify never blocks and never fails; having no subscribers is fine.
func (h *Hub) Notify(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ReadingListUpdated:
		default:
			// already pending
		}
	}
	return nil
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Multi notifies every notifier and reports the first failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
