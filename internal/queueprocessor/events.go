package queueprocessor

import (
	"sync"

	"github.com/mbrown1837/webmonitor/internal/models"
)

// Broadcaster fans a StatusEvent out to every current subscriber
// (SPEC_FULL.md §4.4: in-process channel plus a websocket hub under the
// Admin API). Subscribers that fall behind are dropped rather than
// blocking the processor loop — status events are a best-effort live
// feed, not a durable log (the History Store and queue table already
// are).
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan models.StatusEvent]struct{}
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan models.StatusEvent]struct{})}
}

// Subscribe registers a new listener. Call Unsubscribe when done to avoid
// leaking the channel.
func (b *Broadcaster) Subscribe() chan models.StatusEvent {
	ch := make(chan models.StatusEvent, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (b *Broadcaster) Unsubscribe(ch chan models.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish fans event out to every current subscriber non-blockingly.
func (b *Broadcaster) Publish(event models.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// subscriber too slow; drop rather than stall the processor loop.
		}
	}
}
