package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"gamekit/core"
)

// Filter selects which events a subscriber receives. The zero value matches everything.
type Filter struct {
	Types []core.EventType
	User  core.UserID
}

func (f Filter) match(ev core.Event) bool {
	if f.User != "" && ev.UserID != f.User {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == ev.Type {
			return true
		}
	}
	return false
}

type subscriber struct {
	ch     chan core.Event
	filter Filter
}

// Hub fans events out to subscriber channels. Slow subscribers lose events rather than
// blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Int64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

func (h *Hub) Subscribe(buffer int, filter Filter) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscriber{ch: ch, filter: filter}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Broadcast delivers ev to every matching subscriber. It has the event bus handler
// signature so it can be registered with SubscribeAll.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.filter.match(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
