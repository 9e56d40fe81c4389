package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"gamekit/core"
)

// DispatchMode selects whether work runs on the caller's goroutine or on background workers.
// It applies to both the EventBus and the ScoreRequestQueue drain loop.
type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

type subscription struct {
	id int64
	fn func(context.Context, core.Event)
}

// EventBus fans core events out to typed and catch-all subscribers.
// In async mode events are queued to a fixed worker pool; a full queue drops the event.
type EventBus struct {
	mode         DispatchMode
	mu           sync.RWMutex
	subs         map[core.EventType]map[int64]subscription
	all          map[int64]subscription
	nextID       int64
	asyncQueue   chan core.Event
	asyncWorkers int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closed       atomic.Bool
	dropped      atomic.Int64
}

func NewEventBus(mode DispatchMode) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		mode:         mode,
		subs:         make(map[core.EventType]map[int64]subscription),
		all:          make(map[int64]subscription),
		asyncQueue:   make(chan core.Event, 1024),
		asyncWorkers: 2,
		ctx:          ctx,
		cancel:       cancel,
	}
	if mode == DispatchAsync {
		eb.startWorkers()
	}
	return eb
}

func (e *EventBus) startWorkers() {
	for i := 0; i < e.asyncWorkers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				select {
				case ev := <-e.asyncQueue:
					e.dispatchSync(context.Background(), ev)
				case <-e.ctx.Done():
					e.drainQueued()
					return
				}
			}
		}()
	}
}

// drainQueued delivers whatever was queued before Close.
func (e *EventBus) drainQueued() {
	for {
		select {
		case ev := <-e.asyncQueue:
			e.dispatchSync(context.Background(), ev)
		default:
			return
		}
	}
}

// Close delivers already queued events, stops the workers and waits for them.
// Publish after Close is a no-op. Close is idempotent.
func (e *EventBus) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.cancel()
	e.wg.Wait()
}

// Dropped reports how many async events were discarded because the queue was full or closed.
func (e *EventBus) Dropped() int64 { return e.dropped.Load() }

// Subscribe registers a handler for an event type. Returns unsubscribe func.
func (e *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.subs[typ] == nil {
		e.subs[typ] = make(map[int64]subscription)
	}
	e.subs[typ][id] = subscription{id: id, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if m := e.subs[typ]; m != nil {
			delete(m, id)
		}
	}
}

// SubscribeAll registers a handler for every event type.
func (e *EventBus) SubscribeAll(handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.all[id] = subscription{id: id, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.all, id)
	}
}

// Publish sends an event to subscribers.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.closed.Load() {
		e.dropped.Add(1)
		return
	}
	if e.mode == DispatchAsync {
		select {
		case e.asyncQueue <- ev:
		default:
			e.dropped.Add(1)
		}
		return
	}
	e.dispatchSync(ctx, ev)
}

func (e *EventBus) dispatchSync(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	subs := e.subs[ev.Type]
	handlers := make([]func(context.Context, core.Event), 0, len(subs)+len(e.all))
	for _, s := range subs {
		handlers = append(handlers, s.fn)
	}
	for _, s := range e.all {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
