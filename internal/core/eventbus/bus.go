package eventbus

import (
	"context"
	"sync"
)

// Event names a bus topic.
type Event string

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers typed events to subscribers on a single goroutine, in
// publish order. Publishing blocks while the buffer is full so no event is
// lost while the bus runs; after the bus stops, publishes are dropped and
// reported through OnDrop. A nil *EventBus accepts and ignores publishes.
type EventBus struct {
	ch   chan envelope
	done chan struct{}
	once sync.Once

	mu   sync.RWMutex
	subs map[Event][]func(any)

	hooks busHooks
}

// New creates a bus with the given buffer size.
func New(buffer int) *EventBus {
	if buffer < 1 {
		buffer = 1
	}
	return &EventBus{
		ch:   make(chan envelope, buffer),
		done: make(chan struct{}),
		subs: make(map[Event][]func(any)),
	}
}

// Start delivers events until ctx is cancelled, then delivers whatever is
// still buffered and returns.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		case <-ctx.Done():
			bus.once.Do(func() { close(bus.done) })
			for {
				select {
				case env := <-bus.ch:
					bus.dispatch(env)
				default:
					return
				}
			}
		}
	}
}

// flushEvent marks a Flush barrier. It is never delivered to subscribers.
const flushEvent Event = "bus.flush"

// Flush blocks until every event published before the call has been
// delivered. It returns early when ctx is done or the bus stops.
func (bus *EventBus) Flush(ctx context.Context) {
	if bus == nil {
		return
	}

	barrier := make(chan struct{})
	select {
	case bus.ch <- envelope{event: flushEvent, payload: barrier}:
	case <-bus.done:
		return
	case <-ctx.Done():
		return
	}

	select {
	case <-barrier:
	case <-bus.done:
	case <-ctx.Done():
	}
}

// Stopped is closed once the bus stops accepting events.
func (bus *EventBus) Stopped() <-chan struct{} { return bus.done }

func (bus *EventBus) dispatch(env envelope) {
	if env.event == flushEvent {
		close(env.payload.(chan struct{}))
		return
	}

	bus.mu.RLock()
	subs := bus.subs[env.event]
	bus.mu.RUnlock()

	for _, fn := range subs {
		bus.call(env, fn)
	}
}

func (bus *EventBus) call(env envelope, fn func(any)) {
	defer func() {
		if r := recover(); r != nil {
			bus.runOnPanic(env.event, env.payload, r)
		}
	}()
	fn(env.payload)
}

// subscribe registers fn for event. Payloads of another type are ignored.
func subscribe[T any](bus *EventBus, event Event, fn func(T)) {
	bus.mu.Lock()
	// Copy on write so dispatch can range over a stable slice.
	next := make([]func(any), len(bus.subs[event]), len(bus.subs[event])+1)
	copy(next, bus.subs[event])
	bus.subs[event] = append(next, func(p any) {
		if v, ok := p.(T); ok {
			fn(v)
		}
	})
	bus.mu.Unlock()

	bus.runOnSubscribe(event)
}

// send enqueues an event and fires hooks. Used by the typed Publish methods.
func (bus *EventBus) send(event Event, payload any) {
	if bus == nil {
		return
	}

	select {
	case <-bus.done:
		bus.runOnDrop(event, payload)
		return
	default:
	}

	select {
	case bus.ch <- envelope{event: event, payload: payload}:
		bus.runOnPublish(event, payload)
	case <-bus.done:
		bus.runOnDrop(event, payload)
	}
}
