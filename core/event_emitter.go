package orchestration

import (
	"sync"

	"github.com/koscakluka/gisa/core/events"
)

// eventEmitter fans events out to subscriber channels. Delivery blocks
// until each subscriber accepts the event, unsubscribes, or the emitter is
// closed, so a slow driver slows the session down instead of losing events.
type eventEmitter struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	closed      bool
	done        chan struct{}
	closeOnce   sync.Once
}

type subscriber struct {
	events chan events.Event
	done   chan struct{}
	once   sync.Once
}

func newEventEmitter() *eventEmitter {
	return &eventEmitter{
		subscribers: map[int]*subscriber{},
		done:        make(chan struct{}),
	}
}

func (e *eventEmitter) subscribe(buffer int) (<-chan events.Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	sub := &subscriber{
		events: make(chan events.Event, buffer),
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(sub.events)
		return sub.events, func() {}
	}

	id := e.nextID
	e.nextID++
	e.subscribers[id] = sub

	return sub.events, func() {
		sub.once.Do(func() { close(sub.done) })

		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(sub.events)
		}
	}
}

func (e *eventEmitter) emit(event events.Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	for _, sub := range e.subscribers {
		select {
		case sub.events <- event:
		case <-sub.done:
		case <-e.done:
			return
		}
	}
}

// emitFinal delivers to subscribers with room for the event and skips the
// rest.
func (e *eventEmitter) emitFinal(event events.Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	for _, sub := range e.subscribers {
		select {
		case sub.events <- event:
		default:
		}
	}
}

func (e *eventEmitter) subscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers)
}

// close detaches every subscriber and closes their channels.
func (e *eventEmitter) close() {
	e.closeOnce.Do(func() { close(e.done) })

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, sub := range e.subscribers {
		sub.once.Do(func() { close(sub.done) })
		close(sub.events)
		delete(e.subscribers, id)
	}
}
