package orchestration

import (
	"testing"
	"time"

	"github.com/koscakluka/gisa/core/events"
)

func TestEventEmitterFansOutInOrder(t *testing.T) {
	emitter := newEventEmitter()
	first, _ := emitter.subscribe(4)
	second, _ := emitter.subscribe(4)

	emitter.emit(events.NewTurnStarted("turn", "olá"))
	emitter.emit(events.NewTurnCompleted("turn"))

	for i, stream := range []<-chan events.Event{first, second} {
		for _, expected := range []events.Kind{events.KindTurnStarted, events.KindTurnCompleted} {
			if got := (<-stream).Kind(); got != expected {
				t.Fatalf("expected subscriber %d to receive %q, got %q", i, expected, got)
			}
		}
	}
}

func TestEventEmitterUnsubscribeUnblocksEmit(t *testing.T) {
	emitter := newEventEmitter()
	stream, unsubscribe := emitter.subscribe(0)

	done := make(chan struct{})
	go func() {
		emitter.emit(events.NewSessionEnded())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	unsubscribe()
	unsubscribe()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected emit to return after unsubscribe")
	}
	if _, ok := <-stream; ok {
		t.Fatalf("expected unsubscribed channel to be closed")
	}
	if got := emitter.subscriberCount(); got != 0 {
		t.Fatalf("expected no subscribers, got %d", got)
	}
}

func TestEventEmitterCloseUnblocksEmit(t *testing.T) {
	emitter := newEventEmitter()
	emitter.subscribe(0)

	done := make(chan struct{})
	go func() {
		emitter.emit(events.NewSessionEnded())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	emitter.close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected emit to return after close")
	}

	emitter.emit(events.NewSessionEnded())
	emitter.close()
}

func TestEventEmitterFinalEventSkipsFullSubscribers(t *testing.T) {
	emitter := newEventEmitter()
	full, _ := emitter.subscribe(1)
	ready, _ := emitter.subscribe(1)
	emitter.emit(events.NewTurnCompleted("turn"))
	<-ready

	emitter.emitFinal(events.NewSessionEnded())
	emitter.close()

	if got := (<-full).Kind(); got != events.KindTurnCompleted {
		t.Fatalf("expected full subscriber to keep its buffered event, got %q", got)
	}
	if _, ok := <-full; ok {
		t.Fatalf("expected full subscriber to be closed without the final event")
	}
	if got := (<-ready).Kind(); got != events.KindSessionEnded {
		t.Fatalf("expected ready subscriber to receive %q, got %q", events.KindSessionEnded, got)
	}
}
