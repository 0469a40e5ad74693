// Package orchestration runs one live voice conversation: it turns
// recognition results into turns, drives generation and synthesis for each
// turn, and keeps the conversation record.
package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/gisa/core/audio"
	"github.com/koscakluka/gisa/core/conversations"
	"github.com/koscakluka/gisa/core/events"
)

type lifecycleState int32

const (
	stateCreated lifecycleState = iota
	stateInitializing
	stateActive
	stateClosed
)

// Orchestrator owns a single session. At most one turn runs at a time;
// final transcripts arriving while a turn is in flight are dropped.
type Orchestrator struct {
	id                string
	systemPrompt      string
	greeting          string
	generationTimeout time.Duration
	synthesisTimeout  time.Duration
	streamSynthesis   bool
	encodingInfo      audio.EncodingInfo

	speechToText SpeechToText
	generator    Generator
	synthesizer  Synthesizer

	// mu guards record and interim. The record is only written while
	// turnInFlight is held.
	mu           sync.RWMutex
	record       *conversations.Record
	interim      string
	turnInFlight atomic.Bool

	state       atomic.Int32
	emitter     *eventEmitter
	baseContext context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

// NewOrchestrator creates an inactive session. An empty id is replaced with
// a random one.
func NewOrchestrator(id string, opts ...OrchestratorOption) *Orchestrator {
	if id == "" {
		id = uuid.NewString()
	}

	baseContext, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		id:                id,
		generationTimeout: DefaultGenerationTimeout,
		synthesisTimeout:  DefaultSynthesisTimeout,
		encodingInfo:      audio.GetDefaultEncodingInfo(),
		emitter:           newEventEmitter(),
		baseContext:       baseContext,
		cancel:            cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.record = conversations.NewRecord(id, o.systemPrompt)

	return o
}

func (o *Orchestrator) ID() string { return o.id }

func (o *Orchestrator) IsActive() bool {
	return lifecycleState(o.state.Load()) == stateActive
}

// TurnInFlight reports whether a turn (or the greeting) currently holds the
// session.
func (o *Orchestrator) TurnInFlight() bool { return o.turnInFlight.Load() }

// State returns a snapshot of the conversation record. Changing it has no
// effect on the session.
func (o *Orchestrator) State() conversations.Record {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.record.Snapshot()
}

func (o *Orchestrator) InterimTranscript() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.interim
}

// Subscribe attaches a listener. The returned channel is closed when the
// listener unsubscribes or the session shuts down. Events are delivered in
// emission order and the session waits for slow listeners, so subscribers
// must keep draining their channel.
func (o *Orchestrator) Subscribe(buffer int) (<-chan events.Event, func()) {
	return o.emitter.subscribe(buffer)
}

// SendAudio forwards caller audio to the recognition transport. Audio keeps
// flowing while a turn is in flight. After Shutdown it is silently dropped.
func (o *Orchestrator) SendAudio(audio []byte) error {
	switch lifecycleState(o.state.Load()) {
	case stateClosed:
		return nil
	case stateCreated:
		return ErrNotActive
	}

	if err := o.speechToText.SendAudio(audio); err != nil {
		return transportError(err)
	}
	return nil
}
