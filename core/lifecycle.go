package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/gisa/core/events"
	"github.com/koscakluka/gisa/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const greetingTurnID = "greeting"

// Initialize starts recognition, then speaks the greeting and records it as
// the first assistant message. If either step fails the session is shut
// down and never becomes active.
//
// The turn guard is held while the greeting is spoken, so a final
// transcript that arrives before it finishes is dropped.
func (o *Orchestrator) Initialize(ctx context.Context) (err error) {
	if !o.state.CompareAndSwap(int32(stateCreated), int32(stateInitializing)) {
		if lifecycleState(o.state.Load()) == stateClosed {
			return ErrNotActive
		}
		return ErrAlreadyInitialized
	}

	ctx, span := tracer.Start(ctx, "initialize session", trace.WithAttributes(
		attribute.String("session.id", o.id),
	))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.Shutdown()
		}
	}()

	if o.speechToText == nil || o.generator == nil || o.synthesizer == nil {
		return ErrMissingCollaborator
	}

	o.turnInFlight.Store(true)
	defer o.turnInFlight.Store(false)

	if err := o.speechToText.Transcribe(o.baseContext,
		speechtotext.WithResultCallback(o.HandleRecognition),
		speechtotext.WithErrorCallback(o.HandleRecognitionError),
		speechtotext.WithEncodingInfo(o.encodingInfo),
	); err != nil {
		return transportError(fmt.Errorf("failed to start speech-to-text: %w", err))
	}

	if o.greeting != "" {
		o.mu.Lock()
		o.record.AppendAssistant(o.greeting)
		o.mu.Unlock()

		speakCtx, stop := context.WithCancel(o.baseContext)
		cancelOnDone := context.AfterFunc(ctx, stop)
		speakErr := o.speak(speakCtx, greetingTurnID, o.greeting)
		cancelOnDone()
		stop()
		if speakErr != nil {
			return &StageError{Stage: events.StageSynthesis, Err: fmt.Errorf("failed to speak greeting: %w", speakErr)}
		}

		state := o.State()
		o.emitter.emit(events.NewAssistantResponseFinalized(greetingTurnID, o.greeting, events.ResponseMetadata{
			Phase:     state.Phase,
			Validated: state.Validated,
		}))
	}

	if !o.state.CompareAndSwap(int32(stateInitializing), int32(stateActive)) {
		return ErrNotActive
	}
	logger.Info("session initialized", "session_id", o.id)
	return nil
}

// Shutdown stops recognition, detaches every listener and makes the
// orchestrator inert. It is safe to call more than once.
func (o *Orchestrator) Shutdown() {
	o.closeOnce.Do(func() {
		o.state.Store(int32(stateClosed))
		o.cancel()

		if o.speechToText != nil {
			if err := closeSpeechToText(context.Background(), o.speechToText); err != nil {
				logger.Warn("session shutdown incomplete", "session_id", o.id, "error", err)
			}
		}

		listeners := o.emitter.subscriberCount()
		o.emitter.emitFinal(events.NewSessionEnded())
		o.emitter.close()
		logger.Info("session ended", "session_id", o.id, "listeners", listeners)
	})
}
