package orchestration

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/koscakluka/gisa/core/classification"
	"github.com/koscakluka/gisa/core/events"
	"github.com/koscakluka/gisa/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// runTurn expects the caller to have acquired turnInFlight. The guard is
// released only after the closing TurnCompleted or TurnFailed event has
// reached every listener, so no listener sees the next turn first.
func (o *Orchestrator) runTurn(turnID, utterance string) {
	ctx, span := tracer.Start(o.baseContext, "run turn", trace.WithAttributes(
		attribute.String("session.id", o.id),
		attribute.String("turn.id", turnID),
	))
	defer span.End()

	run := panicSafeNamedWorker("turn", func(ctx context.Context) error {
		return o.processTurn(ctx, turnID, utterance)
	})
	err := run(ctx)
	defer o.turnInFlight.Store(false)

	if err == nil {
		o.emitter.emit(events.NewTurnCompleted(turnID))
		return
	}

	stage := events.StagePipeline
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	turnsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(stage))))
	logger.Error("turn failed", "session_id", o.id, "turn_id", turnID, "stage", stage, "error", err)
	o.emitter.emit(events.NewTurnFailed(turnID, stage, err))
}

// processTurn records the utterance, generates and classifies a reply,
// records it and speaks it. Whatever was recorded before a failure stays
// recorded.
func (o *Orchestrator) processTurn(ctx context.Context, turnID, utterance string) error {
	o.emitter.emit(events.NewTurnStarted(turnID, utterance))

	o.mu.Lock()
	o.record.AppendUser(utterance)
	history := slices.Clone(o.record.History)
	o.mu.Unlock()

	response, err := o.generate(ctx, llms.FromHistory(history))
	if err != nil {
		return &StageError{Stage: events.StageGeneration, Err: err}
	}

	result := classification.Classify(response.Text)

	o.mu.Lock()
	previousPhase := o.record.Phase
	phaseChanged := o.record.Apply(result.Update())
	o.record.AppendAssistant(response.Text)
	metadata := events.ResponseMetadata{
		Phase:     o.record.Phase,
		Validated: o.record.Validated,
		Protocol:  result.Protocol,
		Hints:     response.Metadata,
	}
	o.mu.Unlock()

	if phaseChanged {
		o.emitter.emit(events.NewSessionPhaseChanged(previousPhase, metadata.Phase))
	}

	if err := o.speak(ctx, turnID, response.Text); err != nil {
		return &StageError{Stage: events.StageSynthesis, Err: err}
	}

	o.emitter.emit(events.NewAssistantResponseFinalized(turnID, response.Text, metadata))
	return nil
}

func (o *Orchestrator) generate(ctx context.Context, messages []llms.Message) (*llms.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.generationTimeout)
	defer cancel()

	response, err := callWithContext(ctx, "generation", func(ctx context.Context) (*llms.Response, error) {
		return o.generator.Generate(ctx, messages)
	})
	if err != nil {
		return nil, err
	}
	if response == nil || strings.TrimSpace(response.Text) == "" {
		return nil, llms.ErrEmptyResponse
	}
	return response, nil
}

// speak synthesizes text and emits it as speech frames.
func (o *Orchestrator) speak(ctx context.Context, turnID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, o.synthesisTimeout)
	defer cancel()

	if streaming, ok := o.synthesizer.(StreamingSynthesizer); ok && o.streamSynthesis {
		total := 0
		for chunk, err := range streaming.SynthesizeStream(ctx, text) {
			if err != nil {
				return err
			}
			if len(chunk) > 0 {
				total += len(chunk)
				o.emitter.emit(events.NewAssistantSpeechFrame(turnID, chunk))
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		o.logSpeech(turnID, total)
		return nil
	}

	audio, err := callWithContext(ctx, "synthesis", func(ctx context.Context) ([]byte, error) {
		return o.synthesizer.Synthesize(ctx, text)
	})
	if err != nil {
		return err
	}
	o.emitter.emit(events.NewAssistantSpeechFrame(turnID, audio))
	o.logSpeech(turnID, len(audio))
	return nil
}

func (o *Orchestrator) logSpeech(turnID string, byteCount int) {
	logger.Debug("speech synthesized", "session_id", o.id, "turn_id", turnID,
		"bytes", byteCount, "duration", o.encodingInfo.Duration(byteCount))
}
