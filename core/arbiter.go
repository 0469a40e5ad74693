package orchestration

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/koscakluka/gisa/core/events"
	"github.com/koscakluka/gisa/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HandleRecognition applies one recognition result in delivery order.
//
// Interim results only replace the interim transcript. A final result
// clears it and starts a turn when its trimmed text is non-empty and no
// turn is in flight; otherwise the final is dropped, not queued.
func (o *Orchestrator) HandleRecognition(result speechtotext.Result) {
	if lifecycleState(o.state.Load()) == stateClosed {
		return
	}

	if !result.IsFinal {
		o.mu.Lock()
		o.interim = result.Text
		o.mu.Unlock()
		o.emitter.emit(events.NewUserTranscriptInterimUpdated(result.Text))
		return
	}

	o.mu.Lock()
	o.interim = ""
	o.mu.Unlock()

	if strings.TrimSpace(result.Text) == "" {
		o.drop(result.Text, events.DropReasonEmpty)
		return
	}
	if !o.turnInFlight.CompareAndSwap(false, true) {
		o.drop(result.Text, events.DropReasonTurnInFlight)
		return
	}

	turnID := uuid.NewString()
	turnsStarted.Add(context.Background(), 1)
	o.emitter.emit(events.NewUserTranscriptFinal(result.Text, result.Confidence))
	go o.runTurn(turnID, result.Text)
}

func (o *Orchestrator) drop(transcript string, reason events.DropReason) {
	turnsDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", string(reason))))
	logger.Debug("final transcript dropped", "session_id", o.id, "reason", reason)
	o.emitter.emit(events.NewUserTranscriptDropped(transcript, reason))
}

func (o *Orchestrator) HandleRecognitionError(err error) {
	o.ReportTransportError(err)
}

// ReportTransportError tells listeners that the recognition or media
// transport failed. The conversation record and turn state are left alone.
func (o *Orchestrator) ReportTransportError(err error) {
	if err == nil || lifecycleState(o.state.Load()) == stateClosed {
		return
	}

	err = transportError(err)
	logger.Warn("transport failed", "session_id", o.id, "error", err)
	o.emitter.emit(events.NewSessionTransportFailed(err))
}
