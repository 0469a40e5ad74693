// Package events defines the typed events an orchestrator emits to its
// driver.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - assistant_speech.*
//   - turn_state.*
//   - session.*
//
// user_input events
//
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim transcript snapshot, replaced by every later interim.
//   - UserTranscriptFinal (user_input.transcript_final): final transcript
//     accepted as the start of a turn.
//   - UserTranscriptDropped (user_input.transcript_dropped): final transcript
//     discarded because it was empty or a turn was already in flight.
//
// assistant_response events
//
//   - AssistantResponseFinalized (assistant_response.finalized): reply text and
//     its metadata, emitted after the reply audio.
//
// assistant_speech events
//
//   - AssistantSpeechFrame (assistant_speech.frame): synthesized audio. A whole
//     reply when synthesis is buffered, one chunk when it is streamed.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): a final transcript started a turn.
//   - TurnCompleted (turn_state.completed): reply recorded and emitted.
//   - TurnFailed (turn_state.failed): a stage failed; the turn was abandoned.
//
// session events
//
//   - SessionPhaseChanged (session.phase_changed): the conversation advanced.
//   - SessionTransportFailed (session.transport_failed): the recognition or
//     media transport reported an error.
//   - SessionEnded (session.ended): the session shut down; no events follow.
package events
