package events

const (
	KindUserTranscriptInterimUpdated Kind = "user_input.transcript_interim_updated"
	KindUserTranscriptFinal          Kind = "user_input.transcript_final"
	KindUserTranscriptDropped        Kind = "user_input.transcript_dropped"
)

type UserTranscriptInterimUpdated struct {
	Base
	Transcript string
}

func NewUserTranscriptInterimUpdated(transcript string) UserTranscriptInterimUpdated {
	return UserTranscriptInterimUpdated{Base: NewBase(KindUserTranscriptInterimUpdated), Transcript: transcript}
}

type UserTranscriptFinal struct {
	Base
	Transcript string
	Confidence *float64
}

func NewUserTranscriptFinal(transcript string, confidence *float64) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), Transcript: transcript, Confidence: confidence}
}

type DropReason string

const (
	DropReasonEmpty        DropReason = "empty"
	DropReasonTurnInFlight DropReason = "turn_in_flight"
)

type UserTranscriptDropped struct {
	Base
	Transcript string
	Reason     DropReason
}

func NewUserTranscriptDropped(transcript string, reason DropReason) UserTranscriptDropped {
	return UserTranscriptDropped{Base: NewBase(KindUserTranscriptDropped), Transcript: transcript, Reason: reason}
}
