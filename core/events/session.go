package events

import "github.com/koscakluka/gisa/core/conversations"

const (
	KindSessionPhaseChanged    Kind = "session.phase_changed"
	KindSessionTransportFailed Kind = "session.transport_failed"
	KindSessionEnded           Kind = "session.ended"
)

type SessionPhaseChanged struct {
	Base
	From conversations.Phase
	To   conversations.Phase
}

func NewSessionPhaseChanged(from, to conversations.Phase) SessionPhaseChanged {
	return SessionPhaseChanged{Base: NewBase(KindSessionPhaseChanged), From: from, To: to}
}

type SessionTransportFailed struct {
	Base
	Err error
}

func NewSessionTransportFailed(err error) SessionTransportFailed {
	return SessionTransportFailed{Base: NewBase(KindSessionTransportFailed), Err: err}
}

type SessionEnded struct {
	Base
}

func NewSessionEnded() SessionEnded {
	return SessionEnded{Base: NewBase(KindSessionEnded)}
}
