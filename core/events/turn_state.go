package events

const (
	KindTurnStarted   Kind = "turn_state.started"
	KindTurnCompleted Kind = "turn_state.completed"
	KindTurnFailed    Kind = "turn_state.failed"
)

// Stage names the step of a turn that failed.
type Stage string

const (
	StageGeneration Stage = "generation"
	StageSynthesis  Stage = "synthesis"
	// StagePipeline covers failures outside a collaborator call, such as a
	// recovered panic.
	StagePipeline Stage = "pipeline"
)

type TurnStarted struct {
	Base
	TurnID    string
	Utterance string
}

func NewTurnStarted(turnID, utterance string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, Utterance: utterance}
}

type TurnCompleted struct {
	Base
	TurnID string
}

func NewTurnCompleted(turnID string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID}
}

type TurnFailed struct {
	Base
	TurnID string
	Stage  Stage
	Err    error
}

func NewTurnFailed(turnID string, stage Stage, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, Stage: stage, Err: err}
}
