package events

import "github.com/koscakluka/gisa/core/conversations"

const (
	KindAssistantResponseFinalized Kind = "assistant_response.finalized"
	KindAssistantSpeechFrame       Kind = "assistant_speech.frame"
)

// ResponseMetadata is what the orchestrator learned from a reply. Hints are
// passed through from the generation provider untouched.
type ResponseMetadata struct {
	Phase     conversations.Phase `json:"phase"`
	Validated bool                `json:"validated"`
	Protocol  string              `json:"protocol,omitempty"`
	Hints     map[string]string   `json:"hints,omitempty"`
}

type AssistantResponseFinalized struct {
	Base
	TurnID   string
	Text     string
	Metadata ResponseMetadata
}

func NewAssistantResponseFinalized(turnID, text string, metadata ResponseMetadata) AssistantResponseFinalized {
	return AssistantResponseFinalized{
		Base:     NewBase(KindAssistantResponseFinalized),
		TurnID:   turnID,
		Text:     text,
		Metadata: metadata,
	}
}

type AssistantSpeechFrame struct {
	Base
	TurnID string
	Audio  []byte
}

func NewAssistantSpeechFrame(turnID string, audio []byte) AssistantSpeechFrame {
	return AssistantSpeechFrame{Base: NewBase(KindAssistantSpeechFrame), TurnID: turnID, Audio: audio}
}
