package livekit

import (
	"github.com/koscakluka/gisa/core/conversations"
	"github.com/koscakluka/gisa/core/events"
)

const (
	messageTypeTranscript = "transcript"
	messageTypeResponse   = "response"
)

// dataMessage is the JSON payload published on the room's data channel.
type dataMessage struct {
	Type      string               `json:"type"`
	Text      string               `json:"text"`
	TurnID    string               `json:"turnId,omitempty"`
	Phase     *conversations.Phase `json:"phase,omitempty"`
	Validated *bool                `json:"validated,omitempty"`
	Protocol  string               `json:"protocol,omitempty"`
}

func newTranscriptMessage(event events.UserTranscriptFinal) dataMessage {
	return dataMessage{Type: messageTypeTranscript, Text: event.Transcript}
}

func newResponseMessage(event events.AssistantResponseFinalized) dataMessage {
	phase := event.Metadata.Phase
	validated := event.Metadata.Validated
	return dataMessage{
		Type:      messageTypeResponse,
		Text:      event.Text,
		TurnID:    event.TurnID,
		Phase:     &phase,
		Validated: &validated,
		Protocol:  event.Metadata.Protocol,
	}
}
