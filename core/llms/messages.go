package llms

import (
	"errors"

	"github.com/koscakluka/gisa/core/conversations"
)

var ErrEmptyResponse = errors.New("language model returned no text")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the history replayed to a language model.
type Message struct {
	Role    Role
	Content string
}

// Response is a generated reply. Metadata carries provider hints such as
// the model name or finish reason and may be nil.
type Response struct {
	Text     string
	Metadata map[string]string
}

// FromHistory converts a conversation history into model messages, keeping
// its order.
func FromHistory(history []conversations.Message) []Message {
	messages := make([]Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, Message{Role: roleFor(msg.Speaker), Content: msg.Text})
	}
	return messages
}

func roleFor(speaker conversations.Speaker) Role {
	switch speaker {
	case conversations.SpeakerSystem:
		return RoleSystem
	case conversations.SpeakerAssistant:
		return RoleAssistant
	default:
		return RoleUser
	}
}
