package conversations

import (
	"slices"
	"time"
)

type Speaker string

const (
	SpeakerSystem    Speaker = "system"
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type Message struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Update is a phase/validation delta derived from an assistant reply.
type Update struct {
	Phase     Phase
	Validated bool
	Protocol  string
}

// Record is the state of one conversation. History always starts with the
// single system message it was created with and only ever grows.
//
// Record does no locking of its own; the orchestrator owning it serializes
// access.
type Record struct {
	ID        string    `json:"sessionId"`
	History   []Message `json:"history"`
	Phase     Phase     `json:"phase"`
	Validated bool      `json:"validated"`
	Protocol  string    `json:"protocol,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

func NewRecord(id, systemPrompt string) *Record {
	now := time.Now()
	return &Record{
		ID: id,
		History: []Message{
			{Speaker: SpeakerSystem, Text: systemPrompt, CreatedAt: now},
		},
		Phase:     PhaseIdentification,
		StartedAt: now,
	}
}

func (r *Record) AppendUser(text string) Message {
	return r.append(SpeakerUser, text)
}

func (r *Record) AppendAssistant(text string) Message {
	return r.append(SpeakerAssistant, text)
}

func (r *Record) append(speaker Speaker, text string) Message {
	msg := Message{Speaker: speaker, Text: text, CreatedAt: time.Now()}
	r.History = append(r.History, msg)
	return msg
}

// Apply folds a classification into the record. The phase only moves
// forward and validation, once set, stays set.
func (r *Record) Apply(update Update) (phaseChanged bool) {
	if update.Phase.Valid() && r.Phase.Before(update.Phase) {
		r.Phase = update.Phase
		phaseChanged = true
	}
	if update.Validated {
		r.Validated = true
	}
	if update.Protocol != "" {
		r.Protocol = update.Protocol
	}
	return phaseChanged
}

// MessageCount counts the conversational messages, leaving out the system
// prompt.
func (r *Record) MessageCount() int {
	count := 0
	for _, msg := range r.History {
		if msg.Speaker != SpeakerSystem {
			count++
		}
	}
	return count
}

func (r *Record) Uptime(now time.Time) time.Duration {
	return now.Sub(r.StartedAt)
}

// Snapshot returns a copy that shares no memory with r.
func (r *Record) Snapshot() Record {
	snapshot := *r
	snapshot.History = slices.Clone(r.History)
	return snapshot
}
