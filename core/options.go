package orchestration

import (
	"context"
	"iter"
	"time"

	"github.com/koscakluka/gisa/core/audio"
	"github.com/koscakluka/gisa/core/llms"
	"github.com/koscakluka/gisa/core/speechtotext"
)

const (
	DefaultGenerationTimeout = 30 * time.Second
	DefaultSynthesisTimeout  = 30 * time.Second
)

type OrchestratorOption func(*Orchestrator)

// SpeechToText is the recognition transport. Implementations may also
// provide a Close method, which is called on shutdown.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

func WithSpeechToTextClient(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speechToText = client
	}
}

type Generator interface {
	Generate(ctx context.Context, messages []llms.Message) (*llms.Response, error)
}

func WithGenerator(generator Generator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.generator = generator
	}
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// StreamingSynthesizer yields audio as it is produced. The sequence is
// finite and can only be iterated once.
type StreamingSynthesizer interface {
	Synthesizer
	SynthesizeStream(ctx context.Context, text string) iter.Seq2[[]byte, error]
}

func WithSynthesizer(synthesizer Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.synthesizer = synthesizer
	}
}

// WithStreamingSynthesis emits reply audio chunk by chunk when the
// synthesizer supports it.
func WithStreamingSynthesis(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.streamSynthesis = enabled
	}
}

// WithSystemPrompt sets the behavioral prompt that opens the history.
func WithSystemPrompt(prompt string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.systemPrompt = prompt
	}
}

// WithGreeting sets what the assistant says when the session starts.
func WithGreeting(greeting string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.greeting = greeting
	}
}

func WithGenerationTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.generationTimeout = timeout
		}
	}
}

func WithSynthesisTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.synthesisTimeout = timeout
		}
	}
}

// WithEncodingInfo describes the audio passed to SendAudio and produced by
// synthesis.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) OrchestratorOption {
	return func(o *Orchestrator) {
		if !encodingInfo.IsZero() {
			o.encodingInfo = encodingInfo
		}
	}
}
