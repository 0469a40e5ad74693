// Package voice assembles an orchestrator from the configured providers.
package voice

import (
	"context"
	"fmt"

	orchestration "github.com/koscakluka/gisa/core"
	"github.com/koscakluka/gisa/core/audio"
	"github.com/koscakluka/gisa/core/llms/gemini"
	"github.com/koscakluka/gisa/core/llms/groq"
	"github.com/koscakluka/gisa/core/speechtotext/deepgram"
	deepgramtts "github.com/koscakluka/gisa/core/texttospeech/deepgram"
	"github.com/koscakluka/gisa/core/texttospeech/elevenlabs"
	"github.com/koscakluka/gisa/internal/config"
	"github.com/koscakluka/gisa/internal/gisa"
)

// EncodingInfo is the audio format used on both sides of the pipeline:
// what recognition is fed and what synthesis produces.
func EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

// NewOrchestrator builds an uninitialized session speaking as Gisa. Extra
// options are applied after the configured ones.
func NewOrchestrator(ctx context.Context, cfg *config.Config, sessionID string, opts ...orchestration.OrchestratorOption) (*orchestration.Orchestrator, error) {
	speechToText, err := deepgram.NewTranscriptionClient(deepgram.WithAPIKey(cfg.Deepgram.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech-to-text client: %w", err)
	}
	generator, err := NewGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	synthesizer, err := NewSynthesizer(cfg)
	if err != nil {
		return nil, err
	}

	options := []orchestration.OrchestratorOption{
		orchestration.WithSpeechToTextClient(speechToText),
		orchestration.WithGenerator(generator),
		orchestration.WithSynthesizer(synthesizer),
		orchestration.WithStreamingSynthesis(true),
		orchestration.WithSystemPrompt(gisa.SystemPrompt()),
		orchestration.WithGreeting(gisa.Greeting),
		orchestration.WithGenerationTimeout(cfg.GenerationTimeout.Std()),
		orchestration.WithSynthesisTimeout(cfg.SynthesisTimeout.Std()),
		orchestration.WithEncodingInfo(EncodingInfo()),
	}
	return orchestration.NewOrchestrator(sessionID, append(options, opts...)...), nil
}

func NewGenerator(ctx context.Context, cfg *config.Config) (orchestration.Generator, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderGemini:
		opts := []gemini.ClientOption{gemini.WithAPIKey(cfg.Google.APIKey)}
		if cfg.Google.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Google.Model))
		}
		client, err := gemini.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client, nil
	case config.LLMProviderGroq:
		opts := []groq.ClientOption{groq.WithAPIKey(cfg.Groq.APIKey)}
		if cfg.Groq.Model != "" {
			opts = append(opts, groq.WithModel(cfg.Groq.Model))
		}
		client, err := groq.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create groq client: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}

func NewSynthesizer(cfg *config.Config) (orchestration.StreamingSynthesizer, error) {
	switch cfg.TTSProvider {
	case config.TTSProviderElevenLabs:
		client, err := elevenlabs.NewClient(
			elevenlabs.WithAPIKey(cfg.ElevenLabs.APIKey),
			elevenlabs.WithVoiceID(cfg.ElevenLabs.VoiceID),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create elevenlabs client: %w", err)
		}
		return client, nil
	case config.TTSProviderDeepgram:
		client, err := deepgramtts.NewTextToSpeechClient(
			deepgramtts.WithAPIKey(cfg.Deepgram.APIKey),
			deepgramtts.WithEncodingInfo(EncodingInfo()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepgram speech client: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown tts provider %q", cfg.TTSProvider)
}
