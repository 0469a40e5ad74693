package config

import (
	"fmt"
	"strings"
)

// ConfigurationError lists the settings that must be provided before the
// service can start.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// Validate checks everything the server needs: the media transport plus
// the voice pipeline.
func (c *Config) Validate() error {
	missing := required(
		setting{"LIVEKIT_API_KEY", c.LiveKit.APIKey},
		setting{"LIVEKIT_API_SECRET", c.LiveKit.APISecret},
	)
	return c.validate(missing)
}

// ValidateVoice checks only the recognition, generation and synthesis
// providers, which is all the local console needs.
func (c *Config) ValidateVoice() error {
	return c.validate(nil)
}

func (c *Config) validate(missing []string) error {
	missing = append(missing, required(setting{"DEEPGRAM_API_KEY", c.Deepgram.APIKey})...)

	switch c.LLMProvider {
	case LLMProviderGemini:
		missing = append(missing, required(setting{"GOOGLE_API_KEY", c.Google.APIKey})...)
	case LLMProviderGroq:
		missing = append(missing, required(setting{"GROQ_API_KEY", c.Groq.APIKey})...)
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}

	switch c.TTSProvider {
	case TTSProviderElevenLabs:
		missing = append(missing, required(
			setting{"ELEVENLABS_API_KEY", c.ElevenLabs.APIKey},
			setting{"ELEVENLABS_VOICE_ID", c.ElevenLabs.VoiceID},
		)...)
	case TTSProviderDeepgram:
	default:
		return fmt.Errorf("unknown tts provider %q", c.TTSProvider)
	}

	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

type setting struct {
	key   string
	value string
}

func required(settings ...setting) []string {
	var missing []string
	for _, s := range settings {
		if s.value == "" {
			missing = append(missing, s.key)
		}
	}
	return missing
}
