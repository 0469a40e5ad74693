package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

var envKeys = []string{
	"GISA_ENV", "HOST", "PORT",
	"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET",
	"DEEPGRAM_API_KEY", "GOOGLE_API_KEY", "GROQ_API_KEY",
	"ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID",
	"GISA_LLM_PROVIDER", "GISA_TTS_PROVIDER",
	"GISA_GENERATION_TIMEOUT", "GISA_SYNTHESIS_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", missingEnvFile(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:3000" {
		t.Fatalf("expected default address 0.0.0.0:3000, got %s", cfg.Server.Addr())
	}
	if cfg.LiveKit.URL != "ws://localhost:7880" {
		t.Fatalf("expected default livekit url, got %q", cfg.LiveKit.URL)
	}
	if cfg.LLMProvider != LLMProviderGemini || cfg.TTSProvider != TTSProviderElevenLabs {
		t.Fatalf("expected gemini and elevenlabs, got %q and %q", cfg.LLMProvider, cfg.TTSProvider)
	}
	if cfg.GenerationTimeout.Std() != 30*time.Second {
		t.Fatalf("expected 30s generation timeout, got %s", cfg.GenerationTimeout.Std())
	}
}

func TestLoadLayersFileThenEnvironment(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "gisa.yaml")
	document := `
env: staging
server:
  port: 8080
livekit:
  url: wss://livekit.example.com
  apiKey: file-key
llmProvider: groq
generationTimeout: 10s
`
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("LIVEKIT_API_KEY", "env-key")
	t.Setenv("PORT", "9090")
	t.Setenv("GISA_SYNTHESIS_TIMEOUT", "5s")

	cfg, err := Load(path, missingEnvFile(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Env != "staging" {
		t.Fatalf("expected env from file, got %q", cfg.Env)
	}
	if cfg.LiveKit.URL != "wss://livekit.example.com" {
		t.Fatalf("expected livekit url from file, got %q", cfg.LiveKit.URL)
	}
	if cfg.LiveKit.APIKey != "env-key" {
		t.Fatalf("expected environment to override the file, got %q", cfg.LiveKit.APIKey)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.LLMProvider != LLMProviderGroq {
		t.Fatalf("expected groq provider, got %q", cfg.LLMProvider)
	}
	if cfg.GenerationTimeout.Std() != 10*time.Second {
		t.Fatalf("expected 10s generation timeout, got %s", cfg.GenerationTimeout.Std())
	}
	if cfg.SynthesisTimeout.Std() != 5*time.Second {
		t.Fatalf("expected 5s synthesis timeout, got %s", cfg.SynthesisTimeout.Std())
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	if err := os.Unsetenv("DEEPGRAM_API_KEY"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("DEEPGRAM_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Deepgram.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.Deepgram.APIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("GISA_GENERATION_TIMEOUT", "-1s")

	if _, err := Load("", missingEnvFile(t)); err == nil {
		t.Fatalf("expected an error for invalid values")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), missingEnvFile(t)); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestValidateListsMissingKeys(t *testing.T) {
	cfg := Default()
	cfg.LiveKit.APIKey = "key"

	err := cfg.Validate()
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	expected := []string{"LIVEKIT_API_SECRET", "DEEPGRAM_API_KEY", "GOOGLE_API_KEY", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID"}
	if !slices.Equal(configErr.Missing, expected) {
		t.Fatalf("expected missing %v, got %v", expected, configErr.Missing)
	}
}

func TestValidateFollowsProviders(t *testing.T) {
	cfg := Default()
	cfg.Deepgram.APIKey = "dg"
	cfg.LLMProvider = LLMProviderGroq
	cfg.TTSProvider = TTSProviderDeepgram

	err := cfg.ValidateVoice()
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if !slices.Equal(configErr.Missing, []string{"GROQ_API_KEY"}) {
		t.Fatalf("expected only GROQ_API_KEY missing, got %v", configErr.Missing)
	}

	cfg.Groq.APIKey = "groq"
	if err := cfg.ValidateVoice(); err != nil {
		t.Fatalf("expected voice config to be valid, got %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected server validation to require livekit credentials")
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.LLMProvider = "parrot"

	err := cfg.ValidateVoice()
	var configErr *ConfigurationError
	if err == nil || errors.As(err, &configErr) {
		t.Fatalf("expected a plain error for an unknown provider, got %v", err)
	}
}
