package voice

import (
	"context"
	"strings"
	"testing"

	"github.com/koscakluka/gisa/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Deepgram.APIKey = "dg-key"
	cfg.Groq.APIKey = "groq-key"
	cfg.LLMProvider = config.LLMProviderGroq
	cfg.TTSProvider = config.TTSProviderDeepgram
	return cfg
}

func TestNewOrchestratorStartsWithPersona(t *testing.T) {
	o, err := NewOrchestrator(context.Background(), testConfig(), "session-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer o.Shutdown()

	if o.ID() != "session-1" {
		t.Fatalf("expected session id session-1, got %q", o.ID())
	}
	if o.IsActive() {
		t.Fatalf("expected a fresh orchestrator to be inactive")
	}
	history := o.State().History
	if len(history) != 1 || !strings.Contains(history[0].Text, "Gisa") {
		t.Fatalf("expected history to open with the persona prompt, got %+v", history)
	}
}

func TestUnknownProviders(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "parrot"
	if _, err := NewGenerator(context.Background(), cfg); err == nil {
		t.Fatalf("expected an error for an unknown llm provider")
	}

	cfg.TTSProvider = "parrot"
	if _, err := NewSynthesizer(cfg); err == nil {
		t.Fatalf("expected an error for an unknown tts provider")
	}
}
