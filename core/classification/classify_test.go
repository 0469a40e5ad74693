package classification

import (
	"testing"

	"github.com/koscakluka/gisa/core/conversations"
)

func TestClassifyPhaseRules(t *testing.T) {
	tests := []struct {
		name string
		text string
		want conversations.Phase
	}{
		{name: "greeting question", text: "Olá! Com quem eu falo?", want: conversations.PhaseIdentification},
		{name: "explicit phase one tag", text: "FASE_1 iniciada", want: conversations.PhaseIdentification},
		{name: "phase one wins over phase two", text: "Com quem eu falo sobre a UC?", want: conversations.PhaseIdentification},
		{name: "consumer unit", text: "Qual o número da sua Unidade Consumidora?", want: conversations.PhaseValidation},
		{name: "abbreviation", text: "Me informe a UC, por favor.", want: conversations.PhaseValidation},
		{name: "case sensitive markers", text: "com quem eu falo? unidade consumidora", want: conversations.PhaseResolution},
		{name: "no markers", text: "Sua fatura foi enviada por e-mail.", want: conversations.PhaseResolution},
		{name: "empty text", text: "", want: conversations.PhaseResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text).Phase; got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClassifyValidationMarkers(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{text: "Perfeito, Maria! Já localizei sua conta.", want: true},
		{text: "Pronto, validei seus dados.", want: true},
		{text: "PERFEITO", want: true},
		{text: "Pode repetir o número?", want: false},
	}

	for _, tt := range tests {
		if got := Classify(tt.text).Validated; got != tt.want {
			t.Fatalf("expected validated=%t for %q, got %t", tt.want, tt.text, got)
		}
	}
}

func TestClassifyExtractsProtocol(t *testing.T) {
	result := Classify("Seu protocolo é DEMO-2024150. Posso ajudar em algo mais?")
	if result.Protocol != "DEMO-2024150" {
		t.Fatalf("expected DEMO-2024150, got %q", result.Protocol)
	}
	if got := Classify("sem protocolo").Protocol; got != "" {
		t.Fatalf("expected no protocol, got %q", got)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	text := "Perfeito! Qual a sua Unidade Consumidora?"
	first := Classify(text)
	second := Classify(text)
	if first != second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestRepeatedApplicationIsMonotonic(t *testing.T) {
	record := conversations.NewRecord("s", "prompt")
	replies := []string{
		"Sua fatura está paga.",
		"Com quem eu falo?",
		"Qual a UC?",
		"Perfeito.",
		"Com quem eu falo?",
	}

	previous := record.Phase
	validated := false
	for _, reply := range replies {
		record.Apply(Classify(reply).Update())
		if record.Phase.Before(previous) {
			t.Fatalf("expected phase never to regress, went from %v to %v", previous, record.Phase)
		}
		if validated && !record.Validated {
			t.Fatalf("expected validated to stay set")
		}
		previous = record.Phase
		validated = record.Validated
	}
	if record.Phase != conversations.PhaseResolution {
		t.Fatalf("expected terminal phase, got %v", record.Phase)
	}
}
