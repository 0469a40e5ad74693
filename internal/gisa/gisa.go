// Package gisa holds the assistant persona: the behavioral prompt that opens
// every conversation and the greeting spoken when a session starts.
package gisa

import (
	_ "embed"
	"strings"
)

//go:embed prompt.md
var systemPrompt string

const Greeting = "Olá... Eu sou a Gisa! Assistente Inteligente da Energisa. Com quem eu falo?"

func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}
