// Package classification derives conversation phase and validation updates
// from the assistant's replies.
//
// The rules are literal substring checks against generated text, so a
// reply that paraphrases a marker will be misclassified.
package classification

import (
	"regexp"
	"strings"

	"github.com/koscakluka/gisa/core/conversations"
)

type phaseRule struct {
	phase   conversations.Phase
	markers []string
}

// Checked in order; the first rule with a matching marker wins.
var phaseRules = []phaseRule{
	{phase: conversations.PhaseIdentification, markers: []string{"FASE_1", "Com quem eu falo"}},
	{phase: conversations.PhaseValidation, markers: []string{"Unidade Consumidora", "UC"}},
}

const defaultPhase = conversations.PhaseResolution

// Lowercase; matched against the lowercased reply.
var validationMarkers = []string{"validei", "perfeito"}

var protocolPattern = regexp.MustCompile(`DEMO-[\w-]+`)

type Result struct {
	Phase     conversations.Phase
	Validated bool
	Protocol  string
}

func (r Result) Update() conversations.Update {
	return conversations.Update{Phase: r.Phase, Validated: r.Validated, Protocol: r.Protocol}
}

func Classify(responseText string) Result {
	return Result{
		Phase:     classifyPhase(responseText),
		Validated: isValidated(responseText),
		Protocol:  protocolPattern.FindString(responseText),
	}
}

func classifyPhase(text string) conversations.Phase {
	for _, rule := range phaseRules {
		for _, marker := range rule.markers {
			if strings.Contains(text, marker) {
				return rule.phase
			}
		}
	}
	return defaultPhase
}

func isValidated(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range validationMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
