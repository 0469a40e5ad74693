package conversations

import "fmt"

// Phase is the stage of the service call. The zero value is not a valid
// phase; records always start at PhaseIdentification.
type Phase int

const (
	phaseUnknown Phase = iota
	// PhaseIdentification is the opening of the call, where the assistant
	// learns who is speaking.
	PhaseIdentification
	// PhaseValidation is where the consumer unit is confirmed.
	PhaseValidation
	// PhaseResolution is the terminal phase, where the caller's request is
	// handled.
	PhaseResolution
)

var phaseNames = map[Phase]string{
	PhaseIdentification: "FASE_1",
	PhaseValidation:     "FASE_2",
	PhaseResolution:     "FASE_3",
}

func ParsePhase(name string) (Phase, error) {
	for phase, phaseName := range phaseNames {
		if phaseName == name {
			return phase, nil
		}
	}
	return phaseUnknown, fmt.Errorf("unknown phase %q", name)
}

func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Before reports whether p comes earlier in the call than other.
func (p Phase) Before(other Phase) bool { return p < other }

func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
