package orchestration

import (
	"errors"
	"fmt"

	"github.com/koscakluka/gisa/core/events"
)

var (
	ErrGeneration = errors.New("generation failed")
	ErrSynthesis  = errors.New("synthesis failed")
	ErrTransport  = errors.New("transport failed")

	ErrNotActive           = errors.New("orchestrator is not active")
	ErrAlreadyInitialized  = errors.New("orchestrator already initialized")
	ErrMissingCollaborator = errors.New("orchestrator is missing a collaborator")
)

// StageError reports which step of a turn failed. It matches both the
// stage's sentinel (ErrGeneration, ErrSynthesis) and the underlying error
// with errors.Is.
type StageError struct {
	Stage events.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	switch e.Stage {
	case events.StageGeneration:
		return []error{ErrGeneration, e.Err}
	case events.StageSynthesis:
		return []error{ErrSynthesis, e.Err}
	}
	return []error{e.Err}
}

func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
