package orchestration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/koscakluka/gisa/core/events"
)

func TestCallWithContextRecoversPanics(t *testing.T) {
	_, err := callWithContext(context.Background(), "generation", func(context.Context) (string, error) {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "generation call panicked") {
		t.Fatalf("expected recovered panic error, got %v", err)
	}
}

func TestCallWithContextReturnsValue(t *testing.T) {
	got, err := callWithContext(context.Background(), "synthesis", func(context.Context) ([]byte, error) {
		return []byte{1, 2}, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bytes, got %d", len(got))
	}
}

func TestCallWithContextAbandonsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)
	_, err := callWithContext(ctx, "generation", func(context.Context) (int, error) {
		<-block
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStageErrorMatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := error(&StageError{Stage: events.StageGeneration, Err: cause})

	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration to match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to match")
	}
	if errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis not to match")
	}
}

func TestPanicSafeNamedWorker(t *testing.T) {
	run := panicSafeNamedWorker("turn", func(context.Context) error {
		panic("boom")
	})
	if err := run(context.Background()); err == nil || !strings.Contains(err.Error(), "turn worker panicked") {
		t.Fatalf("expected recovered panic error, got %v", err)
	}
}
