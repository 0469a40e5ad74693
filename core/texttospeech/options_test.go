package texttospeech

import (
	"bytes"
	"errors"
	"iter"
	"testing"
)

func chunks(parts ...[]byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, part := range parts {
			if !yield(part, nil) {
				return
			}
		}
	}
}

func TestCollectJoinsChunks(t *testing.T) {
	out, err := Collect(chunks([]byte{1, 2}, []byte{3}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Fatalf("expected joined audio, got %v", out)
	}
}

func TestCollectStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	stream := func(yield func([]byte, error) bool) {
		if !yield([]byte{1}, nil) {
			return
		}
		yield(nil, boom)
	}
	if _, err := Collect(stream); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestOnceRefusesSecondIteration(t *testing.T) {
	stream := Once(chunks([]byte{1}))

	if _, err := Collect(stream); err != nil {
		t.Fatalf("expected first iteration to succeed, got %v", err)
	}
	if _, err := Collect(stream); !errors.Is(err, ErrStreamConsumed) {
		t.Fatalf("expected ErrStreamConsumed, got %v", err)
	}
}
