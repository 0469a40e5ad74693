package texttospeech

import (
	"errors"
	"iter"
	"sync/atomic"
)

var (
	ErrEmptyText      = errors.New("nothing to synthesize")
	ErrStreamConsumed = errors.New("speech stream already consumed")
)

// Collect drains a speech stream into a single buffer.
func Collect(stream iter.Seq2[[]byte, error]) ([]byte, error) {
	var out []byte
	for chunk, err := range stream {
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// Once wraps a stream so that it can only be iterated a single time; later
// iterations yield ErrStreamConsumed.
func Once(stream iter.Seq2[[]byte, error]) iter.Seq2[[]byte, error] {
	var consumed atomic.Bool
	return func(yield func([]byte, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed)
			return
		}
		stream(yield)
	}
}
