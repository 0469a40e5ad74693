package orchestration

import (
	"context"
	"fmt"
)

type workerRun func(context.Context) error

func panicSafeNamedWorker(name string, run func(context.Context) error) workerRun {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s worker panicked: %v", name, recovered)
			}
		}()

		return run(ctx)
	}
}

func closeSpeechToText(ctx context.Context, client SpeechToText) error {
	switch c := client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}

// callWithContext returns when call does or when ctx is done, whichever
// comes first, so a collaborator that ignores its context cannot hold a
// turn forever.
func callWithContext[T any](ctx context.Context, name string, call func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if recovered := recover(); recovered != nil {
				r.err = fmt.Errorf("%s call panicked: %v", name, recovered)
			}
			done <- r
		}()
		r.value, r.err = call(ctx)
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%s call abandoned: %w", name, ctx.Err())
	}
}
