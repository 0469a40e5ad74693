// Package sessions keeps the live sessions of a process in memory.
package sessions

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

type Session interface {
	ID() string
	Shutdown()
}

// Registry maps session ids to sessions. It is safe for concurrent use.
type Registry[S Session] struct {
	mu       sync.Mutex
	sessions map[string]S
}

func NewRegistry[S Session]() *Registry[S] {
	return &Registry[S]{sessions: make(map[string]S)}
}

func (r *Registry[S]) Add(session S) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID()]; ok {
		return ErrExists
	}
	r.sessions[session.ID()] = session
	return nil
}

func (r *Registry[S]) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

func (r *Registry[S]) Get(id string) (S, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		var zero S
		return zero, ErrNotFound
	}
	return session, nil
}

// Remove detaches the session without shutting it down.
func (r *Registry[S]) Remove(id string) (S, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		var zero S
		return zero, ErrNotFound
	}
	delete(r.sessions, id)
	return session, nil
}

// End removes the session and shuts it down.
func (r *Registry[S]) End(id string) error {
	session, err := r.Remove(id)
	if err != nil {
		return err
	}
	session.Shutdown()
	return nil
}

func (r *Registry[S]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ShutdownAll removes every session and shuts them down concurrently. It
// returns how many were ended, or ctx's error if it gave up waiting.
func (r *Registry[S]) ShutdownAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	all := make([]S, 0, len(r.sessions))
	for id, session := range r.sessions {
		all = append(all, session)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Shutdown()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return len(all), nil
	case <-ctx.Done():
		return len(all), ctx.Err()
	}
}
