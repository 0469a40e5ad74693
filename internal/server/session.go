package server

import (
	"context"
	"sync"
	"sync/atomic"

	orchestration "github.com/koscakluka/gisa/core"
	"github.com/koscakluka/gisa/internal/config"
	"github.com/koscakluka/gisa/internal/livekit"
	"github.com/koscakluka/gisa/internal/sessions"
	"github.com/koscakluka/gisa/internal/voice"
)

// Session is a registered conversation and, when it was started for a
// room, the media bridge feeding it. A session without a room starts when
// its first stream connects, so that stream hears the greeting.
type Session struct {
	orchestrator *orchestration.Orchestrator
	room         string
	bridge       interface{ Close() }

	startOnce sync.Once
	startErr  error
	started   atomic.Bool
}

var _ sessions.Session = (*Session)(nil)

func NewSession(orchestrator *orchestration.Orchestrator, room string, bridge interface{ Close() }) *Session {
	return &Session{orchestrator: orchestrator, room: room, bridge: bridge}
}

func (s *Session) ID() string { return s.orchestrator.ID() }

// Start initializes the orchestrator. Only the first call does any work;
// later calls wait for it and return its result.
func (s *Session) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.started.Store(true)
		s.startErr = s.orchestrator.Initialize(ctx)
	})
	return s.startErr
}

func (s *Session) awaitsStream() bool { return s.room == "" }

func (s *Session) pending() bool { return s.awaitsStream() && !s.started.Load() }

func (s *Session) Shutdown() {
	if s.bridge != nil {
		s.bridge.Close()
	}
	s.orchestrator.Shutdown()
}

// Factory builds an uninitialized session. roomName may be empty, in which
// case audio is expected over the stream endpoint.
type Factory func(ctx context.Context, sessionID, roomName string) (*Session, error)

// NewFactory builds sessions from the configured providers and joins them
// to LiveKit rooms.
func NewFactory(cfg *config.Config) Factory {
	creds := livekit.Credentials{
		URL:       cfg.LiveKit.URL,
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
	}

	return func(ctx context.Context, sessionID, roomName string) (*Session, error) {
		o, err := voice.NewOrchestrator(ctx, cfg, sessionID)
		if err != nil {
			return nil, err
		}
		if roomName == "" {
			return NewSession(o, "", nil), nil
		}

		bridge, err := livekit.Join(ctx, creds, roomName, o,
			livekit.WithInputEncoding(voice.EncodingInfo()),
			livekit.WithOutputEncoding(voice.EncodingInfo()),
		)
		if err != nil {
			o.Shutdown()
			return nil, err
		}
		return NewSession(o, roomName, bridge), nil
	}
}
