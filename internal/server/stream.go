package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/gisa/core"
	"github.com/koscakluka/gisa/core/conversations"
	"github.com/koscakluka/gisa/core/events"
	"github.com/koscakluka/gisa/internal/sessions"
)

const (
	streamEventBuffer = 64
	streamWriteWait   = 10 * time.Second

	kindStreamReady events.Kind = "stream.ready"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 << 10,
	WriteBufferSize: 16 << 10,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamHandler drives a session over a websocket. Binary frames from the
// client are caller audio; binary frames to the client are synthesized
// audio and text frames are JSON events. The first text frame is
// stream.ready, sent once the connection is subscribed. A session without a
// room is started by its first stream, after that stream is subscribed.
type streamHandler struct {
	sessions *sessions.Registry[*Session]
}

func (h streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "session_id", session.ID(), "error", err)
		return
	}
	defer conn.Close()

	stream, unsubscribe := session.orchestrator.Subscribe(streamEventBuffer)
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeEvents(conn, session.ID(), stream)
	}()
	if session.awaitsStream() {
		go h.start(r.Context(), session)
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("stream read ended", "session_id", session.ID(), "error", err)
			}
			break
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		if err := session.orchestrator.SendAudio(data); err != nil && !errors.Is(err, orchestration.ErrNotActive) {
			logger.Warn("failed to forward stream audio", "session_id", session.ID(), "error", err)
		}
	}

	unsubscribe()
	<-writerDone
}

// start ends the session if it cannot be started. A failed start has
// already shut the orchestrator down, which closes every stream on it.
func (h streamHandler) start(ctx context.Context, session *Session) {
	if err := session.Start(ctx); err != nil {
		logger.Error("failed to initialize session", "session_id", session.ID(), "error", err)
		_ = h.sessions.End(session.ID())
	}
}

// writeEvents is the only writer on conn. It closes the connection when
// the session ends.
func writeEvents(conn *websocket.Conn, sessionID string, stream <-chan events.Event) {
	write := func(messageType int, data []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteMessage(messageType, data)
	}

	ready, _ := json.Marshal(wireEvent{Type: kindStreamReady, Timestamp: time.Now().UTC(), SessionID: sessionID})
	if err := write(websocket.TextMessage, ready); err != nil {
		return
	}

	for event := range stream {
		var err error
		if frame, ok := event.(events.AssistantSpeechFrame); ok {
			err = write(websocket.BinaryMessage, frame.Audio)
		} else {
			var payload []byte
			payload, err = json.Marshal(toWireEvent(event))
			if err == nil {
				err = write(websocket.TextMessage, payload)
			}
		}
		if err != nil {
			logger.Debug("stream write failed", "session_id", sessionID, "error", err)
			_ = conn.Close()
			return
		}
		if event.Kind() == events.KindSessionEnded {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
				time.Now().Add(streamWriteWait))
			_ = conn.Close()
			return
		}
	}
}

type wireEvent struct {
	Type       events.Kind          `json:"type"`
	Timestamp  time.Time            `json:"timestamp"`
	SessionID  string               `json:"sessionId,omitempty"`
	TurnID     string               `json:"turnId,omitempty"`
	Text       string               `json:"text,omitempty"`
	Confidence *float64             `json:"confidence,omitempty"`
	Reason     events.DropReason    `json:"reason,omitempty"`
	Stage      events.Stage         `json:"stage,omitempty"`
	Error      string               `json:"error,omitempty"`
	Phase      *conversations.Phase `json:"phase,omitempty"`
	From       *conversations.Phase `json:"from,omitempty"`
	Validated  *bool                `json:"validated,omitempty"`
	Protocol   string               `json:"protocol,omitempty"`
	Hints      map[string]string    `json:"hints,omitempty"`
}

func toWireEvent(event events.Event) wireEvent {
	wire := wireEvent{Type: event.Kind(), Timestamp: event.Timestamp().UTC()}
	switch e := event.(type) {
	case events.UserTranscriptInterimUpdated:
		wire.Text = e.Transcript
	case events.UserTranscriptFinal:
		wire.Text = e.Transcript
		wire.Confidence = e.Confidence
	case events.UserTranscriptDropped:
		wire.Text = e.Transcript
		wire.Reason = e.Reason
	case events.TurnStarted:
		wire.TurnID = e.TurnID
		wire.Text = e.Utterance
	case events.TurnCompleted:
		wire.TurnID = e.TurnID
	case events.TurnFailed:
		wire.TurnID = e.TurnID
		wire.Stage = e.Stage
		if e.Err != nil {
			wire.Error = e.Err.Error()
		}
	case events.AssistantResponseFinalized:
		wire.TurnID = e.TurnID
		wire.Text = e.Text
		wire.Phase = &e.Metadata.Phase
		wire.Validated = &e.Metadata.Validated
		wire.Protocol = e.Metadata.Protocol
		wire.Hints = e.Metadata.Hints
	case events.SessionPhaseChanged:
		wire.From = &e.From
		wire.Phase = &e.To
	case events.SessionTransportFailed:
		if e.Err != nil {
			wire.Error = e.Err.Error()
		}
	}
	return wire
}
