package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/gisa/core/events"
	"github.com/koscakluka/gisa/core/speechtotext"
	"github.com/koscakluka/gisa/internal/livekit"
)

func TestStreamUnknownSession(t *testing.T) {
	s := New(newStubFactory(t).build, livekit.Credentials{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial(streamURL(srv, "missing"), nil)
	if err == nil {
		t.Fatalf("expected dial to fail for an unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func TestStreamCarriesAudioAndEvents(t *testing.T) {
	factory := newStubFactory(t)
	s := New(factory.build, livekit.Credentials{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	if rec := serve(s, http.MethodPost, "/api/session/start", `{"sessionId":"abc"}`); rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, "abc"), nil)
	if err != nil {
		t.Fatalf("failed to dial stream: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if event := readText(t, conn); event.Type != kindStreamReady || event.SessionID != "abc" {
		t.Fatalf("expected stream.ready for abc, got %+v", event)
	}
	readGreeting(t, conn)
	waitFor(t, func() bool {
		status := sessionStatus(t, s, "abc")
		return status.Status == statusActive && !status.TurnInFlight
	})

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("failed to send audio: %v", err)
	}
	stt := factory.stt("abc")
	waitFor(t, func() bool { return len(stt.received()) == 1 })
	if got := stt.received()[0]; string(got) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("expected forwarded audio, got %v", got)
	}

	stt.recognize(speechtotext.Result{Text: "Meu nome é Maria", IsFinal: true})

	var kinds []events.Kind
	var audio []byte
	for len(kinds) == 0 || kinds[len(kinds)-1] != events.KindTurnCompleted {
		messageType, data := readMessage(t, conn)
		if messageType == websocket.BinaryMessage {
			audio = append(audio, data...)
			continue
		}
		var event wireEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("failed to decode event %q: %v", data, err)
		}
		kinds = append(kinds, event.Type)
		if event.Type == events.KindUserTranscriptFinal && event.Text != "Meu nome é Maria" {
			t.Fatalf("expected transcript text, got %q", event.Text)
		}
	}

	if string(audio) != factory.reply {
		t.Fatalf("expected reply audio %q, got %q", factory.reply, audio)
	}
	expected := []events.Kind{
		events.KindUserTranscriptFinal,
		events.KindTurnStarted,
		events.KindAssistantResponseFinalized,
		events.KindTurnCompleted,
	}
	if strings.Join(kindNames(kinds), ",") != strings.Join(kindNames(expected), ",") {
		t.Fatalf("expected %v, got %v", expected, kinds)
	}

	if rec := serve(s, http.MethodPost, "/api/session/abc/end", ""); rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
	if event := readText(t, conn); event.Type != events.KindSessionEnded {
		t.Fatalf("expected session.ended, got %+v", event)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the stream to close after the session ended")
	}
}

func TestStreamSpeaksGreetingBeforeFirstTurn(t *testing.T) {
	factory := newStubFactory(t)
	s := New(factory.build, livekit.Credentials{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	if rec := serve(s, http.MethodPost, "/api/session/start", `{"sessionId":"abc"}`); rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, "abc"), nil)
	if err != nil {
		t.Fatalf("failed to dial stream: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if event := readText(t, conn); event.Type != kindStreamReady {
		t.Fatalf("expected stream.ready first, got %+v", event)
	}
	readGreeting(t, conn)

	waitFor(t, func() bool { return sessionStatus(t, s, "abc").Status == statusActive })
	if got := sessionStatus(t, s, "abc").MessageCount; got != 1 {
		t.Fatalf("expected the greeting to be recorded, got %d messages", got)
	}
	if !factory.stt("abc").transcribing() {
		t.Fatalf("expected recognition to start with the stream")
	}
}

func TestStreamGreetingFailureEndsSession(t *testing.T) {
	factory := newStubFactory(t)
	factory.synthErr = errors.New("voice not found")
	s := New(factory.build, livekit.Credentials{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	if rec := serve(s, http.MethodPost, "/api/session/start", `{"sessionId":"abc"}`); rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, "abc"), nil)
	if err != nil {
		t.Fatalf("failed to dial stream: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if event := readText(t, conn); event.Type != kindStreamReady {
		t.Fatalf("expected stream.ready first, got %+v", event)
	}
	if event := readText(t, conn); event.Type != events.KindSessionEnded {
		t.Fatalf("expected session.ended, got %+v", event)
	}
	waitFor(t, func() bool { return s.ActiveSessions() == 0 })
}

// readGreeting expects the greeting audio followed by its finalized text.
func readGreeting(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	messageType, data := readMessage(t, conn)
	if messageType != websocket.BinaryMessage || string(data) != testGreeting {
		t.Fatalf("expected greeting audio %q, got type %d %q", testGreeting, messageType, data)
	}
	event := readText(t, conn)
	if event.Type != events.KindAssistantResponseFinalized || event.Text != testGreeting {
		t.Fatalf("expected finalized greeting, got %+v", event)
	}
}

func streamURL(srv *httptest.Server, sessionID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/session/" + sessionID + "/stream"
}

func readMessage(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	return messageType, data
}

func readText(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	messageType, data := readMessage(t, conn)
	if messageType != websocket.TextMessage {
		t.Fatalf("expected a text frame, got type %d", messageType)
	}
	var event wireEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("failed to decode event %q: %v", data, err)
	}
	return event
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func kindNames(kinds []events.Kind) []string {
	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = string(kind)
	}
	return names
}
