package deepgram

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestSynthesizeCollectsFramesUntilFlushed(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("encoding"); got != "linear16" {
			t.Errorf("expected linear16 encoding, got %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var speak websocketMessage
		if err := conn.ReadJSON(&speak); err != nil || speak.Type != "Speak" || speak.Text != "Olá" {
			t.Errorf("expected speak message, got %+v (%v)", speak, err)
			return
		}
		var flush websocketMessage
		if err := conn.ReadJSON(&flush); err != nil || flush.Type != "Flush" {
			t.Errorf("expected flush message, got %+v (%v)", flush, err)
			return
		}

		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{3, 4})
		_ = conn.WriteJSON(websocketMessage{Type: "Flushed"})
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	client, err := NewTextToSpeechClient(
		WithAPIKey("secret"),
		WithSpeakURL("ws"+strings.TrimPrefix(server.URL, "http")),
	)
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	out, err := client.Synthesize(context.Background(), "Olá")
	if err != nil {
		t.Fatalf("expected audio, got %v", err)
	}
	if !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Fatalf("expected concatenated frames, got %v", out)
	}
}

func TestNewTextToSpeechClientRequiresAPIKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	if _, err := NewTextToSpeechClient(); err != ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
