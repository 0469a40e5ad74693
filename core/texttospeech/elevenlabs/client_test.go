package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/gisa/core/texttospeech"
)

func newTestServer(t *testing.T, audio []byte, received *requestBody) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1/stream" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != DefaultOutputFormat {
			t.Errorf("expected output format %q, got %q", DefaultOutputFormat, got)
		}
		if got := r.Header.Get("xi-api-key"); got != "secret" {
			t.Errorf("expected api key header, got %q", got)
		}
		if received != nil {
			_ = json.NewDecoder(r.Body).Decode(received)
		}
		_, _ = w.Write(audio)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSynthesizeReturnsWholeBuffer(t *testing.T) {
	audio := bytes.Repeat([]byte{1, 2}, 100)
	var received requestBody
	server := newTestServer(t, audio, &received)

	client, err := NewClient(WithAPIKey("secret"), WithVoiceID("voice-1"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	out, err := client.Synthesize(context.Background(), "Olá, com quem eu falo?")
	if err != nil {
		t.Fatalf("expected audio, got %v", err)
	}
	if !bytes.Equal(out, audio) {
		t.Fatalf("expected %d bytes, got %d", len(audio), len(out))
	}
	if received.ModelID != DefaultModel {
		t.Fatalf("expected model %q, got %q", DefaultModel, received.ModelID)
	}
	if received.VoiceSettings != DefaultVoiceSettings() {
		t.Fatalf("expected default voice settings, got %+v", received.VoiceSettings)
	}
}

func TestSynthesizeStreamChunksAudio(t *testing.T) {
	audio := bytes.Repeat([]byte{7}, 250)
	server := newTestServer(t, audio, nil)

	client, err := NewClient(WithAPIKey("secret"), WithVoiceID("voice-1"), WithBaseURL(server.URL), WithChunkSize(100))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	stream := client.SynthesizeStream(context.Background(), "texto")
	sizes := []int{}
	for chunk, err := range stream {
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		sizes = append(sizes, len(chunk))
	}
	if len(sizes) != 3 || sizes[0] != 100 || sizes[2] != 50 {
		t.Fatalf("expected chunks of 100, 100, 50, got %v", sizes)
	}

	if _, err := texttospeech.Collect(stream); !errors.Is(err, texttospeech.ErrStreamConsumed) {
		t.Fatalf("expected stream to be single use, got %v", err)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client, err := NewClient(WithAPIKey("secret"), WithVoiceID("voice-1"))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), "  "); !errors.Is(err, texttospeech.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestNewClientRequiresVoice(t *testing.T) {
	t.Setenv("ELEVENLABS_VOICE_ID", "")
	if _, err := NewClient(WithAPIKey("secret")); !errors.Is(err, ErrMissingVoiceID) {
		t.Fatalf("expected ErrMissingVoiceID, got %v", err)
	}
}

func TestSynthesizeFailsOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(WithAPIKey("secret"), WithVoiceID("voice-1"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), "texto"); err == nil {
		t.Fatalf("expected error on unauthorized response")
	}
}
