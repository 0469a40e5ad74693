package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/koscakluka/gisa/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultBaseURL      = "https://api.elevenlabs.io"
	DefaultModel        = "eleven_turbo_v2_5"
	DefaultOutputFormat = "pcm_16000"

	// 100ms of 16kHz linear16 audio.
	defaultChunkSize = 3200
)

var (
	ErrMissingAPIKey  = errors.New("elevenlabs api key not found")
	ErrMissingVoiceID = errors.New("elevenlabs voice id not found")
)

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, Style: 0.5, UseSpeakerBoost: true}
}

type Client struct {
	apiKey       string
	voiceID      string
	model        string
	outputFormat string
	baseURL      string
	settings     VoiceSettings
	chunkSize    int
	httpClient   *http.Client
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithVoiceID(voiceID string) ClientOption {
	return func(c *Client) { c.voiceID = voiceID }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithVoiceSettings(settings VoiceSettings) ClientOption {
	return func(c *Client) { c.settings = settings }
}

func WithChunkSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// NewClient falls back to ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		model:        DefaultModel,
		outputFormat: DefaultOutputFormat,
		baseURL:      defaultBaseURL,
		settings:     DefaultVoiceSettings(),
		chunkSize:    defaultChunkSize,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		client.apiKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if client.voiceID == "" {
		client.voiceID = os.Getenv("ELEVENLABS_VOICE_ID")
	}
	if client.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if client.voiceID == "" {
		return nil, ErrMissingVoiceID
	}

	return client, nil
}

type requestBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize returns the whole reply as 16kHz linear16 PCM.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return texttospeech.Collect(c.SynthesizeStream(ctx, text))
}

// SynthesizeStream yields PCM chunks as ElevenLabs produces them. The
// request is only sent once iteration starts and the stream can be
// iterated a single time.
func (c *Client) SynthesizeStream(ctx context.Context, text string) iter.Seq2[[]byte, error] {
	return texttospeech.Once(func(yield func([]byte, error) bool) {
		ctx, span := tracer.Start(ctx, "synthesize elevenlabs speech")
		defer span.End()
		span.SetAttributes(
			attribute.String("request.model", c.model),
			attribute.Int("request.text_length", len(text)),
		)

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		if strings.TrimSpace(text) == "" {
			fail(texttospeech.ErrEmptyText)
			return
		}

		resp, err := c.send(ctx, text)
		if err != nil {
			fail(err)
			return
		}
		defer resp.Body.Close()

		total := 0
		buf := make([]byte, c.chunkSize)
		for {
			n, readErr := io.ReadFull(resp.Body, buf)
			if n > 0 {
				total += n
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				break
			}
			if readErr != nil {
				fail(fmt.Errorf("failed to read elevenlabs audio: %w", readErr))
				return
			}
		}
		span.SetAttributes(attribute.Int("response.audio_bytes", total))
		logger.Debug("elevenlabs synthesis finished", "bytes", total)
	})
}

func (c *Client) send(ctx context.Context, text string) (*http.Response, error) {
	body, err := json.Marshal(requestBody{Text: text, ModelID: c.model, VoiceSettings: c.settings})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?%s", c.baseURL, url.PathEscape(c.voiceID),
		url.Values{"output_format": {c.outputFormat}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/pcm")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, strings.TrimSpace(string(errorBody)))
	}
	return resp, nil
}
