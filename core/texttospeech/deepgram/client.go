package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/gisa/core/audio"
	"github.com/koscakluka/gisa/core/texttospeech"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const scopeName = "github.com/koscakluka/gisa/core/texttospeech/deepgram"

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

const (
	defaultSpeakURL = "wss://api.deepgram.com/v1/speak"
	DefaultVoice    = "aura-2-thalia-en"
)

var ErrMissingAPIKey = errors.New("deepgram api key not found")

// TextToSpeechClient synthesizes speech over Deepgram's streaming speak
// endpoint, one connection per reply.
type TextToSpeechClient struct {
	apiKey       string
	voice        string
	speakURL     string
	encodingInfo audio.EncodingInfo
	dialer       *websocket.Dialer
}

type ClientOption func(*TextToSpeechClient)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *TextToSpeechClient) { c.apiKey = apiKey }
}

func WithVoice(voice string) ClientOption {
	return func(c *TextToSpeechClient) { c.voice = voice }
}

func WithSpeakURL(speakURL string) ClientOption {
	return func(c *TextToSpeechClient) { c.speakURL = speakURL }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *TextToSpeechClient) {
		if !encodingInfo.IsZero() {
			c.encodingInfo = encodingInfo
		}
	}
}

func NewTextToSpeechClient(opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		voice:        DefaultVoice,
		speakURL:     defaultSpeakURL,
		encodingInfo: audio.GetDefaultEncodingInfo(),
		dialer:       websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		client.apiKey = apiKey
	}

	return client, nil
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return texttospeech.Collect(c.SynthesizeStream(ctx, text))
}

// SynthesizeStream sends the text followed by a flush and yields audio
// frames until Deepgram confirms the flush.
func (c *TextToSpeechClient) SynthesizeStream(ctx context.Context, text string) iter.Seq2[[]byte, error] {
	return texttospeech.Once(func(yield func([]byte, error) bool) {
		ctx, span := tracer.Start(ctx, "synthesize deepgram speech")
		defer span.End()
		span.SetAttributes(attribute.String("request.voice", c.voice))

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		if strings.TrimSpace(text) == "" {
			fail(texttospeech.ErrEmptyText)
			return
		}

		conn, err := c.connectWebsocket(ctx)
		if err != nil {
			fail(fmt.Errorf("failed to open websocket: %w", err))
			return
		}
		defer conn.Close()

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		if err := conn.WriteJSON(websocketMessage{Type: "Speak", Text: text}); err != nil {
			fail(fmt.Errorf("failed to send text to deepgram: %w", err))
			return
		}
		if err := conn.WriteJSON(flushMsg); err != nil {
			fail(fmt.Errorf("failed to flush deepgram buffer: %w", err))
			return
		}

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				fail(fmt.Errorf("failed to read deepgram speech: %w", err))
				return
			}

			switch msgType {
			case websocket.BinaryMessage:
				if !yield(msg, nil) {
					_ = conn.WriteJSON(closeMsg)
					return
				}
			case websocket.TextMessage:
				var parsedMsg websocketMessage
				if err := json.Unmarshal(msg, &parsedMsg); err != nil {
					logger.Warn("failed to unmarshal deepgram message", "error", err)
					continue
				}
				switch parsedMsg.Type {
				case "Flushed":
					_ = conn.WriteJSON(closeMsg)
					return
				case "Warning", "Error":
					logger.Warn("deepgram speak reported a problem", "message", string(msg))
				}
			}
		}
	})
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context) (*websocket.Conn, error) {
	speakURL, err := url.Parse(c.speakURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}

	urlValues := speakURL.Query()
	urlValues.Set("encoding", c.encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(c.encodingInfo.SampleRate))
	urlValues.Set("model", c.voice)
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	conn, _, err := c.dialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}
