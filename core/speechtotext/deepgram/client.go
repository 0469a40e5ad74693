package deepgram

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultListenURL         = "wss://api.deepgram.com/v1/listen"
	defaultModel             = "nova-2"
	defaultLanguage          = "pt-BR"
	defaultKeepAliveInterval = 8 * time.Second
)

var ErrMissingAPIKey = errors.New("deepgram api key not found")

// TranscriptionClient streams audio to Deepgram's live endpoint. One client
// serves one session.
type TranscriptionClient struct {
	apiKey            string
	listenURL         string
	model             string
	language          string
	keepAliveInterval time.Duration
	dialer            *websocket.Dialer

	conn      *websocket.Conn
	connMu    sync.Mutex
	lastMsgTs time.Time
	closed    bool
	closeOnce sync.Once
	done      chan struct{}

	accumulatedTranscript string
	lastConfidence        *float64
}

type ClientOption func(*TranscriptionClient)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) { c.language = language }
}

func WithListenURL(listenURL string) ClientOption {
	return func(c *TranscriptionClient) { c.listenURL = listenURL }
}

// WithKeepAliveInterval ignores non-positive intervals.
func WithKeepAliveInterval(interval time.Duration) ClientOption {
	return func(c *TranscriptionClient) {
		if interval > 0 {
			c.keepAliveInterval = interval
		}
	}
}

// NewTranscriptionClient falls back to DEEPGRAM_API_KEY when no key is given.
func NewTranscriptionClient(opts ...ClientOption) (*TranscriptionClient, error) {
	client := &TranscriptionClient{
		listenURL:         defaultListenURL,
		model:             defaultModel,
		language:          defaultLanguage,
		keepAliveInterval: defaultKeepAliveInterval,
		dialer:            websocket.DefaultDialer,
		done:              make(chan struct{}),
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
	if client.model == "" || client.language == "" {
		return nil, fmt.Errorf("deepgram model and language are required")
	}

	return client, nil
}
