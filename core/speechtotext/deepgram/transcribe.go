package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/gisa/core/audio"
	"github.com/koscakluka/gisa/core/speechtotext"
	"github.com/koscakluka/gisa/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrAlreadyStreaming = errors.New("deepgram stream already started")
	ErrNotStreaming     = errors.New("deepgram stream not started")
)

func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	ctx, span := tracer.Start(ctx, "open deepgram stream", trace.WithAttributes(
		attribute.String("deepgram.model", s.model),
		attribute.String("deepgram.language", s.language),
	))
	defer span.End()

	options := speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	encoding, err := checkEncoding(options.EncodingInfo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil || s.closed {
		return ErrAlreadyStreaming
	}

	conn, err := s.connectWebsocket(ctx, encoding)
	if err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.conn = conn
	s.lastMsgTs = time.Now()
	go s.readAndProcessMessages(conn, options)
	go s.keepAlive(ctx)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return nil
}

func (s *TranscriptionClient) connectWebsocket(ctx context.Context, encoding audio.EncodingInfo) (*websocket.Conn, error) {
	listenURL, err := url.Parse(s.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", s.model)
	queryParams.Set("language", s.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("punctuate", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := s.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

// SendAudio is a no-op once the stream has been closed.
func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return nil
	}
	if s.conn == nil {
		return ErrNotStreaming
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// Close asks Deepgram to flush and closes the connection. It is safe to
// call more than once.
func (s *TranscriptionClient) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.connMu.Lock()
		defer s.connMu.Unlock()

		s.closed = true
		close(s.done)
		if s.conn == nil {
			return
		}

		if err := s.conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			closeErr = fmt.Errorf("failed to request deepgram stream close: %w", err)
		}
		if err := s.conn.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to close deepgram websocket: %w", err))
		}
		s.conn = nil
	})
	return closeErr
}

type controlMessage struct {
	Type string `json:"type"`
}

func (s *TranscriptionClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.keepAliveInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.closed || s.conn == nil {
				s.connMu.Unlock()
				return
			}
			if time.Since(s.lastMsgTs) >= s.keepAliveInterval {
				if err := s.conn.WriteJSON(controlMessage{Type: "KeepAlive"}); err != nil {
					logger.Warn("failed to send deepgram keep-alive", "error", err)
				}
				s.lastMsgTs = time.Now()
			}
			s.connMu.Unlock()
		}
	}
}

func (s *TranscriptionClient) readAndProcessMessages(conn *websocket.Conn, options speechtotext.TranscriptionOptions) {
	defer conn.Close()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			s.connMu.Lock()
			closed := s.closed
			s.connMu.Unlock()

			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				readErr := fmt.Errorf("failed to read deepgram websocket message: %w", err)
				logger.Error("deepgram stream failed", "error", readErr)
				if options.ErrorCallback != nil {
					options.ErrorCallback(readErr)
				}
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg, options)
		}
	}
}

func (s *TranscriptionClient) processMessage(msg []byte, options speechtotext.TranscriptionOptions) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			if msgResp.SpeechFinal {
				s.flushUtterance(options)
			}
			return
		}

		alternative := msgResp.Channel.Alternatives[0]
		transcript := strings.TrimSpace(alternative.Transcript)
		if msgResp.IsFinal {
			if transcript != "" {
				s.accumulatedTranscript = strings.TrimSpace(s.accumulatedTranscript + " " + transcript)
				s.lastConfidence = utils.Ptr(alternative.Confidence)
			}
			if msgResp.SpeechFinal {
				s.flushUtterance(options)
			}
			return
		}

		if transcript != "" && options.ResultCallback != nil {
			options.ResultCallback(speechtotext.Result{
				Text:       strings.TrimSpace(s.accumulatedTranscript + " " + transcript),
				Confidence: utils.Ptr(alternative.Confidence),
			})
		}

	case api.TypeUtteranceEndResponse:
		s.flushUtterance(options)
	}
}

func (s *TranscriptionClient) flushUtterance(options speechtotext.TranscriptionOptions) {
	transcript := s.accumulatedTranscript
	confidence := s.lastConfidence
	s.accumulatedTranscript = ""
	s.lastConfidence = nil

	if transcript == "" || options.ResultCallback == nil {
		return
	}
	options.ResultCallback(speechtotext.Result{Text: transcript, IsFinal: true, Confidence: confidence})
}
