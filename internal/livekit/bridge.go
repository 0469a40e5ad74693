package livekit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/koscakluka/gisa/core/audio"
	"github.com/koscakluka/gisa/core/events"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/hraban/opus.v2"
)

const (
	AgentName      = "GISA"
	agentTrackName = "gisa-voice"
	eventBuffer    = 64
	// Frames queued for playback before the event pump waits, about 10s.
	speechQueueFrames = 500
)

// Session is what the bridge needs from an orchestrator.
type Session interface {
	ID() string
	SendAudio(audio []byte) error
	ReportTransportError(err error)
	Subscribe(buffer int) (<-chan events.Event, func())
}

type sampleWriter interface {
	WriteSample(sample media.Sample, opts *lksdk.SampleWriteOptions) error
}

// AgentIdentity is the participant identity the bridge joins a room with.
func AgentIdentity(sessionID string) string {
	return "agent-" + sessionID
}

// Bridge carries one session's audio through a LiveKit room: remote
// microphone audio goes to recognition, synthesized speech is published as
// an Opus track and reply text as reliable data packets.
type Bridge struct {
	session      Session
	room         *lksdk.Room
	track        sampleWriter
	inputFactor  int
	outputFactor int

	speech      chan []int16
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

type BridgeOption func(*Bridge)

// WithInputEncoding sets the audio format recognition expects. Only sample
// rates that divide 48kHz are supported.
func WithInputEncoding(encodingInfo audio.EncodingInfo) BridgeOption {
	return func(b *Bridge) {
		b.inputFactor = rateFactor(encodingInfo)
	}
}

// WithOutputEncoding sets the audio format synthesis produces.
func WithOutputEncoding(encodingInfo audio.EncodingInfo) BridgeOption {
	return func(b *Bridge) {
		b.outputFactor = rateFactor(encodingInfo)
	}
}

func rateFactor(encodingInfo audio.EncodingInfo) int {
	if encodingInfo.SampleRate <= 0 || opusSampleRate%encodingInfo.SampleRate != 0 {
		return opusSampleRate / audio.DefaultSampleRate
	}
	return opusSampleRate / encodingInfo.SampleRate
}

// Join connects the session's agent participant to a room and starts
// moving audio both ways.
func Join(ctx context.Context, creds Credentials, roomName string, session Session, opts ...BridgeOption) (_ *Bridge, err error) {
	_, span := tracer.Start(ctx, "join room", trace.WithAttributes(
		attribute.String("session.id", session.ID()),
		attribute.String("room.name", roomName),
	))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, ErrMissingCredentials
	}
	if roomName == "" {
		return nil, ErrMissingRoom
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		session:      session,
		inputFactor:  opusSampleRate / audio.DefaultSampleRate,
		outputFactor: opusSampleRate / audio.DefaultSampleRate,
		speech:       make(chan []int16, speechQueueFrames),
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(b)
	}

	callback := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if track.Kind() != webrtc.RTPCodecTypeAudio || rp.Identity() == AgentIdentity(session.ID()) {
					return
				}
				logger.Info("caller audio subscribed", "session_id", session.ID(), "participant", rp.Identity(), "track", publication.SID())
				b.wg.Add(1)
				go func() {
					defer b.wg.Done()
					b.receive(runCtx, track)
				}()
			},
		},
		OnDisconnected: func() {
			logger.Info("room disconnected", "session_id", session.ID())
		},
	}

	room, err := lksdk.ConnectToRoom(creds.URL, lksdk.ConnectInfo{
		APIKey:              creds.APIKey,
		APISecret:           creds.APISecret,
		RoomName:            roomName,
		ParticipantIdentity: AgentIdentity(session.ID()),
		ParticipantName:     AgentName,
	}, callback)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to room %s: %w", roomName, err)
	}
	b.room = room

	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: opusSampleRate,
		Channels:  1,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create speech track: %w", err)
	}
	if _, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   agentTrackName,
		Source: livekit.TrackSource_MICROPHONE,
	}); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to publish speech track: %w", err)
	}
	b.track = track

	stream, unsubscribe := session.Subscribe(eventBuffer)
	b.unsubscribe = unsubscribe

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.forwardEvents(runCtx, stream)
	}()
	go func() {
		defer b.wg.Done()
		b.play(runCtx)
	}()

	logger.Info("joined room", "session_id", session.ID(), "room", roomName)
	return b, nil
}

// receive decodes one remote track until it ends. A read failure is
// reported to the session and stops only this track.
func (b *Bridge) receive(ctx context.Context, track *webrtc.TrackRemote) {
	decoder, err := opus.NewDecoder(opusSampleRate, 1)
	if err != nil {
		b.session.ReportTransportError(fmt.Errorf("failed to create opus decoder: %w", err))
		return
	}

	pcm := make([]int16, maxOpusFrameSamples)
	for ctx.Err() == nil {
		packet, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				b.session.ReportTransportError(fmt.Errorf("failed to read caller audio: %w", err))
			}
			return
		}
		if len(packet.Payload) == 0 {
			continue
		}

		n, err := decoder.Decode(packet.Payload, pcm)
		if err != nil {
			logger.Debug("dropping undecodable packet", "session_id", b.session.ID(), "error", err)
			continue
		}
		if err := b.session.SendAudio(downsample(pcm[:n], b.inputFactor)); err != nil {
			logger.Warn("failed to forward caller audio", "session_id", b.session.ID(), "error", err)
		}
	}
}

func (b *Bridge) forwardEvents(ctx context.Context, stream <-chan events.Event) {
	f := &framer{size: opusFrameSamples}
	for event := range stream {
		switch e := event.(type) {
		case events.AssistantSpeechFrame:
			for _, frame := range f.push(upsample(e.Audio, b.outputFactor)) {
				if !b.enqueue(ctx, frame) {
					return
				}
			}
		case events.AssistantResponseFinalized:
			if frame := f.flush(); frame != nil && !b.enqueue(ctx, frame) {
				return
			}
			b.publish(newResponseMessage(e))
		case events.UserTranscriptFinal:
			b.publish(newTranscriptMessage(e))
		}
	}
}

func (b *Bridge) enqueue(ctx context.Context, frame []int16) bool {
	select {
	case b.speech <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

// play encodes queued speech and writes it to the track at real-time pace.
func (b *Bridge) play(ctx context.Context) {
	encoder, err := opus.NewEncoder(opusSampleRate, 1, opus.AppVoIP)
	if err != nil {
		b.session.ReportTransportError(fmt.Errorf("failed to create opus encoder: %w", err))
		return
	}

	const frameDuration = time.Second * opusFrameSamples / opusSampleRate
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	packet := make([]byte, 4000)
	for {
		var frame []int16
		select {
		case frame = <-b.speech:
		case <-ctx.Done():
			return
		}

		n, err := encoder.Encode(frame, packet)
		if err != nil {
			logger.Warn("failed to encode speech", "session_id", b.session.ID(), "error", err)
			continue
		}
		if err := b.track.WriteSample(media.Sample{Data: append([]byte(nil), packet[:n]...), Duration: frameDuration}, nil); err != nil {
			b.session.ReportTransportError(fmt.Errorf("failed to write speech: %w", err))
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) publish(message dataMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Warn("failed to encode data message", "session_id", b.session.ID(), "error", err)
		return
	}
	if err := b.room.LocalParticipant.PublishData(payload, lksdk.WithDataPublishReliable(true)); err != nil {
		logger.Warn("failed to publish data message", "session_id", b.session.ID(), "error", err)
	}
}

// Close leaves the room and waits for the audio goroutines to stop. It is
// safe to call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
		if b.room != nil {
			b.room.Disconnect()
		}
		b.wg.Wait()
		logger.Info("left room", "session_id", b.session.ID())
	})
}
