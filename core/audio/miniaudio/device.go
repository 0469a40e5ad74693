// Package miniaudio plays and records mono PCM on the local sound card.
// It backs the console command, which talks to a session without LiveKit.
package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/gisa/core/audio"
)

var ErrUnsupportedFormat = errors.New("only linear16 audio is supported")

// Device owns a malgo context with one capture and one playback device,
// both running at the same encoding.
type Device struct {
	audioContext *malgo.AllocatedContext
	encodingInfo audio.EncodingInfo

	capture  capture
	playback playback
}

// NewDevice opens the default input and output devices. Playback starts
// immediately and stays silent until audio is queued.
func NewDevice(encodingInfo audio.EncodingInfo) (*Device, error) {
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetDefaultEncodingInfo()
	}
	if encodingInfo.Format != audio.EncodingLinear16 {
		return nil, ErrUnsupportedFormat
	}

	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	d := &Device{audioContext: audioContext, encodingInfo: encodingInfo}
	if err := d.playback.init(audioContext, encodingInfo); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.playback.start(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.capture.init(audioContext, encodingInfo); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) EncodingInfo() audio.EncodingInfo { return d.encodingInfo }

// StartCapture delivers microphone audio to onAudio from the device
// thread until StopCapture or Close.
func (d *Device) StartCapture(onAudio func(audio []byte)) error {
	return d.capture.start(onAudio)
}

func (d *Device) StopCapture() error {
	return d.capture.stop()
}

// Play queues audio behind whatever is already playing.
func (d *Device) Play(audio []byte) {
	d.playback.buffer.write(audio)
}

// ClearPlayback drops queued audio.
func (d *Device) ClearPlayback() {
	d.playback.buffer.clear()
}

// WaitPlayback blocks until queued audio has played or ctx is done.
func (d *Device) WaitPlayback(ctx context.Context) error {
	select {
	case <-d.playback.buffer.drained():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Device) Close() {
	d.capture.uninit()
	d.playback.uninit()
	if d.audioContext != nil {
		_ = d.audioContext.Uninit()
		d.audioContext.Free()
		d.audioContext = nil
	}
}
