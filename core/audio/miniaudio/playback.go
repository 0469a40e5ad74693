package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/gisa/core/audio"
)

type playback struct {
	device *malgo.Device
	buffer playbackBuffer
}

func (p *playback) init(audioContext *malgo.AllocatedContext, encodingInfo audio.EncodingInfo) error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encodingInfo.SampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(encodingInfo.SampleRate) / 10
	config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			p.buffer.read(output[:int(frameCount)*malgo.SampleSizeInBytes(malgo.FormatS16)])
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	p.device = device
	return nil
}

func (p *playback) start() error {
	if p.device == nil {
		return errDeviceNotInitialized
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (p *playback) uninit() {
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.buffer.clear()
}

// playbackBuffer is the queue between the caller and the device thread.
// The zero value is empty and ready to use.
type playbackBuffer struct {
	mu      sync.Mutex
	pending []byte
	waiters []chan struct{}
}

func (b *playbackBuffer) write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, audio...)
}

// read fills out with queued audio and pads the rest with silence.
func (b *playbackBuffer) read(out []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(out, b.pending)
	clear(out[n:])
	b.pending = b.pending[n:]
	if len(b.pending) == 0 {
		b.pending = nil
		b.release()
	}
	return n
}

func (b *playbackBuffer) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	b.release()
}

// drained returns a channel that is closed once the queue is empty.
func (b *playbackBuffer) drained() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	done := make(chan struct{})
	if len(b.pending) == 0 {
		close(done)
		return done
	}
	b.waiters = append(b.waiters, done)
	return done
}

func (b *playbackBuffer) release() {
	for _, waiter := range b.waiters {
		close(waiter)
	}
	b.waiters = nil
}
