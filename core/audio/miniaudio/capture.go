package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/gisa/core/audio"
)

var errDeviceNotInitialized = errors.New("device not initialized")

type capture struct {
	device *malgo.Device

	mu      sync.Mutex
	onAudio func(audio []byte)
}

func (c *capture) init(audioContext *malgo.AllocatedContext, encodingInfo audio.EncodingInfo) error {
	bytesPerFrame := malgo.SampleSizeInBytes(malgo.FormatS16)

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(encodingInfo.SampleRate)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	// 30ms periods keep recognition latency low.
	config.PeriodSizeInFrames = uint32(encodingInfo.SampleRate) * 30 / 1000
	config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(input) < n {
				return
			}
			c.mu.Lock()
			onAudio := c.onAudio
			c.mu.Unlock()
			if onAudio != nil {
				onAudio(append([]byte(nil), input[:n]...))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	c.device = device
	return nil
}

func (c *capture) start(onAudio func(audio []byte)) error {
	if c.device == nil {
		return errDeviceNotInitialized
	}
	c.mu.Lock()
	c.onAudio = onAudio
	c.mu.Unlock()
	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *capture) stop() error {
	if c.device == nil {
		return errDeviceNotInitialized
	}
	c.mu.Lock()
	c.onAudio = nil
	c.mu.Unlock()
	if !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *capture) uninit() {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
}
