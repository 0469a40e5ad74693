package livekit

import "encoding/binary"

const (
	opusSampleRate = 48000
	// 20ms at 48kHz mono.
	opusFrameSamples = opusSampleRate / 50
	// Largest Opus packet duration (120ms) at 48kHz.
	maxOpusFrameSamples = 5760
)

// downsample averages each group of factor samples into one little-endian
// linear16 sample. Trailing samples that do not fill a group are dropped.
func downsample(samples []int16, factor int) []byte {
	if factor < 1 {
		factor = 1
	}
	out := make([]byte, 0, len(samples)/factor*2)
	for i := 0; i+factor <= len(samples); i += factor {
		var sum int
		for _, s := range samples[i : i+factor] {
			sum += int(s)
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(int16(sum/factor)))
	}
	return out
}

// upsample decodes little-endian linear16 and linearly interpolates factor
// output samples per input sample. An odd trailing byte is ignored.
func upsample(pcm []byte, factor int) []int16 {
	if factor < 1 {
		factor = 1
	}
	n := len(pcm) / 2
	out := make([]int16, 0, n*factor)
	for i := range n {
		current := int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		next := current
		if i+1 < n {
			next = int(int16(binary.LittleEndian.Uint16(pcm[(i+1)*2:])))
		}
		for step := range factor {
			out = append(out, int16(current+(next-current)*step/factor))
		}
	}
	return out
}

// framer cuts a sample stream into fixed-size frames, holding back the
// remainder until more samples arrive or it is flushed.
type framer struct {
	size    int
	pending []int16
}

func (f *framer) push(samples []int16) [][]int16 {
	f.pending = append(f.pending, samples...)
	var frames [][]int16
	for len(f.pending) >= f.size {
		frame := make([]int16, f.size)
		copy(frame, f.pending[:f.size])
		frames = append(frames, frame)
		f.pending = f.pending[f.size:]
	}
	return frames
}

// flush pads what is left with silence into a final frame.
func (f *framer) flush() []int16 {
	if len(f.pending) == 0 {
		return nil
	}
	frame := make([]int16, f.size)
	copy(frame, f.pending)
	f.pending = f.pending[:0]
	return frame
}
