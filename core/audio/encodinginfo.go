package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

// EncodingInfo describes mono PCM audio flowing into recognition and out of
// synthesis.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// BytesPerSecond is zero for unknown formats.
func (e EncodingInfo) BytesPerSecond() int {
	size := e.Format.ByteSize()
	if size <= 0 {
		return 0
	}
	return e.SampleRate * size
}

// Duration reports how long a buffer of the given size plays for.
func (e EncodingInfo) Duration(byteCount int) time.Duration {
	bps := e.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(byteCount) * time.Second / time.Duration(bps)
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case encodingFormat("mulaw"), encodingFormat("alaw"):
		return 1
	case encodingFormat("linear16"):
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
