package speechtotext

import "github.com/koscakluka/gisa/core/audio"

// Result is one recognition update. Interim results replace each other;
// a final result closes an utterance.
type Result struct {
	Text       string
	IsFinal    bool
	Confidence *float64
}

type TranscriptionOptions struct {
	ResultCallback func(result Result)
	ErrorCallback  func(err error)

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithResultCallback(callback func(result Result)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ResultCallback = callback
	}
}

// WithErrorCallback receives transport failures after streaming started.
func WithErrorCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ErrorCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
