package deepgram

import (
	"errors"
	"fmt"
	"slices"

	"github.com/koscakluka/gisa/core/audio"
)

var ErrUnsupportedEncoding = errors.New("unsupported audio encoding")

// listenRates lists the sample rates the live endpoint accepts per format.
var listenRates = map[string][]int{
	audio.EncodingLinear16.Name(): {8000, 16000, 24000, 32000, 48000},
	audio.EncodingMulaw.Name():    {8000},
	audio.EncodingALaw.Name():     {8000},
}

// checkEncoding rejects audio the live endpoint would silently misread.
func checkEncoding(encoding audio.EncodingInfo) (audio.EncodingInfo, error) {
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}
	rates, ok := listenRates[encoding.Format.Name()]
	if !ok {
		return audio.EncodingInfo{}, fmt.Errorf("%w: format %q", ErrUnsupportedEncoding, encoding.Format.Name())
	}
	if !slices.Contains(rates, encoding.SampleRate) {
		return audio.EncodingInfo{}, fmt.Errorf("%w: %s at %dHz", ErrUnsupportedEncoding, encoding.Format.Name(), encoding.SampleRate)
	}
	return encoding, nil
}
