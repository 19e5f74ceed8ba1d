package deepgram

import (
	"fmt"
	"slices"

	"github.com/koscakluka/ema-interview/core/audio"
)

var listenSampleRates = []int{8000, 16000, 24000, 32000, 48000}

// listenEncoding returns the encoding query value for info. Companded
// formats are only accepted at telephone rate.
func listenEncoding(info audio.EncodingInfo) (string, error) {
	if !slices.Contains(listenSampleRates, info.SampleRate) {
		return "", fmt.Errorf("unsupported sample rate %d", info.SampleRate)
	}

	switch info.Format {
	case audio.EncodingLinear16:
		return "linear16", nil
	case audio.EncodingALaw, audio.EncodingMulaw:
		if info.SampleRate != 8000 {
			return "", fmt.Errorf("unsupported sample rate %d for %s encoding", info.SampleRate, info.Format.Name())
		}
		if info.Format == audio.EncodingALaw {
			return "alaw", nil
		}
		return "mulaw", nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", info.Format.Name())
	}
}
