package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = EncodingLinear16

	// DefaultFrameBytes is the capture frame size the recognition endpoint
	// expects: 20ms of 16kHz mono linear16.
	DefaultFrameBytes = 640
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}

	return 0
}

// BytesFor returns how many bytes of mono audio cover d.
func (e EncodingInfo) BytesFor(d time.Duration) int {
	return int(d.Seconds() * float64(e.SampleRate) * float64(e.Format.ByteSize()))
}

// Duration returns how long n bytes of mono audio play for.
func (e EncodingInfo) Duration(n int) time.Duration {
	if e.SampleRate <= 0 || e.Format.ByteSize() <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(e.SampleRate*e.Format.ByteSize()) * float64(time.Second))
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
