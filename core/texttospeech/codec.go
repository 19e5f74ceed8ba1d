package texttospeech

import "github.com/koscakluka/ema-interview/core/transport"

// Frame is one decoded synthesis message.
type Frame struct {
	Audio []byte
	// Last marks the end of the audio for the current segment.
	Last bool

	// Code is non-zero when the endpoint reported an error.
	Code    int
	Message string
}

func (f Frame) IsError() bool { return f.Code != 0 }

// Codec translates segments of text into synthesis requests and the
// endpoint's responses into audio frames.
type Codec interface {
	EncodeText(text string) ([]transport.Message, error)
	// Decode returns ok=false for messages that carry neither audio nor an
	// end marker.
	Decode(msg transport.Message) (frame Frame, ok bool, err error)
}
