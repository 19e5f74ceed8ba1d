package speechtotext

import "github.com/koscakluka/ema-interview/core/transport"

// FrameMarker tags an audio frame with its position in an answer.
type FrameMarker int

const (
	FrameStart FrameMarker = iota
	FrameContinue
	FrameEnd
)

func (m FrameMarker) String() string {
	switch m {
	case FrameStart:
		return "start"
	case FrameContinue:
		return "continue"
	case FrameEnd:
		return "end"
	}
	return "unknown"
}

// Status is the recognition phase a [Result] reports.
type Status int

const (
	StatusStart Status = iota
	StatusInterim
	StatusFinal
)

// Result is one decoded recognition message. Text is the whole transcript
// recognized so far in the session, not only the newest fragment.
type Result struct {
	Status Status
	Text   string

	// Code is non-zero when the endpoint reported an error.
	Code    int
	Message string
}

func (r Result) IsError() bool { return r.Code != 0 }

// Codec translates between audio frames and a recognition endpoint's wire
// format.
type Codec interface {
	// Reset drops any per-answer decoding state. It is called for every
	// start frame.
	Reset()
	EncodeFrame(frame []byte, marker FrameMarker) ([]transport.Message, error)
	// Decode returns ok=false for messages that carry no recognition result.
	Decode(msg transport.Message) (result Result, ok bool, err error)
}
