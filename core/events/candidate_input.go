package events

const (
	// KindListeningStarted identifies the start of answer capture.
	KindListeningStarted Kind = "candidate_input.listening_started"
	// KindCaptureEnded identifies the end of answer capture.
	KindCaptureEnded Kind = "candidate_input.capture_ended"
	// KindTranscriptFinal identifies the final transcript of an answer.
	KindTranscriptFinal Kind = "candidate_input.transcript_final"
	// KindAnswerMissing identifies an attempt that produced no usable answer.
	KindAnswerMissing Kind = "candidate_input.answer_missing"
)

// ListeningStarted marks the first frame of an answer being submitted.
type ListeningStarted struct{ Base }

// NewListeningStarted creates a listening started event.
func NewListeningStarted() ListeningStarted {
	return ListeningStarted{Base: NewBase(KindListeningStarted)}
}

// CaptureEnded marks the end frame of an answer. Reason is the silence
// detector's end reason.
type CaptureEnded struct {
	Base
	Reason string
}

// NewCaptureEnded creates a capture ended event.
func NewCaptureEnded(reason string) CaptureEnded {
	return CaptureEnded{Base: NewBase(KindCaptureEnded), Reason: reason}
}

// TranscriptFinal carries the final transcript of an answer.
type TranscriptFinal struct {
	Base
	Transcript string
}

// NewTranscriptFinal creates a final transcript event.
func NewTranscriptFinal(transcript string) TranscriptFinal {
	return TranscriptFinal{Base: NewBase(KindTranscriptFinal), Transcript: transcript}
}

// AnswerMissing marks an attempt without a usable transcript. Attempt
// counts from 1.
type AnswerMissing struct {
	Base
	Attempt int
}

// NewAnswerMissing creates an answer missing event.
func NewAnswerMissing(attempt int) AnswerMissing {
	return AnswerMissing{Base: NewBase(KindAnswerMissing), Attempt: attempt}
}
