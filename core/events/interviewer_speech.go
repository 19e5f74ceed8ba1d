package events

const (
	// KindPromptStarted identifies the start of prompt synthesis.
	KindPromptStarted Kind = "interviewer_speech.started"
	// KindPromptSpoken identifies a prompt that was fully played.
	KindPromptSpoken Kind = "interviewer_speech.spoken"
)

// PromptStarted carries the prompt about to be spoken.
type PromptStarted struct {
	Base
	Text string
}

// NewPromptStarted creates a prompt started event.
func NewPromptStarted(text string) PromptStarted {
	return PromptStarted{Base: NewBase(KindPromptStarted), Text: text}
}

// PromptSpoken carries a prompt that finished playing.
type PromptSpoken struct {
	Base
	Text string
}

// NewPromptSpoken creates a prompt spoken event.
func NewPromptSpoken(text string) PromptSpoken {
	return PromptSpoken{Base: NewBase(KindPromptSpoken), Text: text}
}
