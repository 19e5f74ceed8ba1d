package events

const (
	// KindReplyGenerated identifies a generated interviewer reply.
	KindReplyGenerated Kind = "dialogue.reply_generated"
	// KindReplyFallback identifies the use of the scripted fallback reply.
	KindReplyFallback Kind = "dialogue.reply_fallback"
)

// ReplyGenerated carries the reply produced for the last answer.
type ReplyGenerated struct {
	Base
	Text          string
	InterviewOver bool
}

// NewReplyGenerated creates a reply generated event.
func NewReplyGenerated(text string, interviewOver bool) ReplyGenerated {
	return ReplyGenerated{Base: NewBase(KindReplyGenerated), Text: text, InterviewOver: interviewOver}
}

// ReplyFallback carries the generation error that caused the fallback.
type ReplyFallback struct {
	Base
	Err error
}

// NewReplyFallback creates a reply fallback event.
func NewReplyFallback(err error) ReplyFallback {
	return ReplyFallback{Base: NewBase(KindReplyFallback), Err: err}
}
