package speechtotext

import (
	"strings"
	"time"
	"unicode"
)

// finalSource records which path decided an answer's final transcript.
type finalSource string

const (
	finalFromMessage      finalSource = "message"
	finalFromFallback     finalSource = "fallback"
	finalFromAutoFinalize finalSource = "auto_finalize"
	finalFromTimeout      finalSource = "timeout"
	finalFromError        finalSource = "error"
)

// transcript is the per-answer recognition state. It is guarded by the
// owning session's mutex.
type transcript struct {
	turnID string

	interimText     string
	accumulatedText string
	lastValidText   string
	finalText       string

	active     bool
	finalSet   bool
	lastUpdate time.Time
	err        error

	// final is closed once finalText is decided.
	final chan struct{}
}

func newTranscript(turnID string, now time.Time) *transcript {
	return &transcript{
		turnID:     turnID,
		lastUpdate: now,
		final:      make(chan struct{}),
	}
}

// applyInterim records an interim result and reports whether it carried
// usable text.
func (t *transcript) applyInterim(text string, now time.Time) bool {
	t.active = true
	if strings.TrimSpace(text) == "" {
		return false
	}

	t.interimText = text
	t.accumulatedText = text
	if !isBlankOrPunctuation(text) {
		t.lastValidText = text
	}
	t.lastUpdate = now
	return true
}

// bestText resolves the transcript with a single precedence list: the final
// message's own text, the accumulated text, the interim text, and, when the
// pick so far is empty or only punctuation, the last valid interim.
func (t *transcript) bestText(messageText string) string {
	candidate := strings.TrimSpace(messageText)
	if candidate == "" {
		candidate = strings.TrimSpace(t.accumulatedText)
	}
	if candidate == "" {
		candidate = strings.TrimSpace(t.interimText)
	}
	if isBlankOrPunctuation(candidate) {
		candidate = strings.TrimSpace(t.lastValidText)
	}
	return candidate
}

// finalize decides the final transcript once. It reports false when the
// final was already decided.
func (t *transcript) finalize(text string, err error) bool {
	if t.finalSet {
		return false
	}
	t.finalText = text
	t.finalSet = true
	t.active = false
	t.err = err
	close(t.final)
	return true
}

func isBlankOrPunctuation(text string) bool {
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
