package events

// KindStateChanged identifies interview state transitions.
const KindStateChanged Kind = "interview_state.changed"

// StateChanged carries an interview state transition.
type StateChanged struct {
	Base
	From string
	To   string
}

// NewStateChanged creates a state changed event.
func NewStateChanged(from, to string) StateChanged {
	return StateChanged{Base: NewBase(KindStateChanged), From: from, To: to}
}
