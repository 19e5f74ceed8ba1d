package events

const (
	// KindTurnSkipped identifies a turn that did not start.
	KindTurnSkipped Kind = "turn_state.skipped"
	// KindTurnFailed identifies a turn step failure.
	KindTurnFailed Kind = "turn_state.failed"
)

// TurnSkipped marks a turn skipped before its prompt was spoken.
type TurnSkipped struct {
	Base
	Reason string
}

// NewTurnSkipped creates a turn skipped event.
func NewTurnSkipped(reason string) TurnSkipped {
	return TurnSkipped{Base: NewBase(KindTurnSkipped), Reason: reason}
}

// TurnFailed marks a failed turn step.
type TurnFailed struct {
	Base
	Stage string
	Err   error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(stage string, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), Stage: stage, Err: err}
}
