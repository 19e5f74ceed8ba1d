package orchestration

import (
	"context"

	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateInitial     State = "initial"
	StateGreeting    State = "greeting"
	StateQuestioning State = "questioning"
	StateCompleted   State = "completed"
	StateError       State = "error"
)

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateError
}

var allowedTransitions = map[State][]State{
	StateInitial:     {StateGreeting},
	StateGreeting:    {StateQuestioning},
	StateQuestioning: {StateCompleted},
}

func canTransition(from, to State) bool {
	if to == StateError {
		return !from.IsTerminal()
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the interview to state to. Transitions the state machine
// does not allow are logged and ignored.
func (o *Orchestrator) transition(ctx context.Context, to State) bool {
	from, ok := o.conversation.setState(to, canTransition)
	if !ok {
		logger.WarnContext(ctx, "ignored interview state transition",
			"interview_id", o.conversation.ID(), "from", from, "to", to)
		return false
	}

	trace.SpanFromContext(ctx).AddEvent("interview state changed", trace.WithAttributes(
		attribute.String("interview.state.from", string(from)),
		attribute.String("interview.state.to", string(to)),
	))
	logger.InfoContext(ctx, "interview state changed",
		"interview_id", o.conversation.ID(), "from", from, "to", to)
	metrics.StateTransitions.WithLabelValues(string(from), string(to)).Inc()
	o.emit(events.NewStateChanged(string(from), string(to)))
	return true
}
