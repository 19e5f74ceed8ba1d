package orchestration

import "testing"

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from, to State
		allowed  bool
	}{
		{from: StateInitial, to: StateGreeting, allowed: true},
		{from: StateGreeting, to: StateQuestioning, allowed: true},
		{from: StateQuestioning, to: StateCompleted, allowed: true},
		{from: StateGreeting, to: StateError, allowed: true},
		{from: StateInitial, to: StateQuestioning, allowed: false},
		{from: StateCompleted, to: StateError, allowed: false},
		{from: StateError, to: StateGreeting, allowed: false},
	}

	for _, testCase := range testCases {
		if got := canTransition(testCase.from, testCase.to); got != testCase.allowed {
			t.Fatalf("expected %s -> %s allowed=%t, got %t", testCase.from, testCase.to, testCase.allowed, got)
		}
	}
}

func TestInvalidTransitionIsIgnored(t *testing.T) {
	o := NewOrchestrator()
	var changes int
	o.emitter = newCallbackEventEmitter(RunOptions{onStateChanged: func(_, _ State) { changes++ }})

	if o.transition(t.Context(), StateCompleted) {
		t.Fatalf("expected initial -> completed to be rejected")
	}
	if state := o.State(); state != StateInitial {
		t.Fatalf("expected state to stay initial, got %q", state)
	}
	if !o.transition(t.Context(), StateGreeting) {
		t.Fatalf("expected initial -> greeting to be accepted")
	}
	if changes != 1 {
		t.Fatalf("expected 1 state change callback, got %d", changes)
	}
}
