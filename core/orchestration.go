package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrAlreadyStarted       = errors.New("interview already started")
	ErrOrchestratorClosed   = errors.New("orchestrator closed")
	ErrMissingCollaborators = errors.New("orchestrator is missing a collaborator")
)

type Orchestrator struct {
	recognizer Recognizer
	speaker    Speaker
	generator  DialogueGenerator
	healthGate HealthGate
	audioInput audio.InputDevice

	options      InterviewOptions
	eventHandler func(events.Event)
	emitter      eventEmitter

	conversation *conversation

	started atomic.Bool
	closed  atomic.Bool

	mu          sync.Mutex
	cancel      context.CancelFunc
	healthDone  chan struct{}
	baseContext context.Context
	closeOnce   sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		options:     defaultInterviewOptions(),
		emitter:     noopEventEmitter,
		baseContext: context.Background(),
	}

	for _, opt := range opts {
		opt(o)
	}
	o.conversation = newConversation(o.options.SystemPrompt)

	return o
}

// Run conducts the interview until it completes, fails or ctx is done. It
// returns nil when the interview reached the completed state and an error
// wrapping [faults.ErrFatal] when it ended in the error state.
//
// Run may be called once per orchestrator. Resources are released when it
// returns.
func (o *Orchestrator) Run(ctx context.Context, opts ...RunOption) error {
	if o.closed.Load() {
		return ErrOrchestratorClosed
	}
	if err := o.validate(); err != nil {
		return err
	}
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	runOptions := RunOptions{}
	for _, opt := range opts {
		opt(&runOptions)
	}
	o.emitter = newCallbackEventEmitter(runOptions)

	ctx, span := tracer.Start(ctx, "run interview", trace.WithAttributes(
		attribute.String("interview.id", o.conversation.ID()),
	))
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.baseContext = ctx
	o.mu.Unlock()
	defer o.Close()

	hookDone := withContextCancelHook(ctx, o.Close)
	defer close(hookDone)

	metrics.InterviewsActive.Inc()
	defer metrics.InterviewsActive.Dec()

	o.conversation.start(time.Now())
	logger.InfoContext(ctx, "interview started", "interview_id", o.conversation.ID())
	o.startHealthMonitor(ctx)

	err := o.interview(ctx)
	if err == nil && o.options.PolishAnswers {
		o.polishAnswers(ctx)
	}

	outcome := string(o.conversation.State())
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if err != nil {
		outcome = "cancelled"
	}
	metrics.InterviewsTotal.WithLabelValues(outcome).Inc()
	logger.InfoContext(ctx, "interview finished", "interview_id", o.conversation.ID(), "outcome", outcome)
	return err
}

func (o *Orchestrator) validate() error {
	var missing []error
	if o.recognizer == nil {
		missing = append(missing, fmt.Errorf("%w: recognizer", ErrMissingCollaborators))
	}
	if o.speaker == nil {
		missing = append(missing, fmt.Errorf("%w: speaker", ErrMissingCollaborators))
	}
	if o.generator == nil {
		missing = append(missing, fmt.Errorf("%w: dialogue generator", ErrMissingCollaborators))
	}
	if o.audioInput == nil {
		missing = append(missing, fmt.Errorf("%w: audio input", ErrMissingCollaborators))
	}
	return errors.Join(missing...)
}

func (o *Orchestrator) startHealthMonitor(ctx context.Context) {
	if o.healthGate == nil {
		return
	}
	if checker, ok := o.healthGate.(interface{ CheckNow(context.Context) }); ok {
		checker.CheckNow(ctx)
	}

	runner, ok := o.healthGate.(interface{ Run(context.Context) error })
	if !ok {
		return
	}
	done := make(chan struct{})
	o.mu.Lock()
	o.healthDone = done
	o.mu.Unlock()
	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil {
			logger.WarnContext(ctx, "health monitor stopped", "error", err)
		}
	}()
}

// Close stops a running interview and releases the recognizer, the speaker
// and the health monitor. It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.closed.Store(true)

		o.mu.Lock()
		cancel, healthDone, ctx := o.cancel, o.healthDone, o.baseContext
		o.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if healthDone != nil {
			<-healthDone
		}

		if o.recognizer != nil {
			if err := o.recognizer.Close(); err != nil {
				recordedErr := fmt.Errorf("failed to close recognizer: %w", err)
				span := trace.SpanFromContext(ctx)
				span.RecordError(recordedErr)
				span.SetStatus(codes.Error, recordedErr.Error())
			}
		}

		if closer, ok := o.speaker.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				recordedErr := fmt.Errorf("failed to close speaker: %w", err)
				span := trace.SpanFromContext(ctx)
				span.RecordError(recordedErr)
				span.SetStatus(codes.Error, recordedErr.Error())
			}
		}
	})
}

// Snapshot returns a point-in-time copy of the interview session.
func (o *Orchestrator) Snapshot() Session {
	return o.conversation.Snapshot()
}

// Transcript returns the answered questions so far, in order.
func (o *Orchestrator) Transcript() []Exchange {
	return o.conversation.Exchanges()
}

func (o *Orchestrator) State() State {
	return o.conversation.State()
}
