package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/speechtotext"
)

type OrchestratorOption func(*Orchestrator)

// Recognizer is a streaming recognition session that collects one answer at
// a time.
type Recognizer interface {
	Open(ctx context.Context) error
	SubmitFrame(ctx context.Context, frame []byte, marker speechtotext.FrameMarker) error
	WaitForFinal(ctx context.Context, timeout time.Duration) (string, error)
	Close() error
}

func WithRecognizer(recognizer Recognizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.recognizer = recognizer
	}
}

// Speaker synthesizes and plays text. Speak returns only once the audio was
// fully played.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

func WithSpeaker(speaker Speaker) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speaker = speaker
	}
}

// DialogueGenerator produces the next interviewer reply from the ordered
// conversation history.
type DialogueGenerator interface {
	Generate(ctx context.Context, history []llms.Message) (llms.Reply, error)
}

func WithDialogueGenerator(generator DialogueGenerator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.generator = generator
	}
}

// HealthGate reports whether every required component may be used. If the
// gate also has `CheckNow(ctx)` it is checked once before the first turn, and
// if it has `Run(ctx) error` it runs for the lifetime of the interview.
type HealthGate interface {
	Ready() bool
}

func WithHealthGate(gate HealthGate) OrchestratorOption {
	return func(o *Orchestrator) {
		o.healthGate = gate
	}
}

func WithAudioInput(input audio.InputDevice) OrchestratorOption {
	return func(o *Orchestrator) {
		o.audioInput = input
	}
}

type InterviewOptions struct {
	// TotalQuestions ends the interview once this many generated questions
	// were answered.
	TotalQuestions int
	// MaxFailures is the number of consecutive failed turns tolerated before
	// the interview ends in the error state.
	MaxFailures int
	// MaxRetries is the number of times a prompt is asked before the apology
	// prompt replaces it.
	MaxRetries int
	// FinalTimeout bounds the wait for the final transcript after capture.
	FinalTimeout time.Duration
	// TurnRetryDelay is the pause after a skipped or failed turn.
	TurnRetryDelay time.Duration
	// OpenAttempts bounds the attempts to open recognition before a turn,
	// OpenRetryDelay is the pause between them.
	OpenAttempts   int
	OpenRetryDelay time.Duration

	// GenerationAttempts bounds the calls to the dialogue generator per answer,
	// GenerationBackoff holds the pauses between them. The last pause repeats.
	GenerationAttempts int
	GenerationBackoff  []time.Duration

	SystemPrompt  string
	AnswerCue     string
	PolishAnswers bool

	Silence audio.SilenceDetectorConfig
}

func defaultInterviewOptions() InterviewOptions {
	return InterviewOptions{
		TotalQuestions:     3,
		MaxFailures:        2,
		MaxRetries:         3,
		FinalTimeout:       20 * time.Second,
		TurnRetryDelay:     5 * time.Second,
		OpenAttempts:       3,
		OpenRetryDelay:     500 * time.Millisecond,
		GenerationAttempts: 3,
		GenerationBackoff:  []time.Duration{2 * time.Second, 3 * time.Second},
		SystemPrompt:       defaultSystemPrompt,
		AnswerCue:          answerCue,
		Silence:            audio.DefaultSilenceDetectorConfig(),
	}
}

func WithTotalQuestions(total int) OrchestratorOption {
	return func(o *Orchestrator) {
		if total > 0 {
			o.options.TotalQuestions = total
		}
	}
}

func WithMaxFailures(failures int) OrchestratorOption {
	return func(o *Orchestrator) {
		if failures >= 0 {
			o.options.MaxFailures = failures
		}
	}
}

func WithMaxRetries(retries int) OrchestratorOption {
	return func(o *Orchestrator) {
		if retries > 0 {
			o.options.MaxRetries = retries
		}
	}
}

func WithFinalTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.options.FinalTimeout = timeout
		}
	}
}

func WithTurnRetryDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if delay >= 0 {
			o.options.TurnRetryDelay = delay
		}
	}
}

func WithOpenAttempts(attempts int, delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.options.OpenAttempts = attempts
		}
		if delay >= 0 {
			o.options.OpenRetryDelay = delay
		}
	}
}

// WithGenerationRetry sets how many times the dialogue generator is called
// for one answer and the pauses between the calls.
func WithGenerationRetry(attempts int, backoff ...time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.options.GenerationAttempts = attempts
		}
		if len(backoff) > 0 {
			o.options.GenerationBackoff = backoff
		}
	}
}

func WithSystemPrompt(prompt string) OrchestratorOption {
	return func(o *Orchestrator) {
		if prompt != "" {
			o.options.SystemPrompt = prompt
		}
	}
}

// WithAnswerCue replaces the short prompt spoken right before listening. An
// empty cue disables it.
func WithAnswerCue(cue string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.options.AnswerCue = cue
	}
}

// WithAnswerPolishing rewrites every recorded answer through the dialogue
// generator once the interview is over.
func WithAnswerPolishing(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.options.PolishAnswers = enabled
	}
}

func WithSilenceDetection(cfg audio.SilenceDetectorConfig) OrchestratorOption {
	return func(o *Orchestrator) {
		o.options.Silence = cfg
	}
}

// WithEventHandler receives every interview event. It is called
// synchronously from the interview goroutines and must not block.
func WithEventHandler(handler func(events.Event)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.eventHandler = handler
	}
}

type RunOptions struct {
	onStateChanged  func(from, to State)
	onPrompt        func(prompt string)
	onTranscription func(transcript string)
	onReply         func(reply string)
}

type RunOption func(*RunOptions)

// WithStateChangedCallback is called for every interview state transition.
func WithStateChangedCallback(callback func(from, to State)) RunOption {
	return func(o *RunOptions) {
		o.onStateChanged = callback
	}
}

// WithPromptCallback is called with every prompt once it was fully played.
func WithPromptCallback(callback func(prompt string)) RunOption {
	return func(o *RunOptions) {
		o.onPrompt = callback
	}
}

// WithTranscriptionCallback is called with the final transcript of every
// answer, empty ones included.
func WithTranscriptionCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onTranscription = callback
	}
}

// WithReplyCallback is called with every generated reply before it is
// spoken.
func WithReplyCallback(callback func(reply string)) RunOption {
	return func(o *RunOptions) {
		o.onReply = callback
	}
}
