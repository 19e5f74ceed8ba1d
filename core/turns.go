package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/faults"
	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type turnOutcome string

const (
	turnAnswered turnOutcome = "answered"
	turnEmpty    turnOutcome = "empty"
	turnSkipped  turnOutcome = "skipped"
	turnFailed   turnOutcome = "failed"
)

// interview runs the turn loop. Turns are strictly sequential: a prompt is
// fully played before capture starts, and the final transcript is known
// before the dialogue generator is called.
func (o *Orchestrator) interview(ctx context.Context) error {
	o.transition(ctx, StateGreeting)
	o.conversation.Append(llms.AssistantMessage(greetingPrompt))

	question, prompt := greetingPrompt, greetingPrompt
	failures := 0
	countFailure := func(stage string, err error) error {
		failures++
		o.recordFailure(ctx, stage, err)
		if failures <= o.options.MaxFailures {
			return nil
		}
		fatal := fmt.Errorf("%w: %d consecutive failed turns: %w", faults.ErrFatal, failures, err)
		o.transition(ctx, StateError)
		return fatal
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := o.ensureReady(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.Turns.WithLabelValues(string(turnSkipped)).Inc()
			o.emit(events.NewTurnSkipped(err.Error()))
			if err := countFailure("ready", err); err != nil {
				return err
			}
			if err := sleepContext(ctx, o.options.TurnRetryDelay); err != nil {
				return err
			}
			continue
		}

		answer, askedAt, err := o.askAndListen(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.Turns.WithLabelValues(string(turnFailed)).Inc()
			if err := countFailure("turn", err); err != nil {
				return err
			}
			if err := sleepContext(ctx, o.options.TurnRetryDelay); err != nil {
				return err
			}
			continue
		}

		if answer == "" {
			metrics.Turns.WithLabelValues(string(turnEmpty)).Inc()
			err := fmt.Errorf("%w: no answer after %d attempts", faults.ErrTimeout, o.options.MaxRetries)
			if err := countFailure("listen", err); err != nil {
				return err
			}
			prompt = apologyFor(o.conversation.State())
			continue
		}

		metrics.Turns.WithLabelValues(string(turnAnswered)).Inc()
		failures = 0
		o.conversation.RecordExchange(Exchange{
			Question:   question,
			Answer:     answer,
			AskedAt:    askedAt,
			AnsweredAt: time.Now(),
		})
		o.conversation.Append(llms.UserMessage(answer))

		if o.conversation.State() == StateGreeting {
			o.transition(ctx, StateQuestioning)
		} else if asked := o.conversation.QuestionCount(); asked >= o.options.TotalQuestions {
			logger.InfoContext(ctx, "question limit reached",
				"interview_id", o.conversation.ID(), "questions", asked)
			return o.finish(ctx, "")
		}

		reply, err := o.generateReply(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.emit(events.NewReplyFallback(err))
			if err := countFailure("generate", err); err != nil {
				return err
			}
			prompt = fallbackReply
			continue
		}

		text := cleanReplyForSpeech(reply.Text)
		over := isInterviewOver(reply.Text)
		if reply.InterviewOver != nil {
			over = *reply.InterviewOver
		}
		if strings.TrimSpace(reply.Text) != "" {
			o.conversation.Append(llms.AssistantMessage(reply.Text))
		}
		o.emit(events.NewReplyGenerated(text, over))

		if over {
			return o.finish(ctx, text)
		}
		o.conversation.questionAsked()
		question, prompt = text, text
	}
}

// ensureReady checks the health gate and opens recognition before a turn.
func (o *Orchestrator) ensureReady(ctx context.Context) error {
	if o.healthGate != nil && !o.healthGate.Ready() {
		return fmt.Errorf("%w: required components are not healthy", faults.ErrConnection)
	}

	var err error
	for attempt := 1; attempt <= o.options.OpenAttempts; attempt++ {
		if err = o.recognizer.Open(ctx); err == nil {
			return nil
		}
		logger.WarnContext(ctx, "failed to open recognition",
			"interview_id", o.conversation.ID(), "attempt", attempt, "error", err)
		if attempt < o.options.OpenAttempts {
			if sleepErr := sleepContext(ctx, o.options.OpenRetryDelay); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return fmt.Errorf("recognition did not open after %d attempts: %w", o.options.OpenAttempts, err)
}

// askAndListen speaks prompt and listens for an answer, at most MaxRetries
// times. It returns an empty answer once every attempt came back empty.
func (o *Orchestrator) askAndListen(ctx context.Context, prompt string) (string, time.Time, error) {
	var askedAt time.Time
	for attempt := 1; attempt <= o.options.MaxRetries; attempt++ {
		if err := o.say(ctx, prompt); err != nil {
			return "", time.Time{}, err
		}
		if o.options.AnswerCue != "" {
			if err := o.say(ctx, o.options.AnswerCue); err != nil {
				return "", time.Time{}, err
			}
		}
		askedAt = time.Now()

		answer, err := o.listen(ctx)
		if err != nil && !errors.Is(err, faults.ErrTimeout) {
			return "", time.Time{}, err
		}
		if answer != "" {
			return answer, askedAt, nil
		}

		logger.WarnContext(ctx, "no answer heard",
			"interview_id", o.conversation.ID(), "attempt", attempt, "max_attempts", o.options.MaxRetries)
		o.emit(events.NewAnswerMissing(attempt))
	}
	return "", askedAt, nil
}

// say speaks text and returns once it was fully played.
func (o *Orchestrator) say(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "speak", trace.WithAttributes(
		attribute.Int("speech.runes", utf8.RuneCountInString(text)),
	))
	defer span.End()

	o.emit(events.NewPromptStarted(text))
	start := time.Now()
	err := o.speaker.Speak(ctx, text)
	metrics.StageDuration.WithLabelValues("speak").Observe(time.Since(start).Seconds())
	if err != nil {
		err = fmt.Errorf("failed to speak prompt: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	o.emit(events.NewPromptSpoken(text))
	return nil
}

func (o *Orchestrator) generateReply(ctx context.Context) (llms.Reply, error) {
	ctx, span := tracer.Start(ctx, "generate reply")
	defer span.End()

	history := o.conversation.History()
	span.SetAttributes(attribute.Int("dialogue.history_length", len(history)))

	var lastErr error
	for attempt := 1; attempt <= o.options.GenerationAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, backoffFor(o.options.GenerationBackoff, attempt-2)); err != nil {
				return llms.Reply{}, err
			}
		}

		start := time.Now()
		reply, err := o.generator.Generate(ctx, history)
		metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
		if err == nil && strings.TrimSpace(reply.Text) == "" && (reply.InterviewOver == nil || !*reply.InterviewOver) {
			err = fmt.Errorf("%w: empty reply", faults.ErrGeneration)
		}
		if err == nil {
			metrics.GenerationAttempts.WithLabelValues("success").Inc()
			return reply, nil
		}

		metrics.GenerationAttempts.WithLabelValues("failure").Inc()
		if ctx.Err() != nil {
			return llms.Reply{}, ctx.Err()
		}
		lastErr = err
		logger.WarnContext(ctx, "reply generation failed",
			"interview_id", o.conversation.ID(), "attempt", attempt, "error", err)
	}

	err := lastErr
	if !errors.Is(err, faults.ErrGeneration) {
		err = fmt.Errorf("%w: %w", faults.ErrGeneration, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return llms.Reply{}, err
}

// finish speaks the closing reply, if any, and the goodbye prompt, then
// completes the interview. Failing to speak them does not fail the interview.
func (o *Orchestrator) finish(ctx context.Context, reply string) error {
	for _, text := range []string{reply, goodbyePrompt} {
		if text == "" {
			continue
		}
		if err := o.say(ctx, text); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.recordFailure(ctx, "speak", err)
		}
	}
	o.transition(ctx, StateCompleted)
	return nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, stage string, err error) {
	metrics.Errors.WithLabelValues(stage, faults.Kind(err)).Inc()
	trace.SpanFromContext(ctx).RecordError(err)
	logger.WarnContext(ctx, "interview step failed",
		"interview_id", o.conversation.ID(), "stage", stage, "error", err)
	o.emit(events.NewTurnFailed(stage, err))
}

// polishAnswers rewrites every recorded answer through the dialogue
// generator. The raw answer is kept when polishing fails.
func (o *Orchestrator) polishAnswers(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "polish answers")
	defer span.End()

	for i, exchange := range o.conversation.Exchanges() {
		if ctx.Err() != nil {
			return
		}

		polished := exchange.Answer
		reply, err := o.generator.Generate(ctx, []llms.Message{llms.UserMessage(polishPrompt(exchange.Answer))})
		if err != nil {
			logger.WarnContext(ctx, "failed to polish answer", "interview_id", o.conversation.ID(), "error", err)
		} else if text := cleanPolishedAnswer(reply.Text); text != "" {
			polished = text
		}
		o.conversation.setPolishedAnswer(i, polished)
	}
}
