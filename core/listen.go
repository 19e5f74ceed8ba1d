package orchestration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/faults"
	"github.com/koscakluka/ema-interview/core/metrics"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const captureBuffer = 16

// listen captures one answer and waits for its final transcript. A timeout
// is returned together with whatever partial transcript exists.
func (o *Orchestrator) listen(ctx context.Context) (string, error) {
	started, err := o.capture(ctx)
	if err != nil {
		return "", err
	}
	if !started {
		o.emit(events.NewTranscriptFinal(""))
		return "", fmt.Errorf("%w: no audio captured within %s", faults.ErrTimeout, o.options.Silence.MaxDuration)
	}

	start := time.Now()
	transcript, err := o.recognizer.WaitForFinal(ctx, o.options.FinalTimeout)
	metrics.StageDuration.WithLabelValues("final").Observe(time.Since(start).Seconds())
	if err != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}

	transcript = strings.TrimSpace(transcript)
	o.emit(events.NewTranscriptFinal(transcript))
	return transcript, err
}

// capture opens the microphone and forwards frames to the recognizer until
// the silence detector ends the answer. The first frame starts a new
// recognition answer, the last one carries the end marker. The window is
// also judged on the clock, so a device that stops delivering frames ends
// it too. started reports whether a start frame was sent.
func (o *Orchestrator) capture(ctx context.Context) (started bool, err error) {
	ctx, span := tracer.Start(ctx, "listen")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("capture").Observe(time.Since(start).Seconds())
	}()

	if err := o.audioInput.OpenInput(ctx); err != nil {
		return false, fmt.Errorf("failed to open audio input: %w", err)
	}
	defer func() {
		if closeErr := o.audioInput.CloseInput(); closeErr != nil {
			logger.WarnContext(ctx, "failed to close audio input", "error", closeErr)
		}
	}()

	frames := make(chan []byte, captureBuffer)
	group, groupCtx := errgroup.WithContext(ctx)
	readCtx, stopReading := context.WithCancel(groupCtx)
	defer stopReading()

	group.Go(func() error {
		return panicSafeNamedWorker("audio capture", func(ctx context.Context) error {
			for {
				frame, err := o.audioInput.ReadFrame(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				select {
				case frames <- frame:
				case <-ctx.Done():
					return nil
				}
			}
		})(readCtx)
	})

	var reason audio.EndReason
	group.Go(func() error {
		return panicSafeNamedWorker("frame forwarder", func(ctx context.Context) error {
			defer stopReading()
			detector := audio.NewSilenceDetector(o.options.Silence)
			detector.Reset(time.Now())

			var deadline <-chan time.Time
			if maxDuration := o.options.Silence.MaxDuration; maxDuration > 0 {
				timer := time.NewTimer(maxDuration)
				defer timer.Stop()
				deadline = timer.C
			}
			ticker := time.NewTicker(silencePollInterval(o.options.Silence))
			defer ticker.Stop()

			for {
				var frame []byte
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-deadline:
					reason = audio.EndReasonMaxDuration
				case now := <-ticker.C:
					if reason = detector.Check(now); reason == audio.EndReasonNone {
						continue
					}
				case frame = <-frames:
				}

				if reason != audio.EndReasonNone {
					if !started {
						return nil
					}
					return o.recognizer.SubmitFrame(ctx, nil, speechtotext.FrameEnd)
				}

				marker := speechtotext.FrameContinue
				if !started {
					marker = speechtotext.FrameStart
				}
				if ended := detector.Process(frame, time.Now()); ended != audio.EndReasonNone && started {
					reason = ended
					marker = speechtotext.FrameEnd
				}

				if err := o.recognizer.SubmitFrame(ctx, frame, marker); err != nil {
					return err
				}
				if !started {
					started = true
					o.emit(events.NewListeningStarted())
				}
				if marker == speechtotext.FrameEnd {
					return nil
				}
			}
		})(groupCtx)
	})

	if err := group.Wait(); err != nil {
		if ctx.Err() != nil {
			return started, ctx.Err()
		}
		return started, err
	}

	span.SetAttributes(attribute.String("capture.end_reason", string(reason)))
	logger.DebugContext(ctx, "answer captured", "interview_id", o.conversation.ID(), "reason", reason)
	o.emit(events.NewCaptureEnded(string(reason)))
	return started, nil
}

// silencePollInterval is how often trailing silence and the maximum
// duration are judged while no frame arrives.
func silencePollInterval(cfg audio.SilenceDetectorConfig) time.Duration {
	interval := cfg.TrailingSilence / 4
	return min(max(interval, time.Millisecond), 100*time.Millisecond)
}
