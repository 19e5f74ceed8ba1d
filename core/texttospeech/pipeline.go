package texttospeech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/faults"
	"github.com/koscakluka/ema-interview/core/metrics"
	"github.com/koscakluka/ema-interview/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var errWaitExpired = errors.New("wait expired")

// Pipeline speaks prompts: it synthesizes text segment by segment over a
// duplex connection and plays the audio on an output device.
type Pipeline struct {
	transport transport.Duplex
	codec     Codec
	output    audio.OutputDevice
	options   PipelineOptions

	// speakMu keeps one Speak in flight at a time.
	speakMu sync.Mutex

	mu          sync.Mutex
	active      *request
	lastOpenErr error
}

// request is the state of one Speak call.
type request struct {
	queue   *playbackQueue
	written atomic.Int64

	mu         sync.Mutex
	segmentEnd chan error
}

func (r *request) beginSegment() <-chan error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segmentEnd = make(chan error, 1)
	return r.segmentEnd
}

func (r *request) receive(audio []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.segmentEnd == nil {
		return false
	}
	r.queue.AddAudio(audio)
	return true
}

func (r *request) endSegment(err error) {
	r.mu.Lock()
	segmentEnd := r.segmentEnd
	r.segmentEnd = nil
	r.mu.Unlock()
	if segmentEnd != nil {
		segmentEnd <- err
	}
}

func (r *request) progress() int64 {
	return int64(r.queue.Progress()) + r.written.Load()
}

func NewPipeline(duplex transport.Duplex, codec Codec, output audio.OutputDevice, opts ...PipelineOption) *Pipeline {
	options := defaultPipelineOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Pipeline{
		transport: duplex,
		codec:     codec,
		output:    output,
		options:   options,
	}
}

// Open establishes the synthesis connection, or keeps the open one.
func (p *Pipeline) Open(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "open synthesis connection")
	defer span.End()

	openCtx, cancel := context.WithTimeout(ctx, p.options.OpenTimeout)
	defer cancel()

	err := p.transport.Open(openCtx, transport.Handler{
		OnMessage: p.onMessage,
		OnClose:   p.onClose,
	})
	if err != nil && !errors.Is(err, faults.ErrConnection) {
		err = fmt.Errorf("%w: failed to open synthesis transport: %w", faults.ErrConnection, err)
	}

	p.mu.Lock()
	p.lastOpenErr = err
	p.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Healthy reports whether the last connection attempt succeeded.
func (p *Pipeline) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOpenErr == nil
}

func (p *Pipeline) Close() error {
	if err := p.transport.Close(); err != nil {
		return fmt.Errorf("failed to close synthesis transport: %w", err)
	}
	return nil
}

// Speak synthesizes and plays text. It returns once all audio has been
// received and the output device has been closed, so the caller can rely on
// the speaker being silent. Concurrent calls are serialized.
func (p *Pipeline) Speak(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()

	segments := SplitSegments(text, p.options.MaxSegmentRunes)
	if len(segments) == 0 {
		return nil
	}
	span.SetAttributes(attribute.Int("synthesis.segments", len(segments)))

	p.speakMu.Lock()
	defer p.speakMu.Unlock()

	err := p.speak(ctx, segments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.options.ErrorCallback(err)
	}
	return err
}

func (p *Pipeline) speak(ctx context.Context, segments []string) error {
	if err := p.ensureOpen(ctx); err != nil {
		return err
	}

	req := &request{queue: newPlaybackQueue()}
	p.setActive(req)
	defer p.setActive(nil)

	synthesisCtx, cancelSynthesis := context.WithCancel(ctx)
	defer cancelSynthesis()
	received := make(chan struct{})
	var synthesisErr error
	go func() {
		defer close(received)
		defer req.queue.AllAudioLoaded()
		synthesisErr = p.synthesize(synthesisCtx, req, segments)
	}()

	// playback outlives ctx so buffered audio is drained when synthesis fails
	playbackCtx, cancelPlayback := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelPlayback()
	deviceClosed := make(chan struct{})
	var playbackErr error
	go func() {
		defer close(deviceClosed)
		playbackErr = p.play(playbackCtx, req)
	}()

	if err := p.awaitPlayback(ctx, req, received, deviceClosed); err != nil {
		req.queue.Stop()
		cancelSynthesis()
		cancelPlayback()
		<-received
		select {
		case <-deviceClosed:
		case <-time.After(p.options.DrainTimeout):
			err = errors.Join(err, fmt.Errorf("%w: output device did not close within %s", faults.ErrTimeout, p.options.DrainTimeout))
		}
		return err
	}

	return errors.Join(synthesisErr, playbackErr)
}

func (p *Pipeline) ensureOpen(ctx context.Context) error {
	if p.transport.IsOpen() {
		return nil
	}

	err := p.Open(ctx)
	if err == nil {
		return nil
	}
	logger.WarnContext(ctx, "synthesis connection failed, retrying", "error", err)
	_ = p.transport.Close()
	if err := p.Open(ctx); err != nil {
		return fmt.Errorf("%w: %w", faults.ErrSynthesis, err)
	}
	return nil
}

// awaitPlayback waits for both the received and device closed signals. An
// expired wait is repeated while playback keeps making progress.
func (p *Pipeline) awaitPlayback(ctx context.Context, req *request, received, deviceClosed <-chan struct{}) error {
	lastProgress := req.progress()
	for attempt := 0; ; attempt++ {
		err := waitForSignals(ctx, p.options.PlaybackTimeout, received, deviceClosed)
		if !errors.Is(err, errWaitExpired) {
			return err
		}

		progress := req.progress()
		if attempt >= p.options.PlaybackRetries || progress == lastProgress {
			return fmt.Errorf("%w: playback did not finish within %s", faults.ErrTimeout, p.options.PlaybackTimeout)
		}
		lastProgress = progress
		logger.WarnContext(ctx, "playback still in progress, waiting again", "attempt", attempt+1)
	}
}

func waitForSignals(ctx context.Context, timeout time.Duration, signals ...<-chan struct{}) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for _, signal := range signals {
		select {
		case <-signal:
		case <-timer.C:
			return errWaitExpired
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pipeline) synthesize(ctx context.Context, req *request, segments []string) error {
	for i, segment := range segments {
		if err := p.synthesizeSegment(ctx, req, segment); err != nil {
			logger.WarnContext(ctx, "abandoning remaining segments",
				"segment", i, "remaining", len(segments)-i, "error", err)
			return err
		}
		req.queue.Mark(segment)
		metrics.SynthesisSegments.Inc()
	}
	return nil
}

func (p *Pipeline) synthesizeSegment(ctx context.Context, req *request, segment string) error {
	ctx, span := tracer.Start(ctx, "synthesize segment")
	defer span.End()

	if err := p.ensureOpen(ctx); err != nil {
		return err
	}

	msgs, err := p.codec.EncodeText(segment)
	if err != nil {
		return fmt.Errorf("%w: failed to encode segment: %w", faults.ErrSynthesis, err)
	}

	ended := req.beginSegment()
	if err := p.send(ctx, msgs); err != nil {
		logger.WarnContext(ctx, "synthesis request failed, reconnecting", "error", err)
		_ = p.transport.Close()
		if err := p.Open(ctx); err != nil {
			req.endSegment(nil)
			return fmt.Errorf("%w: reconnect after failed request: %w", faults.ErrSynthesis, err)
		}
		if err := p.send(ctx, msgs); err != nil {
			req.endSegment(nil)
			return fmt.Errorf("%w: failed to resend segment: %w", faults.ErrSynthesis, err)
		}
	}

	timer := time.NewTimer(p.options.SegmentTimeout)
	defer timer.Stop()

	select {
	case err := <-ended:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	case <-timer.C:
		req.endSegment(nil)
		return fmt.Errorf("%w: no audio for segment within %s", faults.ErrSynthesis, p.options.SegmentTimeout)
	case <-ctx.Done():
		req.endSegment(nil)
		return ctx.Err()
	}

	if p.options.ReconnectPerSegment {
		_ = p.transport.Close()
	}
	return nil
}

func (p *Pipeline) send(ctx context.Context, msgs []transport.Message) error {
	for _, msg := range msgs {
		if err := p.transport.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// play writes queued audio to the output device until the terminal marker
// and then closes the device.
func (p *Pipeline) play(ctx context.Context, req *request) error {
	ctx, span := tracer.Start(ctx, "play speech")
	defer span.End()

	if err := p.output.OpenOutput(ctx); err != nil {
		err = fmt.Errorf("%w: failed to open output device: %w", faults.ErrSynthesis, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var playErr error
	for item := range req.queue.Items {
		if item.isMark() {
			p.options.SpeechMarkCallback(item.Mark)
			continue
		}
		if err := p.output.WriteChunk(ctx, item.Audio); err != nil {
			playErr = fmt.Errorf("%w: failed to write audio: %w", faults.ErrSynthesis, err)
			break
		}
		req.written.Add(int64(len(item.Audio)))
		metrics.PlaybackBytes.Add(float64(len(item.Audio)))
	}

	if err := p.output.CloseOutput(ctx); err != nil {
		playErr = errors.Join(playErr, fmt.Errorf("%w: failed to close output device: %w", faults.ErrSynthesis, err))
	}
	if playErr != nil {
		span.RecordError(playErr)
		span.SetStatus(codes.Error, playErr.Error())
	}
	return playErr
}

func (p *Pipeline) setActive(req *request) {
	p.mu.Lock()
	p.active = req
	p.mu.Unlock()
}

func (p *Pipeline) onMessage(msg transport.Message) {
	p.mu.Lock()
	req := p.active
	p.mu.Unlock()
	if req == nil {
		return
	}

	frame, ok, err := p.codec.Decode(msg)
	if err != nil {
		logger.Warn("failed to decode synthesis message", "error", err)
		return
	} else if !ok {
		return
	}

	if frame.IsError() {
		req.endSegment(fmt.Errorf("%w: synthesis endpoint returned code %d: %s", faults.ErrSynthesis, frame.Code, frame.Message))
		return
	}
	if len(frame.Audio) > 0 && req.receive(frame.Audio) {
		p.options.SpeechAudioCallback(frame.Audio)
	}
	if frame.Last {
		req.endSegment(nil)
	}
}

func (p *Pipeline) onClose(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	req := p.active
	p.mu.Unlock()
	if req != nil {
		req.endSegment(fmt.Errorf("%w: synthesis connection lost: %w", faults.ErrSynthesis, err))
	}
}
