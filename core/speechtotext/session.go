package speechtotext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-interview/core/faults"
	"github.com/koscakluka/ema-interview/core/metrics"
	"github.com/koscakluka/ema-interview/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoSession     = errors.New("no recognition session started")
	ErrSessionClosed = errors.New("recognition session closed")
)

// Session runs streaming recognition for one answer at a time over a
// reusable transport. Inbound messages are queued and processed in order by
// the session's own loop.
type Session struct {
	transport transport.Duplex
	codec     Codec
	options   SessionOptions

	mu              sync.Mutex
	current         *transcript
	lastPartialEmit time.Time
	lastOpenErr     error

	// codecMu serializes codec use between the caller and the loop.
	codecMu sync.Mutex

	inbound   chan inboundEvent
	loopOnce  sync.Once
	closeOnce sync.Once
	closeCh   chan struct{}

	now func() time.Time
}

type inboundEvent struct {
	result   Result
	closed   bool
	closeErr error
}

func NewSession(duplex transport.Duplex, codec Codec, opts ...SessionOption) *Session {
	options := defaultSessionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Session{
		transport: duplex,
		codec:     codec,
		options:   options,
		inbound:   make(chan inboundEvent, options.InboundBuffer),
		closeCh:   make(chan struct{}),
		now:       time.Now,
	}
}

// Open establishes the connection, or keeps the open one. It fails with
// [faults.ErrConnection] when no connection is up within the open timeout.
func (s *Session) Open(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "open recognition session")
	defer span.End()

	if s.isClosed() {
		return fmt.Errorf("%w: %w", faults.ErrConnection, ErrSessionClosed)
	}
	s.loopOnce.Do(func() { go s.run() })

	openCtx, cancel := context.WithTimeout(ctx, s.options.OpenTimeout)
	defer cancel()

	handler := transport.Handler{
		OnMessage: s.onMessage,
		OnClose:   func(err error) { s.enqueue(inboundEvent{closed: true, closeErr: err}) },
	}
	opened := make(chan error, 1)
	go func() { opened <- s.transport.Open(openCtx, handler) }()

	var err error
	select {
	case err = <-opened:
	case <-openCtx.Done():
		err = fmt.Errorf("no connection within %s: %w", s.options.OpenTimeout, openCtx.Err())
		go func() {
			if lateErr := <-opened; lateErr == nil {
				_ = s.transport.Close()
			}
		}()
	}
	if err != nil && !errors.Is(err, faults.ErrConnection) {
		err = fmt.Errorf("%w: failed to open recognition transport: %w", faults.ErrConnection, err)
	}

	s.mu.Lock()
	s.lastOpenErr = err
	s.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Healthy reports whether the last connection attempt succeeded. Endpoints
// that hang up after every answer are still healthy between answers.
func (s *Session) Healthy() bool {
	if s.isClosed() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOpenErr == nil
}

// SubmitFrame sends one audio frame. A start frame begins a new answer and
// resets the transcript. A failed send is retried once on a fresh
// connection before [faults.ErrTransport] is returned.
func (s *Session) SubmitFrame(ctx context.Context, frame []byte, marker FrameMarker) error {
	if s.isClosed() {
		return fmt.Errorf("%w: %w", faults.ErrTransport, ErrSessionClosed)
	}

	if marker == FrameStart {
		turnID := s.begin()
		logger.DebugContext(ctx, "recognition answer started", "turn_id", turnID)
		if !s.transport.IsOpen() {
			if err := s.Open(ctx); err != nil {
				return err
			}
		}
	}

	err := s.sendFrame(ctx, frame, marker)
	if err == nil {
		return nil
	}

	metrics.RecognitionReconnects.Inc()
	logger.WarnContext(ctx, "recognition frame send failed, reconnecting", "marker", marker.String(), "error", err)
	_ = s.transport.Close()
	if err := s.Open(ctx); err != nil {
		return fmt.Errorf("%w: reconnect after failed send: %w", faults.ErrTransport, err)
	}

	// a fresh connection needs the session parameters again, and an end
	// marker alone would close a stream that was never started
	retries := []retryFrame{{frame, marker}}
	switch marker {
	case FrameContinue:
		retries = []retryFrame{{frame, FrameStart}}
	case FrameEnd:
		retries = []retryFrame{{frame, FrameStart}, {nil, FrameEnd}}
	}
	for _, retry := range retries {
		if err := s.sendFrame(ctx, retry.frame, retry.marker); err != nil {
			if !errors.Is(err, faults.ErrTransport) {
				err = fmt.Errorf("%w: %w", faults.ErrTransport, err)
			}
			return fmt.Errorf("failed to resend %s frame after reconnect: %w", marker, err)
		}
	}
	return nil
}

type retryFrame struct {
	frame  []byte
	marker FrameMarker
}

func (s *Session) sendFrame(ctx context.Context, frame []byte, marker FrameMarker) error {
	s.codecMu.Lock()
	msgs, err := s.codec.EncodeFrame(frame, marker)
	s.codecMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", marker, err)
	}

	for _, msg := range msgs {
		if err := s.transport.Send(ctx, msg); err != nil {
			return err
		}
	}
	metrics.RecognitionFramesSent.Inc()
	return nil
}

func (s *Session) begin() string {
	turnID := uuid.NewString()

	s.mu.Lock()
	previous := s.current
	s.current = newTranscript(turnID, s.now())
	s.lastPartialEmit = time.Time{}
	s.mu.Unlock()

	if previous != nil {
		s.mu.Lock()
		previous.finalize(previous.bestText(""), nil)
		s.mu.Unlock()
	}

	s.codecMu.Lock()
	s.codec.Reset()
	s.codecMu.Unlock()
	return turnID
}

// WaitForFinal blocks until the current answer has a final transcript, the
// timeout expires or ctx is done. On timeout the best partial transcript
// becomes final and is returned together with [faults.ErrTimeout]. Repeated
// calls return the same result until the next start frame.
func (s *Session) WaitForFinal(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "wait for final transcript")
	defer span.End()

	s.mu.Lock()
	t := s.current
	s.mu.Unlock()
	if t == nil {
		return "", ErrNoSession
	}
	span.SetAttributes(attribute.String("recognition.turn_id", t.turnID))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.final:
	case <-timer.C:
		s.mu.Lock()
		text := t.bestText("")
		finalized := t.finalize(text, fmt.Errorf("%w: no final transcript within %s", faults.ErrTimeout, timeout))
		s.mu.Unlock()
		if finalized {
			metrics.RecognitionFinals.WithLabelValues(string(finalFromTimeout)).Inc()
			s.notifyFinal(t)
		}
	case <-ctx.Done():
		s.mu.Lock()
		text := t.bestText("")
		s.mu.Unlock()
		return text, ctx.Err()
	}

	s.mu.Lock()
	text, err := t.finalText, t.err
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("recognition.final_length", len([]rune(text))))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return text, err
}

// Snapshot is a point-in-time copy of the current answer's transcript.
type Snapshot struct {
	TurnID          string
	InterimText     string
	AccumulatedText string
	FinalText       string
	Active          bool
	Final           bool
	LastUpdate      time.Time
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Snapshot{}
	}
	t := s.current
	return Snapshot{
		TurnID:          t.turnID,
		InterimText:     t.interimText,
		AccumulatedText: t.accumulatedText,
		FinalText:       t.finalText,
		Active:          t.active,
		Final:           t.finalSet,
		LastUpdate:      t.lastUpdate,
	}
}

// Close stops the session loop and the transport. A pending answer is
// finalized with whatever partial text exists.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)

		s.mu.Lock()
		t := s.current
		if t != nil {
			t.finalize(t.bestText(""), fmt.Errorf("%w: %w", faults.ErrConnection, ErrSessionClosed))
		}
		s.mu.Unlock()

		if closeErr := s.transport.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close recognition transport: %w", closeErr)
		}
	})
	return err
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

// onMessage decodes on the transport's reader so the queue knows which
// results it may shed.
func (s *Session) onMessage(msg transport.Message) {
	s.codecMu.Lock()
	result, ok, err := s.codec.Decode(msg)
	s.codecMu.Unlock()
	if err != nil {
		logger.Warn("failed to decode recognition message", "error", err)
		return
	} else if !ok {
		return
	}
	s.enqueue(inboundEvent{result: result})
}

// enqueue drops interim results when the queue is full. Terminal results and
// connection closes wait for room until the session is closed.
func (s *Session) enqueue(event inboundEvent) {
	select {
	case s.inbound <- event:
		return
	case <-s.closeCh:
		return
	default:
	}

	if !event.closed && !event.result.IsError() && event.result.Status != StatusFinal {
		metrics.InboundDropped.Inc()
		logger.Warn("recognition inbound queue full, interim result dropped")
		return
	}
	select {
	case s.inbound <- event:
	case <-s.closeCh:
	}
}

func (s *Session) run() {
	var autoFinalize *time.Timer
	var autoFinalizeC <-chan time.Time
	defer func() {
		if autoFinalize != nil {
			autoFinalize.Stop()
		}
	}()

	for {
		select {
		case <-s.closeCh:
			return
		case event := <-s.inbound:
			if event.closed {
				s.handleClose(event.closeErr)
				continue
			}

			if rearm := s.handleResult(event.result); rearm {
				if autoFinalize == nil {
					autoFinalize = time.NewTimer(s.options.AutoFinalizeTimeout)
				} else {
					autoFinalize.Reset(s.options.AutoFinalizeTimeout)
				}
				autoFinalizeC = autoFinalize.C
			}
		case <-autoFinalizeC:
			autoFinalizeC = nil
			s.autoFinalize()
		}
	}
}

// handleResult applies one decoded result and reports whether the
// auto-finalize deadline should be pushed back.
func (s *Session) handleResult(result Result) (rearm bool) {
	now := s.now()

	s.mu.Lock()
	t := s.current
	if t == nil || t.finalSet {
		s.mu.Unlock()
		return false
	}

	switch {
	case result.IsError():
		err := fmt.Errorf("%w: recognition endpoint returned code %d: %s", faults.ErrTransport, result.Code, result.Message)
		t.finalize(t.bestText(""), err)
		s.mu.Unlock()

		metrics.RecognitionFinals.WithLabelValues(string(finalFromError)).Inc()
		logger.Warn("recognition endpoint error", "turn_id", t.turnID, "code", result.Code, "message", result.Message)
		s.notifyFinal(t)
		return false

	case result.Status == StatusStart:
		t.interimText, t.accumulatedText, t.lastValidText = "", "", ""
		t.active = true
		t.lastUpdate = now
		t.applyInterim(result.Text, now)
		s.mu.Unlock()
		return true

	case result.Status == StatusInterim:
		// a blank interim still means the endpoint is working on the turn
		if !t.applyInterim(result.Text, now) {
			s.mu.Unlock()
			return true
		}
		callback := s.options.PartialTranscriptionCallback
		emit := callback != nil && now.Sub(s.lastPartialEmit) >= s.options.InterimUpdateInterval
		if emit {
			s.lastPartialEmit = now
		}
		text := t.accumulatedText
		s.mu.Unlock()

		if emit {
			callback(text)
		}
		return true

	default:
		text := t.bestText(result.Text)
		source := finalFromFallback
		if trimmed := strings.TrimSpace(result.Text); trimmed != "" && trimmed == text {
			source = finalFromMessage
		}
		t.finalize(text, nil)
		s.mu.Unlock()

		metrics.RecognitionFinals.WithLabelValues(string(source)).Inc()
		logger.Debug("recognition final", "turn_id", t.turnID, "source", string(source), "length", len([]rune(text)))
		s.notifyFinal(t)
		return false
	}
}

func (s *Session) autoFinalize() {
	s.mu.Lock()
	t := s.current
	if t == nil || t.finalSet || strings.TrimSpace(t.accumulatedText) == "" {
		s.mu.Unlock()
		return
	}
	t.finalize(t.bestText(""), nil)
	s.mu.Unlock()

	metrics.RecognitionFinals.WithLabelValues(string(finalFromAutoFinalize)).Inc()
	logger.Debug("recognition auto-finalized", "turn_id", t.turnID)
	s.notifyFinal(t)
}

func (s *Session) handleClose(closeErr error) {
	if closeErr == nil {
		return
	}

	s.mu.Lock()
	t := s.current
	finalized := false
	if t != nil && t.active {
		finalized = t.finalize(t.bestText(""), fmt.Errorf("%w: recognition connection lost: %w", faults.ErrConnection, closeErr))
	}
	s.mu.Unlock()

	if finalized {
		metrics.RecognitionFinals.WithLabelValues(string(finalFromError)).Inc()
		s.notifyFinal(t)
	}
}

func (s *Session) notifyFinal(t *transcript) {
	callback := s.options.TranscriptionCallback
	if callback == nil {
		return
	}
	s.mu.Lock()
	text := t.finalText
	s.mu.Unlock()
	if text != "" {
		callback(text)
	}
}
