package orchestration

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/faults"
	"github.com/koscakluka/ema-interview/core/speechtotext"
)

// stallingInput delivers its frames and then blocks until the read is
// cancelled, like a microphone that stopped producing audio.
type stallingInput struct {
	mu     sync.Mutex
	frames [][]byte
}

func (i *stallingInput) OpenInput(context.Context) error { return nil }
func (i *stallingInput) CloseInput() error               { return nil }

func (i *stallingInput) ReadFrame(ctx context.Context) ([]byte, error) {
	i.mu.Lock()
	if len(i.frames) > 0 {
		frame := i.frames[0]
		i.frames = i.frames[1:]
		i.mu.Unlock()
		return frame, nil
	}
	i.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func loudFrame() []byte {
	frame := make([]byte, 64)
	for i := 0; i < len(frame); i += 2 {
		binary.LittleEndian.PutUint16(frame[i:], uint16(int16(2000)))
	}
	return frame
}

func TestStalledInputEndsCaptureAtMaxDuration(t *testing.T) {
	recognizer := &stubRecognizer{answers: []string{"unused"}}
	o := newTestOrchestrator(&stubSpeaker{}, recognizer, &stubGenerator{},
		WithAudioInput(&stallingInput{}),
		WithSilenceDetection(audio.SilenceDetectorConfig{
			SpeechThreshold: 300,
			TrailingSilence: time.Second,
			MaxDuration:     50 * time.Millisecond,
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	answer, err := o.listen(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, faults.ErrTimeout) {
		t.Fatalf("expected timeout error for a silent device, got %v", err)
	}
	if ctx.Err() != nil || elapsed > time.Second {
		t.Fatalf("expected capture to end near max duration, took %s", elapsed)
	}
	if answer != "" {
		t.Fatalf("expected no answer, got %q", answer)
	}
	if starts := recognizer.Count(speechtotext.FrameStart); starts != 0 {
		t.Fatalf("expected no start frame without audio, got %d", starts)
	}
}

func TestStalledInputEndsAnswerAfterTrailingSilence(t *testing.T) {
	recognizer := &stubRecognizer{answers: []string{"回答"}}
	input := &stallingInput{frames: [][]byte{loudFrame(), loudFrame(), loudFrame()}}
	o := newTestOrchestrator(&stubSpeaker{}, recognizer, &stubGenerator{},
		WithAudioInput(input),
		WithSilenceDetection(audio.SilenceDetectorConfig{
			SpeechThreshold: 300,
			TrailingSilence: 30 * time.Millisecond,
			MaxDuration:     10 * time.Second,
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	answer, err := o.listen(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected answer after trailing silence, got %v", err)
	}
	if answer != "回答" {
		t.Fatalf("expected answer %q, got %q", "回答", answer)
	}
	if elapsed > time.Second {
		t.Fatalf("expected trailing silence to end capture without frames, took %s", elapsed)
	}
	if starts, ends := recognizer.Count(speechtotext.FrameStart), recognizer.Count(speechtotext.FrameEnd); starts != 1 || ends != 1 {
		t.Fatalf("expected one start and one end frame, got %d and %d", starts, ends)
	}
}

func TestSilencePollInterval(t *testing.T) {
	testCases := []struct {
		trailing time.Duration
		expected time.Duration
	}{
		{trailing: 2 * time.Second, expected: 100 * time.Millisecond},
		{trailing: 200 * time.Millisecond, expected: 50 * time.Millisecond},
		{trailing: 0, expected: time.Millisecond},
	}

	for _, testCase := range testCases {
		got := silencePollInterval(audio.SilenceDetectorConfig{TrailingSilence: testCase.trailing})
		if got != testCase.expected {
			t.Fatalf("expected poll interval %s for trailing silence %s, got %s", testCase.expected, testCase.trailing, got)
		}
	}
}
