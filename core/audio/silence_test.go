package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func frameOf(amplitude int16, samples int) []byte {
	frame := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		value := amplitude
		if i%2 == 1 {
			value = -amplitude
		}
		binary.LittleEndian.PutUint16(frame[2*i:], uint16(value))
	}
	return frame
}

func TestMeanAbsAmplitude(t *testing.T) {
	if got := MeanAbsAmplitude(frameOf(1000, 320)); got != 1000 {
		t.Fatalf("expected mean amplitude 1000, got %f", got)
	}
	if got := MeanAbsAmplitude(nil); got != 0 {
		t.Fatalf("expected zero amplitude for empty frame, got %f", got)
	}
}

func TestSilenceDetectorEndsAfterTrailingSilence(t *testing.T) {
	d := NewSilenceDetector(SilenceDetectorConfig{
		SpeechThreshold: 300,
		TrailingSilence: 2 * time.Second,
		MaxDuration:     time.Minute,
	})
	start := time.Now()
	d.Reset(start)

	if reason := d.Process(frameOf(0, 320), start.Add(5*time.Second)); reason != EndReasonNone {
		t.Fatalf("expected silence before speech not to end window, got %q", reason)
	}
	if reason := d.Process(frameOf(2000, 320), start.Add(6*time.Second)); reason != EndReasonNone {
		t.Fatalf("expected speech frame not to end window, got %q", reason)
	}
	if reason := d.Process(frameOf(10, 320), start.Add(7*time.Second)); reason != EndReasonNone {
		t.Fatalf("expected short silence not to end window, got %q", reason)
	}
	if reason := d.Process(frameOf(10, 320), start.Add(8*time.Second)); reason != EndReasonTrailingSilence {
		t.Fatalf("expected trailing silence to end window, got %q", reason)
	}
	if !d.HeardSpeech() {
		t.Fatalf("expected detector to report heard speech")
	}
}

func TestSilenceDetectorEndsAtMaxDurationWithoutSpeech(t *testing.T) {
	d := NewSilenceDetector(SilenceDetectorConfig{
		SpeechThreshold: 300,
		TrailingSilence: 2 * time.Second,
		MaxDuration:     10 * time.Second,
	})
	start := time.Now()
	d.Reset(start)

	if reason := d.Process(frameOf(0, 320), start.Add(9*time.Second)); reason != EndReasonNone {
		t.Fatalf("expected window to stay open, got %q", reason)
	}
	if reason := d.Process(frameOf(0, 320), start.Add(10*time.Second)); reason != EndReasonMaxDuration {
		t.Fatalf("expected max duration to end window, got %q", reason)
	}
	if d.HeardSpeech() {
		t.Fatalf("expected no speech to be heard")
	}
}

func TestSilenceDetectorCheckEndsWindowWithoutFrames(t *testing.T) {
	d := NewSilenceDetector(SilenceDetectorConfig{
		SpeechThreshold: 300,
		TrailingSilence: time.Second,
		MaxDuration:     10 * time.Second,
	})
	start := time.Now()

	if reason := d.Check(start.Add(time.Hour)); reason != EndReasonNone {
		t.Fatalf("expected no end before the window started, got %q", reason)
	}

	d.Reset(start)
	if reason := d.Check(start.Add(5 * time.Second)); reason != EndReasonNone {
		t.Fatalf("expected window without speech to stay open before max duration, got %q", reason)
	}
	if reason := d.Check(start.Add(10 * time.Second)); reason != EndReasonMaxDuration {
		t.Fatalf("expected max duration without frames, got %q", reason)
	}

	d.Reset(start)
	d.Process(frameOf(1000, 320), start.Add(time.Second))
	if reason := d.Check(start.Add(1500 * time.Millisecond)); reason != EndReasonNone {
		t.Fatalf("expected window to stay open within trailing silence, got %q", reason)
	}
	if reason := d.Check(start.Add(2 * time.Second)); reason != EndReasonTrailingSilence {
		t.Fatalf("expected trailing silence on the clock, got %q", reason)
	}
}
