package audio

import (
	"encoding/binary"
	"time"
)

// SilenceDetectorConfig controls when a listening window is considered over.
type SilenceDetectorConfig struct {
	// SpeechThreshold is the mean absolute linear16 amplitude above which a
	// frame counts as speech.
	SpeechThreshold float64
	// TrailingSilence ends the window once speech was heard and no speech
	// followed for this long.
	TrailingSilence time.Duration
	// MaxDuration ends the window regardless of speech.
	MaxDuration time.Duration
}

// DefaultSilenceDetectorConfig matches the thresholds used for interview
// answers captured at 16kHz.
func DefaultSilenceDetectorConfig() SilenceDetectorConfig {
	return SilenceDetectorConfig{
		SpeechThreshold: 300,
		TrailingSilence: 2 * time.Second,
		MaxDuration:     60 * time.Second,
	}
}

// EndReason says why a listening window ended.
type EndReason string

const (
	EndReasonNone            EndReason = ""
	EndReasonTrailingSilence EndReason = "trailing_silence"
	EndReasonMaxDuration     EndReason = "max_duration"
)

// SilenceDetector is an energy based end-of-answer detector over linear16
// mono frames. It is not safe for concurrent use.
type SilenceDetector struct {
	cfg SilenceDetectorConfig

	started     time.Time
	lastSpeech  time.Time
	heardSpeech bool
}

func NewSilenceDetector(cfg SilenceDetectorConfig) *SilenceDetector {
	return &SilenceDetector{cfg: cfg}
}

// Reset starts a new listening window at now.
func (d *SilenceDetector) Reset(now time.Time) {
	d.started = now
	d.lastSpeech = time.Time{}
	d.heardSpeech = false
}

// HeardSpeech reports whether any frame in the window crossed the threshold.
func (d *SilenceDetector) HeardSpeech() bool { return d.heardSpeech }

// Process feeds one frame captured at now and reports whether the window
// should end.
func (d *SilenceDetector) Process(frame []byte, now time.Time) EndReason {
	if d.started.IsZero() {
		d.started = now
	}

	if MeanAbsAmplitude(frame) > d.cfg.SpeechThreshold {
		d.heardSpeech = true
		d.lastSpeech = now
	}
	return d.Check(now)
}

// Check reports whether the window should end at now without a new frame,
// so a device that stops delivering frames still ends the window.
func (d *SilenceDetector) Check(now time.Time) EndReason {
	if d.started.IsZero() {
		return EndReasonNone
	}
	if d.cfg.MaxDuration > 0 && now.Sub(d.started) >= d.cfg.MaxDuration {
		return EndReasonMaxDuration
	}
	if d.heardSpeech && now.Sub(d.lastSpeech) >= d.cfg.TrailingSilence {
		return EndReasonTrailingSilence
	}
	return EndReasonNone
}

// MeanAbsAmplitude returns the mean absolute sample value of a little endian
// linear16 frame. A trailing odd byte is ignored.
func MeanAbsAmplitude(frame []byte) float64 {
	samples := len(frame) / 2
	if samples == 0 {
		return 0
	}

	var sum int64
	for i := 0; i < samples; i++ {
		s := int64(int16(binary.LittleEndian.Uint16(frame[2*i:])))
		if s < 0 {
			s = -s
		}
		sum += s
	}
	return float64(sum) / float64(samples)
}
