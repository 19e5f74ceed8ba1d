package texttospeech

import (
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
)

type PipelineOptions struct {
	// MaxSegmentRunes bounds the length of one synthesis request.
	MaxSegmentRunes int
	// OpenTimeout bounds establishing the synthesis connection.
	OpenTimeout time.Duration
	// SegmentTimeout bounds waiting for one segment's audio to arrive.
	SegmentTimeout time.Duration
	// PlaybackTimeout bounds one wait for all audio to be received and
	// played out.
	PlaybackTimeout time.Duration
	// PlaybackRetries is how many more waits are allowed while playback is
	// still progressing.
	PlaybackRetries int
	// DrainTimeout bounds waiting for the output device to close after
	// playback was abandoned.
	DrainTimeout time.Duration
	// ReconnectPerSegment closes the connection after every segment, for
	// endpoints that serve a single request per connection.
	ReconnectPerSegment bool

	// SpeechAudioCallback is called with every received audio chunk.
	SpeechAudioCallback func(audio []byte)
	// SpeechMarkCallback is called with a segment's text once its audio has
	// been written to the output device. Each segment is reported once.
	SpeechMarkCallback func(segment string)
	// ErrorCallback is called when speaking a prompt fails.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

func defaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		MaxSegmentRunes:     DefaultMaxSegmentRunes,
		OpenTimeout:         5 * time.Second,
		SegmentTimeout:      15 * time.Second,
		PlaybackTimeout:     60 * time.Second,
		PlaybackRetries:     2,
		DrainTimeout:        2 * time.Second,
		SpeechAudioCallback: func([]byte) {},
		SpeechMarkCallback:  func(string) {},
		ErrorCallback:       func(error) {},
		EncodingInfo:        audio.GetDefaultEncodingInfo(),
	}
}

type PipelineOption func(*PipelineOptions)

func WithMaxSegmentRunes(maxRunes int) PipelineOption {
	return func(o *PipelineOptions) {
		if maxRunes > 0 {
			o.MaxSegmentRunes = maxRunes
		}
	}
}

func WithOpenTimeout(timeout time.Duration) PipelineOption {
	return func(o *PipelineOptions) {
		if timeout > 0 {
			o.OpenTimeout = timeout
		}
	}
}

func WithSegmentTimeout(timeout time.Duration) PipelineOption {
	return func(o *PipelineOptions) {
		if timeout > 0 {
			o.SegmentTimeout = timeout
		}
	}
}

// WithPlaybackTimeout sets the playback wait and how many times it may be
// repeated while audio is still moving.
func WithPlaybackTimeout(timeout time.Duration, retries int) PipelineOption {
	return func(o *PipelineOptions) {
		if timeout > 0 {
			o.PlaybackTimeout = timeout
		}
		if retries >= 0 {
			o.PlaybackRetries = retries
		}
	}
}

func WithDrainTimeout(timeout time.Duration) PipelineOption {
	return func(o *PipelineOptions) {
		if timeout > 0 {
			o.DrainTimeout = timeout
		}
	}
}

func WithReconnectPerSegment(reconnect bool) PipelineOption {
	return func(o *PipelineOptions) { o.ReconnectPerSegment = reconnect }
}

func WithSpeechAudioCallback(callback func([]byte)) PipelineOption {
	return func(o *PipelineOptions) {
		if callback != nil {
			o.SpeechAudioCallback = callback
		}
	}
}

func WithSpeechMarkCallback(callback func(string)) PipelineOption {
	return func(o *PipelineOptions) {
		if callback != nil {
			o.SpeechMarkCallback = callback
		}
	}
}

func WithErrorCallback(callback func(error)) PipelineOption {
	return func(o *PipelineOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) PipelineOption {
	return func(o *PipelineOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
