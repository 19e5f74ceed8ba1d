package speechtotext

import (
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
)

type SessionOptions struct {
	// OpenTimeout bounds establishing the connection.
	OpenTimeout time.Duration
	// AutoFinalizeTimeout is how long the session waits without interim
	// updates before it finalizes on its own.
	AutoFinalizeTimeout time.Duration
	// InterimUpdateInterval throttles PartialTranscriptionCallback.
	InterimUpdateInterval time.Duration
	// InboundBuffer is the capacity of the inbound message queue.
	InboundBuffer int

	PartialTranscriptionCallback func(transcript string)
	TranscriptionCallback        func(transcript string)

	EncodingInfo audio.EncodingInfo
}

func defaultSessionOptions() SessionOptions {
	return SessionOptions{
		OpenTimeout:           3 * time.Second,
		AutoFinalizeTimeout:   3 * time.Second,
		InterimUpdateInterval: 300 * time.Millisecond,
		InboundBuffer:         64,
		EncodingInfo:          audio.GetDefaultEncodingInfo(),
	}
}

type SessionOption func(*SessionOptions)

func WithOpenTimeout(timeout time.Duration) SessionOption {
	return func(o *SessionOptions) {
		if timeout > 0 {
			o.OpenTimeout = timeout
		}
	}
}

func WithAutoFinalizeTimeout(timeout time.Duration) SessionOption {
	return func(o *SessionOptions) {
		if timeout > 0 {
			o.AutoFinalizeTimeout = timeout
		}
	}
}

func WithInterimUpdateInterval(interval time.Duration) SessionOption {
	return func(o *SessionOptions) { o.InterimUpdateInterval = interval }
}

func WithInboundBuffer(size int) SessionOption {
	return func(o *SessionOptions) {
		if size > 0 {
			o.InboundBuffer = size
		}
	}
}

// WithPartialTranscriptionCallback is called with the best transcript so far,
// at most once per interim update interval.
func WithPartialTranscriptionCallback(callback func(transcript string)) SessionOption {
	return func(o *SessionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

// WithTranscriptionCallback is called once per answer with the final
// transcript, whichever way it was decided.
func WithTranscriptionCallback(callback func(transcript string)) SessionOption {
	return func(o *SessionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SessionOption {
	return func(o *SessionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
