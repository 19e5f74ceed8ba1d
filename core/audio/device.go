package audio

import (
	"context"
	"errors"
)

// ErrDeviceClosed is returned by device operations after the device closed.
var ErrDeviceClosed = errors.New("audio device closed")

// InputDevice captures fixed-size frames from a microphone.
type InputDevice interface {
	OpenInput(ctx context.Context) error
	// ReadFrame blocks until the next frame is captured or ctx is done.
	ReadFrame(ctx context.Context) ([]byte, error)
	CloseInput() error
}

// OutputDevice plays raw audio chunks.
type OutputDevice interface {
	OpenOutput(ctx context.Context) error
	WriteChunk(ctx context.Context, chunk []byte) error
	// CloseOutput returns once everything written so far has been played,
	// or ctx is done.
	CloseOutput(ctx context.Context) error
}
