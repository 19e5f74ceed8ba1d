// Package faults holds the error kinds shared by the interview components.
//
// Components wrap one of these sentinels with context, callers classify with
// [errors.Is] and [Kind].
package faults

import "errors"

var (
	// ErrConnection means a transport could not be established or was lost.
	ErrConnection = errors.New("connection error")
	// ErrTimeout means a bounded wait expired (final transcript, playback).
	ErrTimeout = errors.New("timeout")
	// ErrTransport means a send or receive failed mid-session.
	ErrTransport = errors.New("transport error")
	// ErrSynthesis means speech for a prompt could not be produced or played.
	ErrSynthesis = errors.New("synthesis error")
	// ErrGeneration means the dialogue collaborator did not produce a reply.
	ErrGeneration = errors.New("generation error")
	// ErrFatal ends the interview in the error state.
	ErrFatal = errors.New("fatal error")
)

// Kind returns a short label for the most specific error kind in err, used
// for metrics and span attributes. Higher level kinds win over the
// connection and timeout errors they commonly wrap.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFatal):
		return "fatal"
	case errors.Is(err, ErrSynthesis):
		return "synthesis"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "unknown"
	}
}
