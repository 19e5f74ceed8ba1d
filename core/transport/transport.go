// Package transport provides the duplex message stream used by the
// recognition and synthesis components. Framing of the payload is left to the
// codecs that sit on top of it.
package transport

import "context"

// Message is one inbound or outbound frame.
type Message struct {
	Binary bool
	Data   []byte
}

func Text(data []byte) Message   { return Message{Data: data} }
func Binary(data []byte) Message { return Message{Binary: true, Data: data} }

// Handler receives inbound traffic for an open connection. Both callbacks run
// on the connection's read goroutine and must not block for long.
type Handler struct {
	OnMessage func(Message)
	// OnClose is called once when the connection ends. err is nil for a
	// normal closure.
	OnClose func(err error)
}

// Duplex is an opaque bidirectional message stream.
type Duplex interface {
	// Open connects, or keeps the existing connection when it is still open.
	Open(ctx context.Context, handler Handler) error
	Send(ctx context.Context, msg Message) error
	Close() error
	IsOpen() bool
}
