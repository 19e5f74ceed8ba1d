package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/faults"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// URLFunc returns the address to dial. It is called for every dial so signed
// URLs can be refreshed.
type URLFunc func() (string, error)

// Websocket is a [Duplex] over a gorilla websocket connection.
type Websocket struct {
	name   string
	url    URLFunc
	header http.Header
	dialer *websocket.Dialer

	writeTimeout time.Duration

	// mu guards conn, writeMu serializes writes on it.
	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
}

type WebsocketOption func(*Websocket)

// WithHeader sets headers sent with the upgrade request.
func WithHeader(header http.Header) WebsocketOption {
	return func(w *Websocket) { w.header = header.Clone() }
}

// WithDialer replaces the default dialer.
func WithDialer(dialer *websocket.Dialer) WebsocketOption {
	return func(w *Websocket) { w.dialer = dialer }
}

// WithWriteTimeout bounds every write that has no earlier context deadline.
func WithWriteTimeout(timeout time.Duration) WebsocketOption {
	return func(w *Websocket) { w.writeTimeout = timeout }
}

// NewWebsocket creates a transport named name (used in logs and spans) that
// dials the address returned by url.
func NewWebsocket(name string, url URLFunc, opts ...WebsocketOption) *Websocket {
	w := &Websocket{
		name:         name,
		url:          url,
		dialer:       websocket.DefaultDialer,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Websocket) Open(ctx context.Context, handler Handler) error {
	ctx, span := tracer.Start(ctx, "open websocket")
	defer span.End()
	span.SetAttributes(attribute.String("transport.name", w.name))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		span.AddEvent("reused open connection")
		return nil
	}

	address, err := w.url()
	if err != nil {
		err = fmt.Errorf("%w: failed to build %s url: %w", faults.ErrConnection, w.name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	conn, _, err := w.dialer.DialContext(ctx, address, w.header)
	if err != nil {
		err = fmt.Errorf("%w: failed to open socket connection to %s: %w", faults.ErrConnection, w.name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	w.conn = conn
	go w.readMessages(conn, handler)
	logger.DebugContext(ctx, "websocket opened", "transport", w.name)
	return nil
}

func (w *Websocket) readMessages(conn *websocket.Conn, handler Handler) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if wasCurrent := w.dropConn(conn); !wasCurrent ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				// closed locally or by a normal close frame
				err = nil
			} else {
				logger.Warn("websocket read failed", "transport", w.name, "error", err)
			}
			if handler.OnClose != nil {
				handler.OnClose(err)
			}
			return
		}

		if handler.OnMessage == nil {
			continue
		}
		switch msgType {
		case websocket.TextMessage:
			handler.OnMessage(Text(msg))
		case websocket.BinaryMessage:
			handler.OnMessage(Binary(msg))
		}
	}
}

func (w *Websocket) Send(ctx context.Context, msg Message) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: %s connection is not open", faults.ErrConnection, w.name)
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline := time.Now().Add(w.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetWriteDeadline(deadline)

	msgType := websocket.TextMessage
	if msg.Binary {
		msgType = websocket.BinaryMessage
	}
	if err := conn.WriteMessage(msgType, msg.Data); err != nil {
		w.dropConn(conn)
		_ = conn.Close()
		return fmt.Errorf("%w: failed to write to %s: %w", faults.ErrTransport, w.name, err)
	}
	return nil
}

func (w *Websocket) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

func (w *Websocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()
	if conn == nil {
		return nil
	}

	w.writeMu.Lock()
	closeErr := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	w.writeMu.Unlock()

	if err := conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return errors.Join(closeErr, fmt.Errorf("failed to close %s connection: %w", w.name, err))
	}
	return nil
}

// dropConn forgets conn if it is still the current connection so the next
// Open dials again. It reports whether conn was current.
func (w *Websocket) dropConn(conn *websocket.Conn) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != conn {
		return false
	}
	w.conn = nil
	return true
}
