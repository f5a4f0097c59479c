package packetsock

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType classifies a message read from a Transport.
type MessageType int

const (
	// BinaryMessage carries raw frame bytes.
	BinaryMessage MessageType = iota + 1
	// TextMessage is ignored by StreamConnection.
	TextMessage
)

var (
	// ErrTransportClosed is returned by transports written to after close.
	ErrTransportClosed = errors.New("packetsock: transport closed")
	// ErrTransportFailed wraps read errors after which the transport cannot
	// be read again. StreamConnection tears down on it regardless of the
	// error callback.
	ErrTransportFailed = errors.New("packetsock: transport failed")
)

// Transport is a message-oriented channel under one connection.
// A message is an arbitrary chunk of the byte stream; it need not align
// with frame boundaries.
//
// One goroutine reads and one goroutine writes at a time. Close may be
// called concurrently with both.
type Transport interface {
	ReadMessage() (MessageType, []byte, error)
	WriteMessage(data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

// Pinger is implemented by transports that have a protocol keepalive.
type Pinger interface {
	Ping() error
}

// isClosedError reports whether err means the transport was already closed.
func isClosedError(err error) bool {
	return errors.Is(err, ErrTransportClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent)
}

// isCloseEvent reports whether a read error is an orderly or peer close
// rather than a transport fault.
func isCloseEvent(err error) bool {
	if errors.Is(err, io.EOF) || isClosedError(err) {
		return true
	}
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}
