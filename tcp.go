package packetsock

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// defaultReadBufferSize is the largest chunk a TCP transport reads at once.
const defaultReadBufferSize = 4096

// tcpTransport adapts a TCP stream to Transport. Each successful read is
// one binary message, cut wherever the kernel happened to split the stream.
type tcpTransport struct {
	conn *net.TCPConn
	buf  []byte
}

// NewTCPTransport wraps conn, reading at most readBufferSize bytes per
// message. A non-positive size uses 4096.
func NewTCPTransport(conn *net.TCPConn, readBufferSize int) Transport {
	if readBufferSize <= 0 {
		readBufferSize = defaultReadBufferSize
	}
	return &tcpTransport{conn: conn, buf: make([]byte, readBufferSize)}
}

// ReadMessage returns the next chunk of the stream. A read that returns
// data together with an error yields the data; the error repeats on the
// following call. Errors other than timeouts are ErrTransportFailed.
func (t *tcpTransport) ReadMessage() (MessageType, []byte, error) {
	n, err := t.conn.Read(t.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, t.buf[:n])
		return BinaryMessage, out, nil
	}

	var netErr net.Error
	if err == nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		return 0, nil, err
	}
	return 0, nil, fmt.Errorf("%w: %w", ErrTransportFailed, err)
}

func (t *tcpTransport) WriteMessage(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

func (t *tcpTransport) SetReadDeadline(d time.Time) error  { return t.conn.SetReadDeadline(d) }
func (t *tcpTransport) SetWriteDeadline(d time.Time) error { return t.conn.SetWriteDeadline(d) }
func (t *tcpTransport) RemoteAddr() net.Addr               { return t.conn.RemoteAddr() }
func (t *tcpTransport) Close() error                       { return t.conn.Close() }
