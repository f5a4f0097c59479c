// Package packetsock turns a chunked, message-oriented byte stream such as a
// WebSocket into an ordered sequence of length-prefixed packets, and frames
// outbound packets the same way.
//
// Every frame on the wire is a 4-byte little-endian payload length followed
// by that many payload bytes. A zero length never completes a frame.
package packetsock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/packetsock/buffer"
)

// Errors returned by connection operations.
var (
	// ErrInvalidDispatcher is returned when no dispatcher is provided.
	ErrInvalidDispatcher = errors.New("packetsock: invalid dispatcher")
	// ErrInvalidTransport is returned when the transport is nil.
	ErrInvalidTransport = errors.New("packetsock: invalid transport")
	// ErrMessageTooLarge is returned when a length prefix exceeds the maximum frame size.
	ErrMessageTooLarge = errors.New("packetsock: message too large")
	// ErrUnsupportedPacket is the panic value for sending anything but a *BinaryPacket.
	ErrUnsupportedPacket = errors.New("packetsock: only binary packets can be sent")
)

// Teardown reasons.
var (
	// ErrConnectionClosed is the reason recorded when the transport closes.
	ErrConnectionClosed = errors.New("packetsock: connection closed")
	// ErrConnectionRemoved is the reason recorded for Disconnect.
	ErrConnectionRemoved = errors.New("packetsock: connection removed")
)

// Connection is a live session bound to one transport.
type Connection interface {
	ID() string
	IP() string
	Port() int
	// Send frames the packet and queues it for the transport. It reports
	// false when the connection is gone or the queue stays full; it never
	// blocks longer than the write timeout.
	Send(p Packet) bool
	// Disconnect removes the connection. Safe to call more than once.
	Disconnect()
	Disconnected() bool
}

// Default configuration values.
const (
	defaultBufferSize   = 256
	defaultMaxFrameSize = 16 * 1024 * 1024
	defaultWriteTimeout = 10 * time.Second
	defaultHeartbeat    = 30 * time.Second

	// compactThreshold is how many consumed bytes the receive buffer may
	// hold before they are discarded while a partial frame is pending.
	compactThreshold = 64 * 1024
)

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.dispatcher == nil {
		return ErrInvalidDispatcher
	}

	if opts.sendQueueSize <= 0 {
		opts.sendQueueSize = defaultBufferSize
	}

	if opts.maxFrameSize <= 0 {
		opts.maxFrameSize = defaultMaxFrameSize
	}

	if opts.writeTimeout <= 0 {
		opts.writeTimeout = defaultWriteTimeout
	}

	if opts.heartbeat <= 0 {
		opts.heartbeat = defaultHeartbeat
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Disconnect }
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

// StreamConnection binds a Connection to one Transport.
//
// Received bytes are appended to a private buffer under bufMu and complete
// frames are cut from it in arrival order. Each batch of frames takes a
// dispatch turn before bufMu is released and waits for that turn outside
// it, so packets reach the Dispatcher in wire order and never concurrently
// while nothing blocks under the buffer lock.
type StreamConnection struct {
	id        string
	ip        string
	port      int
	transport Transport
	logger    Logger
	opts      options

	bufMu    sync.Mutex
	buf      *buffer.ByteBuffer
	nextTurn uint64 // guarded by bufMu

	turnMu   sync.Mutex
	turnCond *sync.Cond
	serving  uint64 // guarded by turnMu

	sendQueue    chan []byte
	disconnected atomic.Bool
	done         chan struct{}
	reason       error
}

// NewStreamConnection wraps t. It applies and validates the options.
func NewStreamConnection(t Transport, opt ...Option) (*StreamConnection, error) {
	if t == nil {
		return nil, ErrInvalidTransport
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}

	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	ip, port := splitAddr(t.RemoteAddr())
	c := &StreamConnection{
		id:        uuid.NewString(),
		ip:        ip,
		port:      port,
		transport: t,
		logger:    opts.logger,
		opts:      opts,
		buf:       buffer.New(),
		sendQueue: make(chan []byte, opts.sendQueueSize),
		done:      make(chan struct{}),
	}
	c.turnCond = sync.NewCond(&c.turnMu)
	return c, nil
}

func splitAddr(addr net.Addr) (string, int) {
	switch a := addr.(type) {
	case nil:
		return "", 0
	case *net.TCPAddr:
		return a.IP.String(), a.Port
	}

	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	p, _ := strconv.Atoi(port)
	return host, p
}

// ID returns the connection's unique identifier.
func (c *StreamConnection) ID() string { return c.id }

// IP returns the remote host.
func (c *StreamConnection) IP() string { return c.ip }

// Port returns the remote port.
func (c *StreamConnection) Port() int { return c.port }

// Disconnected reports whether the connection has been torn down.
func (c *StreamConnection) Disconnected() bool {
	return c.disconnected.Load()
}

// Done is closed when the connection is torn down.
func (c *StreamConnection) Done() <-chan struct{} {
	return c.done
}

// Reason returns why the connection was torn down, or nil while connected.
func (c *StreamConnection) Reason() error {
	select {
	case <-c.done:
		return c.reason
	default:
		return nil
	}
}

// OnBinaryMessage appends data to the receive buffer and dispatches every
// frame it completes. It is ignored once the connection is disconnected.
// Concurrent callers are dispatched in the order they took the buffer lock.
func (c *StreamConnection) OnBinaryMessage(data []byte) {
	if c.disconnected.Load() {
		return
	}
	bytesReceived.Add(float64(len(data)))

	c.bufMu.Lock()
	if c.disconnected.Load() {
		c.buf.Clear()
		c.bufMu.Unlock()
		return
	}
	c.buf.WriteBytes(data)
	frames, err := c.extractFrames()
	turn := c.nextTurn
	c.nextTurn++
	c.bufMu.Unlock()

	c.dispatchFrames(turn, frames)

	if err != nil {
		c.logger.Warn("invalid frame", "id", c.id, "addr", c.transport.RemoteAddr(), "error", err)
		c.OnError(err)
	}
}

// extractFrames cuts every complete frame from the receive buffer.
// Must hold bufMu.
func (c *StreamConnection) extractFrames() ([]*buffer.ByteBuffer, error) {
	var frames []*buffer.ByteBuffer
	var err error

	for c.buf.Remaining() >= frameHeaderSize {
		n, _ := c.buf.PeekUint32()
		if n == 0 {
			break
		}
		if uint64(n) > uint64(c.opts.maxFrameSize) {
			err = fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, n)
			break
		}
		if c.buf.Remaining() < int(n)+frameHeaderSize {
			break
		}

		_, _ = c.buf.ReadUint32()
		payload, _ := c.buf.ReadBytes(int(n))
		frames = append(frames, buffer.Wrap(payload))
	}

	if c.buf.Remaining() == 0 {
		c.buf.Clear()
	} else if c.buf.Position() >= compactThreshold {
		c.buf.Compact()
	}

	framesReceived.Add(float64(len(frames)))
	return frames, err
}

// dispatchFrames waits for turn, hands frames to the dispatcher in order
// and passes the turn on.
func (c *StreamConnection) dispatchFrames(turn uint64, frames []*buffer.ByteBuffer) {
	c.turnMu.Lock()
	for c.serving != turn {
		c.turnCond.Wait()
	}
	c.turnMu.Unlock()

	defer func() {
		c.turnMu.Lock()
		c.serving++
		c.turnCond.Broadcast()
		c.turnMu.Unlock()
	}()

	for _, f := range frames {
		if c.disconnected.Load() {
			return
		}
		c.dispatch(NewBinaryPacket(c, f))
	}
}

func (c *StreamConnection) dispatch(p *BinaryPacket) {
	defer func() {
		if r := recover(); r != nil {
			dispatchErrors.WithLabelValues("panic").Inc()
			c.logger.Error("dispatcher panic", "id", c.id, "panic", r)
		}
	}()
	c.opts.dispatcher.Dispatch(p)
}

// OnClose handles a transport close event.
func (c *StreamConnection) OnClose() {
	c.disconnect(ErrConnectionClosed)
}

// OnError handles a transport error event.
func (c *StreamConnection) OnError(err error) {
	if err == nil {
		err = ErrConnectionClosed
	}
	c.disconnect(err)
}

// Disconnect removes the connection from service.
func (c *StreamConnection) Disconnect() {
	c.disconnect(ErrConnectionRemoved)
}

// disconnect runs teardown exactly once, whichever trigger fires first.
func (c *StreamConnection) disconnect(reason error) {
	if c.disconnected.Swap(true) {
		return
	}

	c.reason = reason
	close(c.done)
	_ = c.transport.Close()

	c.bufMu.Lock()
	c.buf.Clear()
	c.bufMu.Unlock()

	for _, cb := range c.opts.onDisconnect {
		cb(c, reason)
	}

	if errors.Is(reason, ErrConnectionClosed) || errors.Is(reason, ErrConnectionRemoved) {
		c.logger.Info("connection closed", "id", c.id, "addr", c.transport.RemoteAddr(), "reason", reason)
	} else {
		c.logger.Info("connection closed with error", "id", c.id, "addr", c.transport.RemoteAddr(), "error", reason)
	}
}

// Send frames p and queues it for transmission.
//
// Send panics with ErrUnsupportedPacket if p is not a *BinaryPacket.
// It returns false without touching the transport once disconnected, and
// false if the queue stays full for the write timeout.
func (c *StreamConnection) Send(p Packet) bool {
	bp, ok := p.(*BinaryPacket)
	if !ok || bp == nil || bp.Buffer == nil {
		panic(fmt.Errorf("%w: got %T", ErrUnsupportedPacket, p))
	}

	if c.disconnected.Load() {
		sendFailures.WithLabelValues("disconnected").Inc()
		return false
	}

	frame := EncodeFrame(bp.Buffer.Bytes())

	select {
	case c.sendQueue <- frame:
		return c.queued()
	default:
	}

	timer := time.NewTimer(c.opts.writeTimeout)
	defer timer.Stop()

	select {
	case c.sendQueue <- frame:
		return c.queued()
	case <-c.done:
		sendFailures.WithLabelValues("disconnected").Inc()
		return false
	case <-timer.C:
		sendFailures.WithLabelValues("queue_full").Inc()
		c.logger.Warn("send queue full", "id", c.id, "addr", c.transport.RemoteAddr())
		return false
	}
}

// queued reports whether a frame just placed on the send queue can still be
// written, i.e. teardown did not start before it was queued.
func (c *StreamConnection) queued() bool {
	if c.disconnected.Load() {
		sendFailures.WithLabelValues("disconnected").Inc()
		return false
	}
	return true
}

// Run pumps the transport until the connection is torn down or ctx is
// canceled. Teardown has always run when Run returns. A close by either
// side returns nil.
func (c *StreamConnection) Run(ctx context.Context) error {
	c.logger.Info("connection established", "id", c.id, "addr", c.transport.RemoteAddr())
	c.logger.Debug("connection options", "id", c.id,
		"buffer_size", c.opts.sendQueueSize,
		"max_frame_size", c.opts.maxFrameSize,
		"write_timeout", c.opts.writeTimeout,
		"heartbeat", c.opts.heartbeat)

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop()
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	group.Go(func() error {
		select {
		case <-child.Done():
			c.disconnect(child.Err())
			return child.Err()
		case <-c.done:
			return ErrConnectionClosed
		}
	})

	_ = group.Wait()
	c.disconnect(ErrConnectionClosed)
	<-c.done

	if err := ctx.Err(); err != nil {
		return err
	}
	if errors.Is(c.reason, ErrConnectionClosed) || errors.Is(c.reason, ErrConnectionRemoved) {
		return nil
	}
	return c.reason
}

// readLoop feeds transport messages into OnBinaryMessage until teardown.
func (c *StreamConnection) readLoop() error {
	for {
		if c.disconnected.Load() {
			return ErrConnectionClosed
		}

		_ = c.transport.SetReadDeadline(time.Now().Add(c.opts.heartbeat * 2))

		mt, data, err := c.transport.ReadMessage()
		if err != nil {
			if c.disconnected.Load() {
				return ErrConnectionClosed
			}
			if isCloseEvent(err) {
				c.OnClose()
				return ErrConnectionClosed
			}

			c.logger.Debug("read error", "id", c.id, "addr", c.transport.RemoteAddr(), "error", err)
			// A failed transport cannot be read again, whatever onError says.
			if c.opts.onError(err) == Disconnect || errors.Is(err, ErrTransportFailed) {
				c.OnError(err)
				return err
			}
			continue
		}

		if mt != BinaryMessage {
			continue
		}
		c.OnBinaryMessage(data)
	}
}

// writeLoop drains the send queue onto the transport and sends keepalives.
func (c *StreamConnection) writeLoop(ctx context.Context) error {
	var ping <-chan time.Time
	pinger, ok := c.transport.(Pinger)
	if ok {
		ticker := time.NewTicker(c.opts.heartbeat)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-c.sendQueue:
			if err := c.write(frame); err != nil {
				return err
			}
		case <-ping:
			if err := c.writeFailed(pinger.Ping()); err != nil {
				return err
			}
		}
	}
}

// write sends one frame with a deadline.
func (c *StreamConnection) write(frame []byte) error {
	_ = c.transport.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))

	err := c.transport.WriteMessage(frame)
	if err == nil {
		framesSent.Inc()
		bytesSent.Add(float64(len(frame)))
		return nil
	}
	return c.writeFailed(err)
}

// writeFailed classifies a write error. A write to an already closed
// transport is dropped; the close itself is reported by the read side.
func (c *StreamConnection) writeFailed(err error) error {
	if err == nil {
		return nil
	}

	if isClosedError(err) {
		sendFailures.WithLabelValues("closed").Inc()
		c.logger.Debug("write on closed transport", "id", c.id, "addr", c.transport.RemoteAddr())
		return nil
	}

	sendFailures.WithLabelValues("transport").Inc()
	c.logger.Debug("write error", "id", c.id, "addr", c.transport.RemoteAddr(), "error", err)
	if c.opts.onError(err) == Disconnect {
		c.OnError(err)
		return err
	}
	return nil
}
