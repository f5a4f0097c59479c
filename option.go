package packetsock

import (
	"time"
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect tears the connection down when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// options holds the configuration for a connection.
type options struct {
	logger     Logger
	dispatcher Dispatcher

	// onError is called for transport read/write errors that are not a close.
	// Returns Disconnect to tear down, Continue to suppress the error.
	onError      func(error) ErrorAction
	onDisconnect []func(Connection, error)

	sendQueueSize int           // size of the outbound frame queue
	maxFrameSize  int           // largest accepted payload length
	writeTimeout  time.Duration // per-write deadline and Send enqueue wait
	heartbeat     time.Duration // ping interval; read deadline is twice this
}

// Option is a function that configures connection options.
type Option func(*options)

// DispatcherOption sets the receiver of decoded packets. Required.
func DispatcherOption(d Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// BufferSizeOption sets the size of the outbound frame queue.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.sendQueueSize = size
	}
}

// HeartbeatOption sets the keepalive interval. Transports that implement
// Pinger are pinged at this interval, and reads time out after twice it.
func HeartbeatOption(heartbeat time.Duration) Option {
	return func(o *options) {
		o.heartbeat = heartbeat
	}
}

// WriteTimeoutOption bounds each transport write and how long Send waits
// for room in the outbound queue.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// MessageMaxSize sets the largest frame payload accepted from the peer.
// A larger length prefix is treated as a transport error.
func MessageMaxSize(size int) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// OnErrorOption sets the transport error callback.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// OnDisconnectOption adds a teardown callback. Callbacks run once, in the
// order added, when the connection first disconnects.
func OnDisconnectOption(cb func(conn Connection, reason error)) Option {
	return func(o *options) {
		o.onDisconnect = append(o.onDisconnect, cb)
	}
}

// LoggerOption sets the logger. Defaults to slog.Default().
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
