package packetsock

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Handler serves one accepted transport. Handle owns t and blocks for the
// life of the connection.
type Handler interface {
	Handle(ctx context.Context, t Transport)
}

// TransportHandlerFunc adapts a function to Handler.
type TransportHandlerFunc func(ctx context.Context, t Transport)

// Handle calls f(ctx, t).
func (f TransportHandlerFunc) Handle(ctx context.Context, t Transport) { f(ctx, t) }

// Server accepts raw TCP connections and serves each one as a chunked
// transport. It tracks the transports it hands out so that shutdown can
// drain them.
type Server struct {
	listener        *net.TCPListener
	logger          Logger
	shutdownTimeout time.Duration
	readBufferSize  int

	mu        sync.Mutex
	shutdown  bool
	active    map[Transport]struct{}
	handlers  sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{} // closed by Close; cuts any drain short
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerShutdownTimeoutOption sets how long Serve waits for running
// handlers to return after its context is canceled. Transports still open
// when it expires are closed. Default is 0 (close them immediately).
//
// New connections are refused as soon as shutdown starts.
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// ServerReadBufferOption sets the per-read chunk size of accepted transports.
func ServerReadBufferOption(size int) ServerOption {
	return func(s *Server) {
		s.readBufferSize = size
	}
}

// New creates a TCP server bound to addr.
//
// Example:
//
//	addr, _ := net.ResolveTCPAddr("tcp", ":8080")
//	server, err := packetsock.New(addr,
//	    packetsock.ServerShutdownTimeoutOption(5*time.Second),
//	)
func New(addr *net.TCPAddr, opts ...ServerOption) (*Server, error) {
	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:       listener,
		logger:         defaultLogger(),
		readBufferSize: defaultReadBufferSize,
		active:         make(map[Transport]struct{}),
		closed:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Serve accepts connections and runs handler for each on its own goroutine,
// passing ctx through. It blocks until ctx is canceled, Close is called or
// accept fails.
//
// On shutdown Serve stops accepting, waits up to the shutdown timeout for
// handlers to return, then closes the transports that remain.
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	s.logger.Info("server started", "addr", s.listener.Addr())

	go func() {
		select {
		case <-ctx.Done():
		case <-s.closed:
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// unblock AcceptTCP
		_ = s.listener.SetDeadline(time.Now())
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if s.isShutdown() {
				s.drain()
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				return ctx.Err()
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		t := NewTCPTransport(conn, s.readBufferSize)
		if !s.track(t) {
			_ = t.Close()
			continue
		}

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			defer s.untrack(t)
			handler.Handle(ctx, t)
		}()
	}
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// track registers t unless shutdown has started.
func (s *Server) track(t Transport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.active[t] = struct{}{}
	return true
}

func (s *Server) untrack(t Transport) {
	s.mu.Lock()
	delete(s.active, t)
	s.mu.Unlock()
}

// drain waits for handlers to finish within the shutdown timeout, then
// closes every transport still open.
func (s *Server) drain() {
	if n := s.ActiveTransports(); n > 0 && s.shutdownTimeout > 0 {
		s.logger.Info("draining connections", "active", n, "timeout", s.shutdownTimeout)

		finished := make(chan struct{})
		go func() {
			s.handlers.Wait()
			close(finished)
		}()

		timer := time.NewTimer(s.shutdownTimeout)
		defer timer.Stop()

		select {
		case <-finished:
			return
		case <-timer.C:
		case <-s.closed:
			s.logger.Debug("drain cut short via Close()")
		}
	}

	s.mu.Lock()
	open := make([]Transport, 0, len(s.active))
	for t := range s.active {
		open = append(open, t)
	}
	s.mu.Unlock()

	if len(open) > 0 {
		s.logger.Info("closing connections", "count", len(open))
	}
	for _, t := range open {
		_ = t.Close()
	}
}

// ActiveTransports returns how many accepted transports are still being
// handled.
func (s *Server) ActiveTransports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Close stops the server. A running Serve stops accepting, skips the rest
// of any drain and closes the open transports.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.closed) })

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
