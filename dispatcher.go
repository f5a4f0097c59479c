package packetsock

import (
	"fmt"
	"sync"
)

// Dispatcher receives decoded packets. For a given connection, Dispatch is
// called in wire order and never concurrently.
type Dispatcher interface {
	Dispatch(p *BinaryPacket)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(p *BinaryPacket)

// Dispatch calls f(p).
func (f DispatcherFunc) Dispatch(p *BinaryPacket) { f(p) }

// PacketID is the int32 that opens every routed payload.
type PacketID int32

// HandlerFunc handles one routed packet. The packet's buffer cursor sits
// just past the packet id.
type HandlerFunc func(p *BinaryPacket) error

// Router is a Dispatcher that reads the leading packet id of each payload
// and calls the handler registered for it.
type Router struct {
	logger Logger

	mu       sync.RWMutex
	handlers map[PacketID]HandlerFunc
	fallback HandlerFunc
}

// NewRouter returns an empty router. A nil logger uses slog.Default().
func NewRouter(logger Logger) *Router {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Router{
		logger:   logger,
		handlers: make(map[PacketID]HandlerFunc),
	}
}

// Handle registers h for id, replacing any previous handler.
func (r *Router) Handle(id PacketID, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

// HandleDefault registers h for ids with no handler of their own.
func (r *Router) HandleDefault(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Dispatch routes p. Failures are logged and counted, never returned.
func (r *Router) Dispatch(p *BinaryPacket) {
	raw, err := p.Buffer.ReadInt32()
	if err != nil {
		dispatchErrors.WithLabelValues("short").Inc()
		r.logger.Warn("packet too short for id", "id", connID(p), "len", p.Buffer.Len())
		return
	}
	id := PacketID(raw)

	r.mu.RLock()
	h, ok := r.handlers[id]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		dispatchErrors.WithLabelValues("unhandled").Inc()
		r.logger.Warn("unhandled packet", "id", connID(p), "packet", raw)
		return
	}

	if err := r.call(h, p); err != nil {
		dispatchErrors.WithLabelValues("handler").Inc()
		r.logger.Error("packet handler failed", "id", connID(p), "packet", raw, "error", err)
	}
}

func (r *Router) call(h HandlerFunc, p *BinaryPacket) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("handler panic: %v", v)
		}
	}()
	return h(p)
}

func connID(p *BinaryPacket) string {
	if p.conn == nil {
		return ""
	}
	return p.conn.ID()
}
