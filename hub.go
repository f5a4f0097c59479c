package packetsock

import (
	"context"
	"errors"
)

// Hub is a Handler that turns every accepted transport into a registered
// StreamConnection and runs it until teardown.
type Hub struct {
	registry *Registry
	opts     []Option
	logger   Logger
}

// NewHub returns a hub that registers connections in registry and builds
// them with opts. A nil registry gets a fresh one.
func NewHub(registry *Registry, opts ...Option) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = defaultLogger()
	}

	return &Hub{
		registry: registry,
		opts:     opts,
		logger:   o.logger,
	}
}

// Registry returns the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Handle runs one connection over t. It returns once the connection is
// torn down and removed from the registry.
func (h *Hub) Handle(ctx context.Context, t Transport) {
	opts := make([]Option, 0, len(h.opts)+1)
	opts = append(opts, h.opts...)
	opts = append(opts, OnDisconnectOption(func(conn Connection, _ error) {
		h.registry.Remove(conn)
	}))

	conn, err := NewStreamConnection(t, opts...)
	if err != nil {
		h.logger.Error("rejecting connection", "addr", t.RemoteAddr(), "error", err)
		_ = t.Close()
		return
	}

	h.registry.Add(conn)
	acceptedConnections.Inc()

	if err := conn.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug("connection ended", "id", conn.ID(), "error", err)
	}
}
