package packetsock

import (
	"sync"

	"github.com/Zereker/packetsock/buffer"
)

// Registry tracks live connections by ID.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Connection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Connection)}
}

// Add stores conn under its ID.
func (r *Registry) Add(conn Connection) {
	r.mu.Lock()
	_, exists := r.conns[conn.ID()]
	r.conns[conn.ID()] = conn
	r.mu.Unlock()

	if !exists {
		activeConnections.Inc()
	}
}

// Remove deletes conn and reports whether it was present. Another
// connection stored under the same ID is left alone.
func (r *Registry) Remove(conn Connection) bool {
	r.mu.Lock()
	cur, ok := r.conns[conn.ID()]
	if ok && cur == conn {
		delete(r.conns, conn.ID())
	}
	r.mu.Unlock()

	removed := ok && cur == conn
	if removed {
		activeConnections.Dec()
	}
	return removed
}

// Get returns the connection with the given ID.
func (r *Registry) Get(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Range calls fn for a snapshot of the registered connections until fn
// returns false. fn runs without the registry lock held.
func (r *Registry) Range(fn func(Connection) bool) {
	for _, conn := range r.snapshot() {
		if !fn(conn) {
			return
		}
	}
}

// Broadcast sends payload to every connection except skip and returns how
// many sends were accepted. Each connection gets its own packet buffer.
func (r *Registry) Broadcast(payload []byte, skip Connection) int {
	sent := 0
	r.Range(func(conn Connection) bool {
		if conn == skip {
			return true
		}
		if conn.Send(NewBinaryPacket(conn, buffer.FromBytes(payload))) {
			sent++
		}
		return true
	})
	return sent
}

func (r *Registry) snapshot() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}
