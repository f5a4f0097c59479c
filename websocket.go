package packetsock

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// defaultPongWait is how long a WebSocket read may wait for any data,
	// pongs included, before the connection is considered dead.
	defaultPongWait = 2 * defaultHeartbeat

	controlWriteWait = 10 * time.Second
)

// wsTransport adapts a gorilla WebSocket connection to Transport.
type wsTransport struct {
	conn *websocket.Conn
}

// NewWebSocketTransport wraps conn. Each pong extends the read deadline by
// pongWait; a non-positive pongWait uses twice the default heartbeat.
func NewWebSocketTransport(conn *websocket.Conn, pongWait time.Duration) Transport {
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &wsTransport{conn: conn}
}

// ReadMessage returns the next WebSocket message. gorilla refuses to read
// past any error, so every read error is ErrTransportFailed.
func (t *wsTransport) ReadMessage() (MessageType, []byte, error) {
	mt, data, err := t.conn.ReadMessage()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}
	if mt == websocket.BinaryMessage {
		return BinaryMessage, data, nil
	}
	return TextMessage, data, nil
}

func (t *wsTransport) WriteMessage(data []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (t *wsTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWriteWait))
}

func (t *wsTransport) SetReadDeadline(d time.Time) error  { return t.conn.SetReadDeadline(d) }
func (t *wsTransport) SetWriteDeadline(d time.Time) error { return t.conn.SetWriteDeadline(d) }
func (t *wsTransport) RemoteAddr() net.Addr               { return t.conn.RemoteAddr() }
func (t *wsTransport) Close() error                       { return t.conn.Close() }

// WebSocketHandler upgrades HTTP requests and hands each WebSocket to a
// Handler. ServeHTTP blocks until the handler returns.
type WebSocketHandler struct {
	Upgrader websocket.Upgrader
	// ReadLimit caps a single WebSocket message. Zero means no limit.
	ReadLimit int64
	// PongWait is passed to NewWebSocketTransport.
	PongWait time.Duration

	handler Handler
	logger  Logger
}

// NewWebSocketHandler returns a handler that accepts any origin.
// A nil logger uses slog.Default().
func NewWebSocketHandler(h Handler, logger Logger) *WebSocketHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return &WebSocketHandler{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handler: h,
		logger:  logger,
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade error", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	if h.ReadLimit > 0 {
		conn.SetReadLimit(h.ReadLimit)
	}

	h.logger.Debug("accepted websocket", "remote_addr", conn.RemoteAddr())
	h.handler.Handle(r.Context(), NewWebSocketTransport(conn, h.PongWait))
}
