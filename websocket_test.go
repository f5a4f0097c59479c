package packetsock

import (
	"encoding/binary"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newWebSocketServer(t *testing.T, configure func(*WebSocketHandler), opt ...Option) (*Hub, *httptest.Server) {
	t.Helper()
	opts := append([]Option{DispatcherOption(echoDispatcher()), LoggerOption(NopLogger{})}, opt...)
	hub := NewHub(nil, opts...)
	h := NewWebSocketHandler(hub, NopLogger{})
	if configure != nil {
		configure(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialWebSocket(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return ws
}

func waitForLen(t *testing.T, r *Registry, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for r.Len() != n {
		select {
		case <-deadline:
			t.Fatalf("registry holds %d connections, want %d", r.Len(), n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWebSocket_EchoAcrossMessages(t *testing.T) {
	hub, srv := newWebSocketServer(t, nil)
	ws := dialWebSocket(t, srv)
	defer ws.Close()

	payloads := [][]byte{[]byte("alpha"), []byte("beta"), {0, 0, 0, 0}}
	wire := concatFrames(payloads)

	// Frames straddle message boundaries.
	cuts := []int{0, 3, 11, 12, len(wire)}
	if err := ws.WriteMessage(websocket.TextMessage, []byte("ignored")); err != nil {
		t.Fatalf("write text failed: %v", err)
	}
	for i := 0; i+1 < len(cuts); i++ {
		if err := ws.WriteMessage(websocket.BinaryMessage, wire[cuts[i]:cuts[i+1]]); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for _, want := range payloads {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if mt != websocket.BinaryMessage {
			t.Errorf("message type = %d, want binary", mt)
		}
		if len(msg) < 4 || int(binary.LittleEndian.Uint32(msg)) != len(msg)-4 {
			t.Fatalf("reply %v is not one frame", msg)
		}
		if got := string(msg[4:]); got != string(want) {
			t.Errorf("echo = %q, want %q", got, want)
		}
	}

	waitForLen(t, hub.Registry(), 1)

	_ = ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	waitForLen(t, hub.Registry(), 0)
}

func TestWebSocket_ReadLimitTearsDown(t *testing.T) {
	hub, srv := newWebSocketServer(t, func(h *WebSocketHandler) {
		h.ReadLimit = 16
	})
	ws := dialWebSocket(t, srv)
	defer ws.Close()

	waitForLen(t, hub.Registry(), 1)

	if err := ws.WriteMessage(websocket.BinaryMessage, make([]byte, 64)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitForLen(t, hub.Registry(), 0)
}

func TestWebSocket_OversizedFrameTearsDown(t *testing.T) {
	hub, srv := newWebSocketServer(t, nil, MessageMaxSize(8))
	ws := dialWebSocket(t, srv)
	defer ws.Close()

	waitForLen(t, hub.Registry(), 1)

	if err := ws.WriteMessage(websocket.BinaryMessage, EncodeFrame(make([]byte, 9))[:4]); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitForLen(t, hub.Registry(), 0)

	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected the server to drop the connection")
	}
}

func TestWebSocket_Heartbeat(t *testing.T) {
	_, srv := newWebSocketServer(t, nil, HeartbeatOption(20*time.Millisecond))
	ws := dialWebSocket(t, srv)
	defer ws.Close()

	pinged := make(chan struct{}, 1)
	ws.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(5 * time.Second):
		t.Fatal("no ping within five seconds")
	}
}

func TestWebSocket_ReadTimeoutTearsDownUnderContinue(t *testing.T) {
	var seen atomic.Int32
	hub, srv := newWebSocketServer(t, nil,
		HeartbeatOption(50*time.Millisecond),
		OnErrorOption(func(error) ErrorAction {
			seen.Add(1)
			return Continue
		}),
	)
	// The client never reads, so pings go unanswered and the server read
	// times out. gorilla cannot be read again after that.
	ws := dialWebSocket(t, srv)
	defer ws.Close()

	waitForLen(t, hub.Registry(), 1)
	waitForLen(t, hub.Registry(), 0)

	if n := seen.Load(); n != 1 {
		t.Errorf("onError called %d times, want 1", n)
	}
}
