package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/packetsock"
	"github.com/Zereker/packetsock/buffer"
	"github.com/Zereker/packetsock/event"
	"github.com/Zereker/packetsock/internal/config"
)

// stubConn records what a handler sends.
type stubConn struct {
	sent []*packetsock.BinaryPacket
}

func (c *stubConn) ID() string         { return "stub" }
func (c *stubConn) IP() string         { return "127.0.0.1" }
func (c *stubConn) Port() int          { return 0 }
func (c *stubConn) Disconnect()        {}
func (c *stubConn) Disconnected() bool { return false }

func (c *stubConn) Send(p packetsock.Packet) bool {
	c.sent = append(c.sent, p.(*packetsock.BinaryPacket))
	return true
}

func sampleMoveRoute() *event.MoveRouteCommand {
	cmd := event.New(event.CommandSetMoveRoute).(*event.MoveRouteCommand)
	cmd.Strs[0] = "guard"
	cmd.Ints[0] = 3
	cmd.Route = event.MoveRoute{
		Target:      -1,
		RepeatRoute: true,
		Actions: []event.MoveRouteAction{
			{Type: event.MoveUp},
			{Type: event.SetGraphic, Graphic: &event.Graphic{Filename: "npc.png", Width: 32, Height: 32}},
			{Type: event.SetAnimation, AnimationID: 4},
		},
	}
	return cmd
}

func eventPayload(t *testing.T, cmd event.Command) []byte {
	t.Helper()
	buf := buffer.New()
	buf.WriteInt32(int32(packetEventCommand))
	require.NoError(t, cmd.Save(buf))
	return buf.Bytes()
}

func decodeReply(t *testing.T, payload []byte) event.Command {
	t.Helper()
	buf := buffer.FromBytes(payload)
	id, err := buf.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(packetEventCommand), id)
	cmd, err := event.Load(buf)
	require.NoError(t, err)
	assert.Zero(t, buf.Remaining())
	return cmd
}

func TestEventCommandHandler_Echoes(t *testing.T) {
	conn := &stubConn{}
	router := newRouter(packetsock.NopLogger{})

	want := sampleMoveRoute()
	router.Dispatch(packetsock.NewBinaryPacket(conn, buffer.FromBytes(eventPayload(t, want))))

	require.Len(t, conn.sent, 1)
	assert.Equal(t, want, decodeReply(t, conn.sent[0].Buffer.Bytes()))
}

func TestEventCommandHandler_GenericCommand(t *testing.T) {
	conn := &stubConn{}
	router := newRouter(packetsock.NopLogger{})

	want := event.New(event.CommandShowText).(*event.GenericCommand)
	want.Strs[0] = "hello"
	router.Dispatch(packetsock.NewBinaryPacket(conn, buffer.FromBytes(eventPayload(t, want))))

	require.Len(t, conn.sent, 1)
	assert.Equal(t, want, decodeReply(t, conn.sent[0].Buffer.Bytes()))
}

func TestEventCommandHandler_Truncated(t *testing.T) {
	conn := &stubConn{}
	handler := eventCommandHandler(packetsock.NopLogger{})

	payload := eventPayload(t, sampleMoveRoute())
	buf := buffer.FromBytes(payload[4 : len(payload)-3])

	err := handler(packetsock.NewBinaryPacket(conn, buf))
	assert.ErrorIs(t, err, buffer.ErrUnderflow)
	assert.Empty(t, conn.sent)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Conn.Heartbeat = time.Second
	return cfg
}

func TestMux_WebSocketEventRoundTrip(t *testing.T) {
	packetsock.RegisterMetrics()
	cfg := testConfig()
	hub := packetsock.NewHub(nil, connOptions(cfg, newRouter(packetsock.NopLogger{}), packetsock.NopLogger{})...)
	srv := httptest.NewServer(newMux(cfg, hub, packetsock.NopLogger{}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + cfg.WebSocket.Path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	want := sampleMoveRoute()
	frame := packetsock.EncodeFrame(eventPayload(t, want))
	half := len(frame) / 2
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame[:half]))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame[half:]))

	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Greater(t, len(msg), 4)
	assert.Equal(t, want, decodeReply(t, msg[4:]))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Connections)

	metrics, err := http.Get(srv.URL + cfg.Metrics.Path)
	require.NoError(t, err)
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "packetsock_frames_received_total")
}

func TestSetupLogger(t *testing.T) {
	var out bytes.Buffer
	logger, err := setupLogger("warn", &out)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")

	_, err = setupLogger("loud", &out)
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}
