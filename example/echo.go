package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zereker/packetsock"
	"github.com/Zereker/packetsock/buffer"
)

// Packet ids understood by the example.
const (
	packetEcho packetsock.PacketID = iota + 1
	packetBroadcast
)

type server struct {
	registry *packetsock.Registry
}

// echo sends the packet body straight back to its sender.
func (s *server) echo(p *packetsock.BinaryPacket) error {
	conn := p.Connection()

	out := buffer.New()
	out.WriteInt32(int32(packetEcho))
	out.WriteBytes(p.Buffer.Unread())

	if !conn.Send(packetsock.NewBinaryPacket(conn, out)) {
		slog.Warn("echo dropped", "id", conn.ID())
	}
	return nil
}

// broadcast relays a string to every other connection.
func (s *server) broadcast(p *packetsock.BinaryPacket) error {
	text, err := p.Buffer.ReadString()
	if err != nil {
		return err
	}

	out := buffer.New()
	out.WriteInt32(int32(packetBroadcast))
	out.WriteString(text)

	n := s.registry.Broadcast(out.Bytes(), p.Connection())
	slog.Info("broadcast", "from", p.Connection().ID(), "recipients", n)
	return nil
}

func main() {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:12345")
	if err != nil {
		panic(err)
	}

	tcp, err := packetsock.New(addr)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}

	s := &server{registry: packetsock.NewRegistry()}

	router := packetsock.NewRouter(nil)
	router.Handle(packetEcho, s.echo)
	router.Handle(packetBroadcast, s.broadcast)

	hub := packetsock.NewHub(s.registry,
		packetsock.DispatcherOption(router),
		packetsock.OnErrorOption(func(err error) packetsock.ErrorAction {
			slog.Error("connection error", "error", err)
			return packetsock.Disconnect
		}),
		packetsock.OnDisconnectOption(func(conn packetsock.Connection, reason error) {
			slog.Info("client left", "id", conn.ID(), "reason", reason)
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("server start", "addr", addr.String())
	if err := tcp.Serve(ctx, hub); err != nil && err != context.Canceled {
		slog.Error("server error", "error", err)
	}
}
