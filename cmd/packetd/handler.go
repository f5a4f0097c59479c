package main

import (
	"github.com/pkg/errors"

	"github.com/Zereker/packetsock"
	"github.com/Zereker/packetsock/buffer"
	"github.com/Zereker/packetsock/event"
)

// Packet ids served by packetd.
const (
	packetEventCommand packetsock.PacketID = 1
)

func newRouter(logger packetsock.Logger) *packetsock.Router {
	r := packetsock.NewRouter(logger)
	r.Handle(packetEventCommand, eventCommandHandler(logger))
	return r
}

// eventCommandHandler decodes an event command and echoes it back
// re-encoded under the same packet id.
func eventCommandHandler(logger packetsock.Logger) packetsock.HandlerFunc {
	return func(p *packetsock.BinaryPacket) error {
		conn := p.Connection()

		cmd, err := event.Load(p.Buffer)
		if err != nil {
			return errors.Wrap(err, "decode event command")
		}
		if n := p.Buffer.Remaining(); n > 0 {
			logger.Debug("trailing bytes after event command", "id", conn.ID(), "bytes", n)
		}

		args := cmd.Arguments()
		logger.Info("event command", "id", conn.ID(), "type", cmd.Type().String(),
			"strs", args.Strs, "ints", args.Ints)

		out := buffer.New()
		out.WriteInt32(int32(packetEventCommand))
		if err := cmd.Save(out); err != nil {
			return errors.Wrap(err, "encode event command")
		}

		if !conn.Send(packetsock.NewBinaryPacket(conn, out)) {
			logger.Warn("event command reply dropped", "id", conn.ID())
		}
		return nil
	}
}
