package packetsock

import (
	"github.com/Zereker/packetsock/buffer"
)

// frameHeaderSize is the width of the little-endian payload length that
// precedes every frame on the wire.
const frameHeaderSize = buffer.IntSize

// Packet is a decoded application packet. Only *BinaryPacket can be sent.
type Packet interface {
	// Connection returns the connection the packet arrived on or is bound for.
	Connection() Connection
}

// BinaryPacket carries one frame's payload in a ByteBuffer.
type BinaryPacket struct {
	conn   Connection
	Buffer *buffer.ByteBuffer
}

// NewBinaryPacket binds buf to conn. A nil buf is replaced by an empty buffer.
func NewBinaryPacket(conn Connection, buf *buffer.ByteBuffer) *BinaryPacket {
	if buf == nil {
		buf = buffer.New()
	}
	return &BinaryPacket{conn: conn, Buffer: buf}
}

// Connection returns the connection the packet belongs to.
func (p *BinaryPacket) Connection() Connection {
	return p.conn
}

// EncodeFrame returns the payload prefixed with its length.
func EncodeFrame(payload []byte) []byte {
	bf := buffer.New()
	bf.WriteUint32(uint32(len(payload)))
	bf.WriteBytes(payload)
	return bf.Bytes()
}
