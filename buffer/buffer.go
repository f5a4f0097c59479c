// Package buffer provides ByteBuffer, a growable byte store with a read
// cursor and typed little-endian accessors.
//
// A ByteBuffer is not safe for concurrent use. Owners guard it themselves.
package buffer

import (
	"encoding/binary"
	"errors"
)

// IntSize is the width in bytes of the int32/uint32 accessors and of every
// length prefix written by WriteString.
const IntSize = 4

var order = binary.LittleEndian

var (
	// ErrUnderflow is returned when a read asks for more bytes than remain.
	ErrUnderflow = errors.New("buffer: read past end of buffer")
	// ErrNegativeLength is returned when a length prefix or count is negative.
	ErrNegativeLength = errors.New("buffer: negative length")
)

// ByteBuffer is a sequence of bytes plus a read cursor.
//
// Writes always append at the end. Reads advance the cursor; peeks do not.
// The cursor never moves past the end of the written bytes.
type ByteBuffer struct {
	buf []byte
	pos int
}

// New returns an empty buffer.
func New() *ByteBuffer {
	return &ByteBuffer{}
}

// FromBytes returns a buffer holding a copy of b with the cursor at zero.
func FromBytes(b []byte) *ByteBuffer {
	bb := &ByteBuffer{buf: make([]byte, len(b))}
	copy(bb.buf, b)
	return bb
}

// Wrap returns a buffer that takes ownership of b without copying.
func Wrap(b []byte) *ByteBuffer {
	return &ByteBuffer{buf: b}
}

// Len returns the total number of bytes written, consumed or not.
func (b *ByteBuffer) Len() int {
	return len(b.buf)
}

// Remaining returns the number of unread bytes.
func (b *ByteBuffer) Remaining() int {
	return len(b.buf) - b.pos
}

// Position returns the read cursor.
func (b *ByteBuffer) Position() int {
	return b.pos
}

// Bytes returns the whole contents, including bytes already read.
// The slice aliases the buffer until the next write, Clear or Compact.
func (b *ByteBuffer) Bytes() []byte {
	return b.buf
}

// Unread returns the bytes after the cursor without consuming them.
func (b *ByteBuffer) Unread() []byte {
	return b.buf[b.pos:]
}

// Clear drops all contents and resets the cursor, keeping capacity.
// Callers normally only clear a fully consumed buffer.
func (b *ByteBuffer) Clear() {
	b.buf = b.buf[:0]
	b.pos = 0
}

// Compact moves the unread bytes to the front, discarding the consumed prefix.
func (b *ByteBuffer) Compact() {
	if b.pos == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.pos:])
	b.buf = b.buf[:n]
	b.pos = 0
}

// WriteBytes appends raw bytes.
func (b *ByteBuffer) WriteBytes(p []byte) {
	b.buf = append(b.buf, p...)
}

// WriteUint8 appends a single byte.
func (b *ByteBuffer) WriteUint8(v uint8) {
	b.buf = append(b.buf, v)
}

// WriteBool appends a boolean as one byte, 0 or 1.
func (b *ByteBuffer) WriteBool(v bool) {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
}

// WriteUint32 appends v in little-endian order.
func (b *ByteBuffer) WriteUint32(v uint32) {
	b.buf = order.AppendUint32(b.buf, v)
}

// WriteInt32 appends v in little-endian two's complement.
func (b *ByteBuffer) WriteInt32(v int32) {
	b.WriteUint32(uint32(v))
}

// WriteInt64 appends v in little-endian two's complement.
func (b *ByteBuffer) WriteInt64(v int64) {
	b.buf = order.AppendUint64(b.buf, uint64(v))
}

// WriteString appends an int32 byte count followed by the UTF-8 bytes of s.
func (b *ByteBuffer) WriteString(s string) {
	b.WriteInt32(int32(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *ByteBuffer) need(n int) error {
	if n < 0 {
		return ErrNegativeLength
	}
	if b.Remaining() < n {
		return ErrUnderflow
	}
	return nil
}

// ReadBytes consumes n bytes and returns a copy of them.
func (b *ByteBuffer) ReadBytes(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.buf[b.pos:b.pos+n])
	b.pos += n
	return out, nil
}

// ReadUint8 consumes one byte.
func (b *ByteBuffer) ReadUint8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.buf[b.pos]
	b.pos++
	return v, nil
}

// ReadBool consumes one byte; any non-zero value is true.
func (b *ByteBuffer) ReadBool() (bool, error) {
	v, err := b.ReadUint8()
	return v != 0, err
}

// PeekUint32 returns the next uint32 without moving the cursor.
func (b *ByteBuffer) PeekUint32() (uint32, error) {
	if err := b.need(IntSize); err != nil {
		return 0, err
	}
	return order.Uint32(b.buf[b.pos:]), nil
}

// ReadUint32 consumes a uint32.
func (b *ByteBuffer) ReadUint32() (uint32, error) {
	v, err := b.PeekUint32()
	if err != nil {
		return 0, err
	}
	b.pos += IntSize
	return v, nil
}

// PeekInt32 returns the next int32 without moving the cursor.
func (b *ByteBuffer) PeekInt32() (int32, error) {
	v, err := b.PeekUint32()
	return int32(v), err
}

// ReadInt32 consumes an int32.
func (b *ByteBuffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

// ReadInt64 consumes an int64.
func (b *ByteBuffer) ReadInt64() (int64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := order.Uint64(b.buf[b.pos:])
	b.pos += 8
	return int64(v), nil
}

// ReadString consumes a length-prefixed string written by WriteString.
// On error the cursor is left where it was.
func (b *ByteBuffer) ReadString() (string, error) {
	n, err := b.PeekInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrNegativeLength
	}
	if b.Remaining() < IntSize+int(n) {
		return "", ErrUnderflow
	}
	b.pos += IntSize
	s := string(b.buf[b.pos : b.pos+int(n)])
	b.pos += int(n)
	return s, nil
}
