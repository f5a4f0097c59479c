package packetsock

import (
	"errors"
	"testing"

	"github.com/Zereker/packetsock/buffer"
)

func routedPacket(id PacketID, body string) *BinaryPacket {
	buf := buffer.New()
	buf.WriteInt32(int32(id))
	buf.WriteString(body)
	return NewBinaryPacket(nil, buffer.FromBytes(buf.Bytes()))
}

func TestRouter_RoutesByID(t *testing.T) {
	r := NewRouter(NopLogger{})

	var got []string
	r.Handle(1, func(p *BinaryPacket) error {
		s, err := p.Buffer.ReadString()
		got = append(got, "one:"+s)
		return err
	})
	r.Handle(2, func(p *BinaryPacket) error {
		s, err := p.Buffer.ReadString()
		got = append(got, "two:"+s)
		return err
	})

	r.Dispatch(routedPacket(2, "b"))
	r.Dispatch(routedPacket(1, "a"))

	if len(got) != 2 || got[0] != "two:b" || got[1] != "one:a" {
		t.Errorf("handled %v, want [two:b one:a]", got)
	}
}

func TestRouter_Default(t *testing.T) {
	r := NewRouter(NopLogger{})

	var ids []int32
	r.HandleDefault(func(p *BinaryPacket) error {
		ids = append(ids, int32(p.Buffer.Position()))
		return nil
	})

	r.Dispatch(routedPacket(99, ""))

	if len(ids) != 1 || ids[0] != 4 {
		t.Errorf("default handler saw cursor %v, want [4]", ids)
	}
}

func TestRouter_Replace(t *testing.T) {
	r := NewRouter(NopLogger{})

	var which string
	r.Handle(1, func(*BinaryPacket) error { which = "old"; return nil })
	r.Handle(1, func(*BinaryPacket) error { which = "new"; return nil })

	r.Dispatch(routedPacket(1, ""))
	if which != "new" {
		t.Errorf("handler = %s, want new", which)
	}
}

func TestRouter_Unhandled(t *testing.T) {
	logger := &mockLogger{}
	r := NewRouter(logger)

	r.Dispatch(routedPacket(7, "x"))

	if !logger.has("unhandled packet") {
		t.Errorf("messages = %v, want unhandled packet", logger.messages)
	}
}

func TestRouter_ShortPacket(t *testing.T) {
	logger := &mockLogger{}
	r := NewRouter(logger)

	called := false
	r.HandleDefault(func(*BinaryPacket) error { called = true; return nil })

	r.Dispatch(NewBinaryPacket(nil, buffer.FromBytes([]byte{1, 2})))

	if called {
		t.Error("handler called for a packet without an id")
	}
	if !logger.has("packet too short for id") {
		t.Errorf("messages = %v, want short packet warning", logger.messages)
	}
}

func TestRouter_HandlerError(t *testing.T) {
	logger := &mockLogger{}
	r := NewRouter(logger)
	r.Handle(3, func(*BinaryPacket) error { return errors.New("bad body") })

	r.Dispatch(routedPacket(3, ""))

	if !logger.errorCalled || !logger.has("packet handler failed") {
		t.Errorf("messages = %v, want handler failure logged", logger.messages)
	}
}

func TestRouter_HandlerPanic(t *testing.T) {
	logger := &mockLogger{}
	r := NewRouter(logger)
	r.Handle(4, func(*BinaryPacket) error { panic("boom") })

	r.Dispatch(routedPacket(4, ""))

	if !logger.has("packet handler failed") {
		t.Errorf("messages = %v, want panic logged as a handler failure", logger.messages)
	}
}

func TestRouter_OverConnection(t *testing.T) {
	r := NewRouter(NopLogger{})

	var bodies []string
	r.Handle(5, func(p *BinaryPacket) error {
		if p.Connection() == nil {
			t.Error("packet has no connection")
		}
		s, err := p.Buffer.ReadString()
		bodies = append(bodies, s)
		return err
	})

	conn := newTestConn(t, newFakeTransport(), r)

	var wire []byte
	for _, body := range []string{"first", "second"} {
		wire = append(wire, EncodeFrame(routedPacket(5, body).Buffer.Bytes())...)
	}
	conn.OnBinaryMessage(wire)

	if len(bodies) != 2 || bodies[0] != "first" || bodies[1] != "second" {
		t.Errorf("bodies = %v, want [first second]", bodies)
	}
}
