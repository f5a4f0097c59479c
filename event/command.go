// Package event encodes event commands: a type tag, six (string, int32)
// argument slots, and a move route that exists only on SetMoveRoute commands.
//
// Wire layout:
//
//	int32 type
//	6 × (string, int32)
//	MoveRoute            only when type == CommandSetMoveRoute
package event

import (
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/Zereker/packetsock/buffer"
)

// SlotCount is the number of (string, int32) argument slots on every command.
const SlotCount = 6

var (
	// ErrRouteRequired is returned when a SetMoveRoute command is saved without a route.
	ErrRouteRequired = stderrors.New("event: set move route command requires a route")
	// ErrGraphicRequired is returned when a SetGraphic route step has no graphic.
	ErrGraphicRequired = stderrors.New("event: set graphic action requires a graphic")
	// ErrInvalidRoute is returned for a route whose encoded shape is impossible.
	ErrInvalidRoute = stderrors.New("event: invalid move route")
)

// Args holds the fixed argument slots. Zero value is six empty strings and zeros.
type Args struct {
	Strs [SlotCount]string
	Ints [SlotCount]int32
}

func (a *Args) load(buf *buffer.ByteBuffer) error {
	var err error
	for i := 0; i < SlotCount; i++ {
		if a.Strs[i], err = buf.ReadString(); err != nil {
			return errors.Wrapf(err, "slot %d string", i)
		}
		if a.Ints[i], err = buf.ReadInt32(); err != nil {
			return errors.Wrapf(err, "slot %d int", i)
		}
	}
	return nil
}

func (a *Args) save(buf *buffer.ByteBuffer) {
	for i := 0; i < SlotCount; i++ {
		buf.WriteString(a.Strs[i])
		buf.WriteInt32(a.Ints[i])
	}
}

// Command is a decoded event command. The concrete type is *GenericCommand
// for every tag except CommandSetMoveRoute, which is *MoveRouteCommand.
type Command interface {
	Type() CommandType
	Arguments() *Args
	Save(buf *buffer.ByteBuffer) error
}

// GenericCommand is any command that carries no route.
type GenericCommand struct {
	Kind CommandType
	Args
}

func (c *GenericCommand) Type() CommandType { return c.Kind }
func (c *GenericCommand) Arguments() *Args  { return &c.Args }

// Save appends the command to buf. A GenericCommand tagged SetMoveRoute
// cannot be encoded because it has no route.
func (c *GenericCommand) Save(buf *buffer.ByteBuffer) error {
	if c.Kind == CommandSetMoveRoute {
		return ErrRouteRequired
	}
	buf.WriteInt32(int32(c.Kind))
	c.Args.save(buf)
	return nil
}

// MoveRouteCommand is a SetMoveRoute command.
type MoveRouteCommand struct {
	Args
	Route MoveRoute
}

func (c *MoveRouteCommand) Type() CommandType { return CommandSetMoveRoute }
func (c *MoveRouteCommand) Arguments() *Args  { return &c.Args }

// Save appends the command, then its route, to buf.
func (c *MoveRouteCommand) Save(buf *buffer.ByteBuffer) error {
	buf.WriteInt32(int32(CommandSetMoveRoute))
	c.Args.save(buf)
	return c.Route.Save(buf)
}

// New returns an empty command of the variant matching t.
func New(t CommandType) Command {
	if t == CommandSetMoveRoute {
		return &MoveRouteCommand{}
	}
	return &GenericCommand{Kind: t}
}

// Load decodes one command from buf. The route is read only for
// CommandSetMoveRoute; every other tag ends after the argument slots.
func Load(buf *buffer.ByteBuffer) (Command, error) {
	tag, err := buf.ReadInt32()
	if err != nil {
		return nil, errors.Wrap(err, "event: command type")
	}

	t := CommandType(tag)
	switch t {
	case CommandSetMoveRoute:
		cmd := &MoveRouteCommand{}
		if err := cmd.Args.load(buf); err != nil {
			return nil, errors.Wrapf(err, "event: %s", t)
		}
		if err := cmd.Route.Load(buf); err != nil {
			return nil, errors.Wrapf(err, "event: %s route", t)
		}
		return cmd, nil
	default:
		cmd := &GenericCommand{Kind: t}
		if err := cmd.Args.load(buf); err != nil {
			return nil, errors.Wrapf(err, "event: %s", t)
		}
		return cmd, nil
	}
}
