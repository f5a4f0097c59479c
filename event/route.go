package event

import (
	"github.com/pkg/errors"

	"github.com/Zereker/packetsock/buffer"
)

// maxRouteActions bounds the action count read from the wire.
const maxRouteActions = 1 << 16

// Graphic is the sprite or tileset selection carried by a SetGraphic step.
type Graphic struct {
	Type     int32
	Filename string
	X        int32
	Y        int32
	Width    int32
	Height   int32
}

// Load reads a graphic from buf.
func (g *Graphic) Load(buf *buffer.ByteBuffer) error {
	var err error
	if g.Type, err = buf.ReadInt32(); err != nil {
		return errors.Wrap(err, "graphic type")
	}
	if g.Filename, err = buf.ReadString(); err != nil {
		return errors.Wrap(err, "graphic filename")
	}
	for _, dst := range []*int32{&g.X, &g.Y, &g.Width, &g.Height} {
		if *dst, err = buf.ReadInt32(); err != nil {
			return errors.Wrap(err, "graphic geometry")
		}
	}
	return nil
}

// Save appends g to buf.
func (g *Graphic) Save(buf *buffer.ByteBuffer) {
	buf.WriteInt32(g.Type)
	buf.WriteString(g.Filename)
	buf.WriteInt32(g.X)
	buf.WriteInt32(g.Y)
	buf.WriteInt32(g.Width)
	buf.WriteInt32(g.Height)
}

// MoveRouteAction is a single step of a MoveRoute.
//
// Graphic is present iff Type == SetGraphic; AnimationID is encoded iff
// Type == SetAnimation.
type MoveRouteAction struct {
	Type        MoveRouteActionType
	Graphic     *Graphic
	AnimationID int32
}

// Load reads one action from buf.
func (a *MoveRouteAction) Load(buf *buffer.ByteBuffer) error {
	t, err := buf.ReadInt32()
	if err != nil {
		return errors.Wrap(err, "route action type")
	}
	*a = MoveRouteAction{Type: MoveRouteActionType(t)}

	switch a.Type {
	case SetGraphic:
		a.Graphic = &Graphic{}
		if err := a.Graphic.Load(buf); err != nil {
			return err
		}
	case SetAnimation:
		if a.AnimationID, err = buf.ReadInt32(); err != nil {
			return errors.Wrap(err, "route action animation")
		}
	}
	return nil
}

// Save appends a to buf.
func (a *MoveRouteAction) Save(buf *buffer.ByteBuffer) error {
	buf.WriteInt32(int32(a.Type))
	switch a.Type {
	case SetGraphic:
		if a.Graphic == nil {
			return ErrGraphicRequired
		}
		a.Graphic.Save(buf)
	case SetAnimation:
		buf.WriteInt32(a.AnimationID)
	}
	return nil
}

// MoveRoute is the movement script attached to a SetMoveRoute command.
type MoveRoute struct {
	Target          int32
	RepeatRoute     bool
	IgnoreIfBlocked bool
	Actions         []MoveRouteAction
}

// Load reads a route from buf.
func (r *MoveRoute) Load(buf *buffer.ByteBuffer) error {
	var err error
	if r.Target, err = buf.ReadInt32(); err != nil {
		return errors.Wrap(err, "route target")
	}
	if r.RepeatRoute, err = buf.ReadBool(); err != nil {
		return errors.Wrap(err, "route repeat")
	}
	if r.IgnoreIfBlocked, err = buf.ReadBool(); err != nil {
		return errors.Wrap(err, "route ignore blocked")
	}

	count, err := buf.ReadInt32()
	if err != nil {
		return errors.Wrap(err, "route action count")
	}
	if count < 0 || count > maxRouteActions {
		return errors.Wrapf(ErrInvalidRoute, "action count %d", count)
	}

	r.Actions = make([]MoveRouteAction, count)
	for i := range r.Actions {
		if err := r.Actions[i].Load(buf); err != nil {
			return errors.Wrapf(err, "route action %d", i)
		}
	}
	return nil
}

// Save appends r to buf.
func (r *MoveRoute) Save(buf *buffer.ByteBuffer) error {
	buf.WriteInt32(r.Target)
	buf.WriteBool(r.RepeatRoute)
	buf.WriteBool(r.IgnoreIfBlocked)
	buf.WriteInt32(int32(len(r.Actions)))
	for i := range r.Actions {
		if err := r.Actions[i].Save(buf); err != nil {
			return errors.Wrapf(err, "route action %d", i)
		}
	}
	return nil
}
