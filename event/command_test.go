package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/packetsock/buffer"
)

func sampleArgs() Args {
	return Args{
		Strs: [SlotCount]string{"hello", "", "world", "", "", "last"},
		Ints: [SlotCount]int32{1, -2, 3, 0, 0, 1 << 20},
	}
}

func sampleRoute() MoveRoute {
	return MoveRoute{
		Target:      -1,
		RepeatRoute: true,
		Actions: []MoveRouteAction{
			{Type: MoveUp},
			{Type: SetGraphic, Graphic: &Graphic{Type: 1, Filename: "hero.png", X: 2, Y: 3, Width: 32, Height: 48}},
			{Type: SetAnimation, AnimationID: 17},
			{Type: Wait500},
		},
	}
}

func encode(t *testing.T, cmd Command) []byte {
	t.Helper()
	buf := buffer.New()
	require.NoError(t, cmd.Save(buf))
	return buf.Bytes()
}

func TestLoadSave_RoundTripAllTags(t *testing.T) {
	for tag := CommandNull; tag <= CommandDespawnNpc; tag++ {
		cmd := New(tag)
		*cmd.Arguments() = sampleArgs()
		if mr, ok := cmd.(*MoveRouteCommand); ok {
			mr.Route = sampleRoute()
		}

		first := encode(t, cmd)

		loaded, err := Load(buffer.FromBytes(first))
		require.NoError(t, err, "tag %s", tag)
		assert.Equal(t, tag, loaded.Type())

		second := encode(t, loaded)
		assert.Equal(t, first, second, "tag %s", tag)
	}
}

func TestLoad_NonRouteTagHasNoRouteBytes(t *testing.T) {
	cmd := &GenericCommand{Kind: CommandSetAccess}
	cmd.Ints[0] = 2
	raw := encode(t, cmd)

	// tag + six empty strings + six ints
	assert.Len(t, raw, 4+SlotCount*(4+4))

	buf := buffer.FromBytes(raw)
	loaded, err := Load(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Remaining())

	generic, ok := loaded.(*GenericCommand)
	require.True(t, ok, "expected *GenericCommand, got %T", loaded)
	assert.Equal(t, int32(2), generic.Ints[0])
}

func TestLoad_MoveRoutePreserved(t *testing.T) {
	cmd := &MoveRouteCommand{Args: sampleArgs(), Route: sampleRoute()}
	raw := encode(t, cmd)

	buf := buffer.FromBytes(raw)
	loaded, err := Load(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Remaining())

	mr, ok := loaded.(*MoveRouteCommand)
	require.True(t, ok, "expected *MoveRouteCommand, got %T", loaded)
	assert.Equal(t, cmd.Route, mr.Route)
	assert.Equal(t, cmd.Args, mr.Args)
}

func TestLoad_SequentialCommands(t *testing.T) {
	buf := buffer.New()
	require.NoError(t, (&GenericCommand{Kind: CommandShowText}).Save(buf))
	require.NoError(t, (&MoveRouteCommand{Route: sampleRoute()}).Save(buf))
	require.NoError(t, (&GenericCommand{Kind: CommandWait}).Save(buf))

	var got []CommandType
	for buf.Remaining() > 0 {
		cmd, err := Load(buf)
		require.NoError(t, err)
		got = append(got, cmd.Type())
	}
	assert.Equal(t, []CommandType{CommandShowText, CommandSetMoveRoute, CommandWait}, got)
}

func TestLoad_Truncated(t *testing.T) {
	raw := encode(t, &MoveRouteCommand{Route: sampleRoute()})

	for _, n := range []int{0, 2, 4, 20, len(raw) - 1} {
		_, err := Load(buffer.FromBytes(raw[:n]))
		assert.ErrorIs(t, err, buffer.ErrUnderflow, "prefix %d", n)
	}
}

func TestLoad_NegativeActionCount(t *testing.T) {
	buf := buffer.New()
	buf.WriteInt32(int32(CommandSetMoveRoute))
	(&Args{}).save(buf)
	buf.WriteInt32(0)
	buf.WriteBool(false)
	buf.WriteBool(false)
	buf.WriteInt32(-3)

	_, err := Load(buf)
	assert.ErrorIs(t, err, ErrInvalidRoute)
}

func TestSave_GenericMoveRouteRejected(t *testing.T) {
	buf := buffer.New()
	err := (&GenericCommand{Kind: CommandSetMoveRoute}).Save(buf)
	assert.ErrorIs(t, err, ErrRouteRequired)
	assert.Equal(t, 0, buf.Len())
}

func TestSave_SetGraphicWithoutGraphic(t *testing.T) {
	cmd := &MoveRouteCommand{Route: MoveRoute{Actions: []MoveRouteAction{{Type: SetGraphic}}}}
	err := cmd.Save(buffer.New())
	assert.ErrorIs(t, err, ErrGraphicRequired)
}

func TestNew_Variant(t *testing.T) {
	_, ok := New(CommandSetMoveRoute).(*MoveRouteCommand)
	assert.True(t, ok)

	g, ok := New(CommandWarpPlayer).(*GenericCommand)
	require.True(t, ok)
	assert.Equal(t, CommandWarpPlayer, g.Type())
	assert.Equal(t, Args{}, g.Args)
}

func TestCommandType_String(t *testing.T) {
	assert.Equal(t, "SetMoveRoute", CommandSetMoveRoute.String())
	assert.Equal(t, "Unknown", CommandType(999).String())
}
