package compound

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

type message interface{ isMessage() }

type msgA struct{ X, Y uint32 }

type msgB struct{}

type msgC struct {
	Timestamp uint32
	N         uint8
	Options   []uint8
}

func (msgA) isMessage() {}
func (msgB) isMessage() {}
func (msgC) isMessage() {}

var (
	msgADef = NewStruct[msgA]("A").
		Field(Value("x", wire.U32, func(m *msgA) *uint32 { return &m.X })).
		Field(Value("y", wire.U32, func(m *msgA) *uint32 { return &m.Y })).
		MustBuild()
	msgBDef = NewStruct[msgB]("B").MustBuild()
	msgCDef = NewStruct[msgC]("C").
		Field(Value("timestamp", wire.U32, func(m *msgC) *uint32 { return &m.Timestamp }, WithOrder(wire.Big))).
		Field(Count("n", wire.U8, func(m *msgC) *uint8 { return &m.N })).
		Field(Collection("options", wire.Slice(wire.U8), func(m *msgC) *[]uint8 { return &m.Options }, CountFrom("n"))).
		MustBuild()

	messageDef = NewUnion[message]("message").
		Variant(Case[message](msgADef, 1)).
		Variant(Case[message](msgBDef)).
		Variant(Case[message](msgCDef)).
		MustBuild()
)

func TestUnionRoundTrip(t *testing.T) {
	in := []byte{0x01, 0x45, 0x34, 0x23, 0x12, 0x78, 0x56, 0x34, 0x12}
	v := decode(t, messageDef, in)
	assert.Equal(t, msgA{X: 0x12233445, Y: 0x12345678}, v)
	assert.Equal(t, in, encode(t, messageDef, v))

	assert.Equal(t, []byte{2}, encode(t, messageDef, message(msgB{})))
	assert.Equal(t, msgB{}, decode(t, messageDef, []byte{2}))
	assert.Equal(t, 1, messageDef.Width())
}

func TestUnionMutateTrailingOptions(t *testing.T) {
	in := []byte{3, 0x5F, 0, 0, 1, 3, 0xA, 0xB, 0xC}
	v := decode(t, messageDef, in)
	c, ok := v.(msgC)
	require.True(t, ok)
	assert.Equal(t, msgC{Timestamp: 0x5F000001, N: 3, Options: []uint8{0xA, 0xB, 0xC}}, c)

	c.Options[1] = 0xFF
	c.Options[2] = 0xEE
	out := encode(t, messageDef, message(c))
	require.Len(t, out, len(in))
	assert.Equal(t, in[:7], out[:7])
	assert.Equal(t, []byte{0xFF, 0xEE}, out[7:])
}

func TestUnionUnknownVariant(t *testing.T) {
	ctx := wire.NewContext(true, wire.Little)
	v, err := messageDef.Decode(bytes.NewReader([]byte{0, 1, 2}), ctx)
	require.ErrorIs(t, err, wire.ErrUnknownVariant)
	assert.Nil(t, v)

	_, err = messageDef.Encode(io.Discard, nil, wire.NewContext(false, wire.Little))
	require.ErrorIs(t, err, wire.ErrInvalidEncoding)
}

func TestUnionHint(t *testing.T) {
	assert.True(t, messageDef.Hint().Variable)

	fixed := NewUnion[message]("fixed").
		Variant(Case[message](msgADef)).
		MustBuild()
	assert.Equal(t, wire.Static(9), fixed.Hint())

	mixed := NewUnion[message]("mixed").
		Variant(Case[message](msgADef)).
		Variant(Case[message](msgBDef)).
		MustBuild()
	assert.Equal(t, wire.SizeHint{Variable: true, Footprint: 1}, mixed.Hint())
}

func TestUnionDiscriminantWidth(t *testing.T) {
	wide := NewUnion[message]("wide").
		Variant(Case[message](msgADef, 0x1234)).
		Variant(Case[message](msgBDef)).
		MustBuild()
	assert.Equal(t, 2, wide.Width())
	assert.Equal(t, []byte{0x12, 0x35}, encode(t, wire.Codec[message](NewUnion[message]("wide-be", DefaultOrder(wire.Big)).
		Variant(Case[message](msgADef, 0x1234)).
		Variant(Case[message](msgBDef)).
		MustBuild()), message(msgB{})))

	forced := NewUnion[message]("forced", DiscriminantWidth(4)).
		Variant(Case[message](msgBDef)).
		MustBuild()
	assert.Equal(t, []byte{0, 0, 0, 0}, encode(t, forced, message(msgB{})))
}

func TestNestedViewKeepsAliasing(t *testing.T) {
	type blob struct{ Data []byte }
	blobDef := NewStruct[blob]("blob").
		Field(View("data", zc.BytesView, wire.Bytes, func(b *blob) *[]byte { return &b.Data })).
		MustBuild()
	type wrapped struct{ Inner blob }
	def := NewStruct[wrapped]("wrapped").
		Field(Value("inner", wire.Codec[blob](blobDef), func(w *wrapped) *blob { return &w.Inner })).
		MustBuild()

	buf := []byte{2, 0, 0, 0, 'o', 'k'}
	v, err := def.DecodeView(zc.NewCursor(buf), wire.NewContext(true, wire.Little))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), v.Inner.Data)
	assert.Same(t, &buf[4], &v.Inner.Data[0])
}

type notMessage struct{}

func TestUnionDefinitionErrors(t *testing.T) {
	cases := map[string]*UnionBuilder[message]{
		"duplicate ids": NewUnion[message]("u").
			Variant(Case[message](msgADef, 2)).
			Variant(Case[message](msgBDef, 2)),
		"default collides": NewUnion[message]("u").
			Variant(Case[message](msgADef, 1)).
			Variant(Case[message](msgBDef, 0)).
			Variant(Case[message](msgCDef)),
		"duplicate types": NewUnion[message]("u").
			Variant(Case[message](msgADef)).
			Variant(Case[message](msgADef)),
		"not implemented": NewUnion[message]("u").
			Variant(Case[message](NewStruct[notMessage]("n").MustBuild())),
		"two ids": NewUnion[message]("u").
			Variant(Case[message](msgADef, 1, 2)),
		"bad width": NewUnion[message]("u", DiscriminantWidth(3)).
			Variant(Case[message](msgADef)),
		"narrow width": NewUnion[message]("u", DiscriminantWidth(1)).
			Variant(Case[message](msgADef, 256)),
		"empty": NewUnion[message]("u"),
	}
	for name, builder := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := builder.Build()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDefinition)
		})
	}

	_, err := NewUnion[msgA]("concrete").Variant(Case[msgA](msgADef)).Build()
	assert.ErrorIs(t, err, ErrDefinition)
}
