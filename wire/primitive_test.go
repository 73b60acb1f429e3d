package wire

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"testing/quick"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeWith[T any](t *testing.T, c Codec[T], v T, order Endian) []byte {
	t.Helper()
	var buf bytes.Buffer
	ctx := NewContext(false, order)
	n, err := c.Encode(&buf, v, ctx)
	require.NoError(t, err)
	require.Equal(t, buf.Len(), n)
	require.Equal(t, n, ctx.Cursor)
	return buf.Bytes()
}

func decodeWith[T any](t *testing.T, c Codec[T], b []byte, order Endian) T {
	t.Helper()
	ctx := NewContext(true, order)
	v, err := c.Decode(bytes.NewReader(b), ctx)
	require.NoError(t, err)
	require.Equal(t, len(b), ctx.Cursor)
	return v
}

func checkScalar[T comparable](t *testing.T, c Fixed[T]) {
	t.Helper()
	for _, order := range []Endian{Little, Big} {
		condition := func(v T) bool {
			b := encodeWith(t, c, v, order)
			if len(b) != c.Hint().Footprint {
				return false
			}
			again := encodeWith(t, c, decodeWith(t, c, b, order), order)
			return bytes.Equal(b, again)
		}
		require.NoError(t, quick.Check(condition, nil))
	}
}

func TestScalarRoundTrip(t *testing.T) {
	checkScalar(t, U8)
	checkScalar(t, U16)
	checkScalar(t, U32)
	checkScalar(t, U64)
	checkScalar(t, I8)
	checkScalar(t, I16)
	checkScalar(t, I32)
	checkScalar(t, I64)
	checkScalar(t, F32)
	checkScalar(t, F64)
	checkScalar(t, Bool)
}

func TestScalarNamedType(t *testing.T) {
	type Port uint16
	c := Scalar[Port]()
	b := encodeWith(t, c, Port(8080), Big)
	assert.Equal(t, []byte{0x1f, 0x90}, b)
	assert.Equal(t, Port(8080), decodeWith(t, c, b, Big))
}

func TestScalarTruncation(t *testing.T) {
	cases := map[string]func([]byte, *Context) error{
		"u16": func(b []byte, ctx *Context) error { _, err := U16.Decode(bytes.NewReader(b), ctx); return err },
		"u32": func(b []byte, ctx *Context) error { _, err := U32.Decode(bytes.NewReader(b), ctx); return err },
		"u64": func(b []byte, ctx *Context) error { _, err := U64.Decode(bytes.NewReader(b), ctx); return err },
		"f64": func(b []byte, ctx *Context) error { _, err := F64.Decode(bytes.NewReader(b), ctx); return err },
	}
	sizes := map[string]int{"u16": 2, "u32": 4, "u64": 8, "f64": 8}
	for name, decode := range cases {
		t.Run(name, func(t *testing.T) {
			for short := 0; short < sizes[name]; short++ {
				ctx := NewContext(true, Little)
				err := decode(bytes.Repeat([]byte{0x7f}, short), ctx)
				require.ErrorIs(t, err, ErrInsufficientInput)
				assert.Equal(t, short, ctx.Cursor)
			}
		})
	}
}

func TestScalarEndianness(t *testing.T) {
	in := []byte{1, 2, 3, 4}
	le := decodeWith(t, U32, in, Little)
	be := decodeWith(t, U32, in, Big)
	assert.Equal(t, uint32(0x04030201), le)
	assert.Equal(t, uint32(0x01020304), be)
	assert.NotEqual(t, le, be)

	foreign := Little
	if Native == Little {
		foreign = Big
	}
	v := decodeWith(t, U32, in, foreign)
	assert.Equal(t, in, encodeWith(t, U32, v, foreign))
}

func TestBoolAnyNonZero(t *testing.T) {
	assert.True(t, decodeWith(t, Bool, []byte{0x80}, Little))
	assert.False(t, decodeWith(t, Bool, []byte{0}, Little))
	assert.Equal(t, []byte{1}, encodeWith(t, Bool, true, Little))
}

func TestNonZero(t *testing.T) {
	c := NonZeroOf(U16)
	_, err := c.Decode(bytes.NewReader([]byte{0, 0}), NewContext(true, Little))
	require.ErrorIs(t, err, ErrInvalidEncoding)

	v := decodeWith(t, c, []byte{1, 0}, Little)
	assert.Equal(t, uint16(1), v.Get())

	_, err = c.Encode(io.Discard, NonZero[uint16]{}, NewContext(false, Little))
	require.ErrorIs(t, err, ErrInvalidEncoding)

	nz, ok := NewNonZero[int32](-4)
	require.True(t, ok)
	assert.Equal(t, int32(-4), decodeWith(t, NonZeroOf(I32), encodeWith(t, NonZeroOf(I32), nz, Big), Big).Get())

	_, ok = NewNonZero[uint8](0)
	assert.False(t, ok)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("sink closed") }

func TestEncodeSinkFailure(t *testing.T) {
	_, err := U64.Encode(failingWriter{}, 1, NewContext(false, Little))
	require.ErrorIs(t, err, ErrInsufficientInput)
	assert.Equal(t, KindInsufficientInput, KindOf(err))
	assert.ErrorContains(t, err, "sink closed")
}

func TestScalarOpNames(t *testing.T) {
	_, err := U16.Encode(failingWriter{}, 1, NewContext(false, Little))
	assert.ErrorContains(t, err, "encode u16")
	_, err = U16.Decode(bytes.NewReader([]byte{1}), NewContext(true, Little))
	assert.ErrorContains(t, err, "decode u16")

	type port uint16
	_, err = Scalar[port]().Encode(failingWriter{}, 1, NewContext(false, Little))
	assert.ErrorContains(t, err, "encode scalar")
}

func TestAtomics(t *testing.T) {
	a := decodeWith(t, AtomicU32, []byte{0, 0, 0, 9}, Big)
	assert.Equal(t, uint32(9), a.Load())
	a.Inc()
	assert.Equal(t, []byte{0, 0, 0, 10}, encodeWith(t, AtomicU32, a, Big))

	f := decodeWith(t, AtomicF64, encodeWith(t, F64, math.Pi, Little), Little)
	assert.Equal(t, math.Pi, f.Load())

	assert.Equal(t, []byte{0}, encodeWith(t, AtomicBool, nil, Little))
	assert.True(t, decodeWith(t, AtomicBool, []byte{1}, Little).Load())
	assert.Equal(t, int64(-2), decodeWith(t, AtomicI64, encodeWith(t, I64, -2, Big), Big).Load())
}

func TestUUID(t *testing.T) {
	id := uuid.New()
	b := encodeWith(t, UUID, id, Big)
	assert.Equal(t, id[:], b)
	assert.Equal(t, id, decodeWith(t, UUID, b, Little))
	_, err := UUID.Decode(bytes.NewReader(b[:15]), NewContext(true, Little))
	require.ErrorIs(t, err, ErrInsufficientInput)
}

func TestMagic(t *testing.T) {
	m := Magic('B', 'M')
	assert.Equal(t, Static(2), m.Hint())
	assert.Equal(t, []byte("BM"), encodeWith(t, m, struct{}{}, Little))
	decodeWith(t, m, []byte("BM"), Little)

	_, err := m.Decode(bytes.NewReader([]byte("MZ")), NewContext(true, Little))
	require.ErrorIs(t, err, ErrInvalidEncoding)
	assert.ErrorContains(t, err, "unrecognized constant")
}

func TestArray(t *testing.T) {
	a := Array(3, U16)
	assert.Equal(t, Static(6), a.Hint())
	b := encodeWith(t, a, []uint16{1, 2, 3}, Big)
	assert.Equal(t, []byte{0, 1, 0, 2, 0, 3}, b)
	assert.Equal(t, []uint16{1, 2, 3}, decodeWith(t, a, b, Big))

	_, err := a.Encode(io.Discard, []uint16{1}, NewContext(false, Little))
	require.ErrorIs(t, err, ErrInvalidEncoding)

	_, ok := AsFixed(a)
	assert.True(t, ok)

	strs := Array(2, String)
	assert.True(t, strs.Hint().Variable)
	assert.Equal(t, []string{"a", "bc"}, decodeWith(t, strs, encodeWith(t, strs, []string{"a", "bc"}, Little), Little))
}

func TestErrorFormatting(t *testing.T) {
	ctx := NewContext(true, Little)
	ctx.Advance(7)
	err := Fail(ctx, KindUnknownVariant, "decode union", "id 9")
	assert.Equal(t, "bincast: decode union: unknown variant at offset 7: id 9", err.Error())
	assert.True(t, errors.Is(err, ErrUnknownVariant))
	assert.False(t, errors.Is(err, ErrMisalignment))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
