package zc

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/bincast/internal/common"
	"github.com/rawbytedev/bincast/wire"
)

// alignedBuf returns n bytes starting on an 8-byte boundary.
func alignedBuf(n int) []byte {
	return common.CastBytes(make([]uint64, (n+7)/8))[:n]
}

func nativeCtx() *wire.Context { return wire.NewContext(true, wire.Native) }

func putU32(b []byte, v uint32) { common.Store(b, v, common.NativeLittle) }

func TestRefAliasesBuffer(t *testing.T) {
	buf := alignedBuf(8)
	putU32(buf, 0xCAFEBABE)

	ctx := nativeCtx()
	p, err := Ref[uint32](NewCursor(buf), ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), *p)
	assert.Equal(t, unsafe.Pointer(&buf[0]), unsafe.Pointer(p))
	assert.Equal(t, 4, ctx.Cursor)
}

func TestRefMisaligned(t *testing.T) {
	buf := alignedBuf(8)
	c := NewCursor(buf)
	ctx := nativeCtx()
	require.NoError(t, Skip(c, 1, ctx))

	_, err := Ref[uint32](c, ctx)
	require.ErrorIs(t, err, wire.ErrMisalignment)
	assert.Equal(t, 1, c.Pos())
	assert.Equal(t, 1, ctx.Cursor)

	b, err := Ref[uint8](c, ctx)
	require.NoError(t, err)
	assert.Equal(t, unsafe.Pointer(&buf[1]), unsafe.Pointer(b))
}

func TestRefTruncated(t *testing.T) {
	_, err := Ref[uint64](NewCursor(alignedBuf(7)), nativeCtx())
	require.ErrorIs(t, err, wire.ErrInsufficientInput)
	err = Skip(NewCursor(alignedBuf(2)), 3, nativeCtx())
	require.ErrorIs(t, err, wire.ErrInsufficientInput)
}

func TestSliceView(t *testing.T) {
	buf := alignedBuf(16)
	putU32(buf, 3)
	putU32(buf[4:], 10)
	putU32(buf[8:], 20)
	putU32(buf[12:], 30)

	ctx := nativeCtx()
	c := NewCursor(buf)
	s, err := Slice[uint32](c, ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{10, 20, 30}, s)
	assert.Equal(t, unsafe.Pointer(&buf[4]), unsafe.Pointer(&s[0]))
	assert.Equal(t, 16, c.Pos())
	assert.Equal(t, 16, ctx.Cursor)

	if common.AlignOf[uint64]() == 8 {
		putU32(buf, 1)
		_, err = Slice[uint64](NewCursor(buf), nativeCtx())
		require.ErrorIs(t, err, wire.ErrMisalignment)
	}
}

func TestSlicePendingCount(t *testing.T) {
	buf := alignedBuf(8)
	putU32(buf, 1)
	putU32(buf[4:], 2)

	ctx := nativeCtx()
	ctx.SetPending(2)
	s, err := Slice[uint32](NewCursor(buf), ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, s)
	assert.False(t, ctx.HasPending())

	ctx.SetPending(3)
	_, err = Slice[uint32](NewCursor(buf), ctx)
	require.ErrorIs(t, err, wire.ErrInsufficientInput)
}

func TestSliceForgedCount(t *testing.T) {
	buf := alignedBuf(16)
	putU32(buf, 1<<31-1)
	_, err := Slice[uint64](NewCursor(buf), nativeCtx())
	require.ErrorIs(t, err, wire.ErrInsufficientInput)
	_, err = Bytes(NewCursor(buf), nativeCtx())
	require.ErrorIs(t, err, wire.ErrInsufficientInput)

	putU32(buf, 1<<31)
	_, err = Bytes(NewCursor(buf), nativeCtx())
	require.ErrorIs(t, err, wire.ErrInvalidEncoding)
}

func TestBytesView(t *testing.T) {
	buf := []byte{2, 0, 0, 0, 'h', 'i', '!'}
	ctx := wire.NewContext(true, wire.Little)
	c := NewCursor(buf)
	b, err := Bytes(c, ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), b)
	assert.Equal(t, 2, cap(b))

	_ = append(b, 'X')
	assert.Equal(t, byte('!'), buf[6])

	b[0] = 'H'
	assert.Equal(t, byte('H'), buf[4])
}

func TestStringView(t *testing.T) {
	buf := []byte{0, 0, 0, 3, 'a', 'b', 'c'}
	ctx := wire.NewContext(true, wire.Big)
	s, err := String(NewCursor(buf), ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	assert.Equal(t, unsafe.Pointer(&buf[4]), unsafe.Pointer(unsafe.StringData(s)))

	bad := []byte{0, 0, 0, 2, 0xff, 0xfe}
	c := NewCursor(bad)
	_, err = String(c, wire.NewContext(true, wire.Big))
	require.ErrorIs(t, err, wire.ErrInvalidEncoding)
	assert.Equal(t, 4, c.Pos())
}

func TestCStringView(t *testing.T) {
	c := NewCursor([]byte("ab\x00cd"))
	ctx := nativeCtx()
	s, err := CString(c, ctx)
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
	assert.Equal(t, 3, c.Pos())
	assert.Equal(t, []byte("cd"), c.Rest())

	_, err = CString(c, ctx)
	require.ErrorIs(t, err, wire.ErrInsufficientInput)
}

func TestCursorFeedsStreamCodecs(t *testing.T) {
	c := NewCursor([]byte{0x12, 0x34, 0, 0, 0, 1, 'z'})
	ctx := wire.NewContext(true, wire.Big)
	v, err := wire.U16.Decode(c, ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)

	s, err := String(c, ctx)
	require.NoError(t, err)
	assert.Equal(t, "z", s)
	assert.Equal(t, 7, ctx.Cursor)
	assert.Zero(t, c.Len())
}

func TestMutableViewsWriteInPlace(t *testing.T) {
	buf := alignedBuf(16)
	putU32(buf, 2)
	putU32(buf[4:], 7)
	putU32(buf[8:], 8)
	putU32(buf[12:], 0xFFFFFFFF)
	before := bytes.Clone(buf)

	mc := NewMutCursor(buf)
	s, err := MutSlice[uint32](mc, nativeCtx())
	require.NoError(t, err)
	s[1] = 9

	assert.Equal(t, before[:8], buf[:8])
	assert.Equal(t, before[12:], buf[12:])
	assert.Equal(t, uint32(9), common.Load[uint32](buf[8:], common.NativeLittle))

	p, err := MutRef[uint32](mc, nativeCtx())
	require.NoError(t, err)
	*p = 1
	assert.Equal(t, uint32(1), common.Load[uint32](buf[12:], common.NativeLittle))
}

func TestViewDefinitions(t *testing.T) {
	foreign := wire.Little
	if wire.Native == wire.Little {
		foreign = wire.Big
	}
	_, err := RefOf[uint32](foreign)
	require.True(t, errors.Is(err, ErrForeignOrder))
	_, err = SliceOf[int16](foreign)
	require.True(t, errors.Is(err, ErrForeignOrder))

	_, err = RefOf[uint8](foreign)
	require.NoError(t, err)

	v, err := SliceOf[uint32](wire.Native)
	require.NoError(t, err)
	buf := alignedBuf(8)
	putU32(buf, 1)
	putU32(buf[4:], 42)
	s, err := v.View(NewCursor(buf), nativeCtx())
	require.NoError(t, err)
	assert.Equal(t, []uint32{42}, s)
}
