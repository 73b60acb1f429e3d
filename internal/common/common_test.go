package common

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedKinds(t *testing.T) {
	assert.True(t, IsFixedKind(reflect.Uint32))
	assert.True(t, IsFixedKind(reflect.Bool))
	assert.False(t, IsFixedKind(reflect.String))
	assert.False(t, IsFixedKind(reflect.Slice))
	assert.Equal(t, 8, FixedSize(reflect.Float64))
	assert.Equal(t, 2, FixedSize(reflect.Int16))
	assert.Equal(t, -1, FixedSize(reflect.Map))
}

func TestLoadMatchesEncodingBinary(t *testing.T) {
	b := []byte{0x12, 0x23, 0x34, 0x45, 0x56, 0x67, 0x78, 0x89}
	assert.Equal(t, binary.LittleEndian.Uint32(b), Load[uint32](b, true))
	assert.Equal(t, binary.BigEndian.Uint32(b), Load[uint32](b, false))
	assert.Equal(t, binary.BigEndian.Uint64(b), Load[uint64](b, false))
	assert.Equal(t, int16(binary.LittleEndian.Uint16(b)), Load[int16](b, true))
	assert.Equal(t, math.Float32frombits(binary.BigEndian.Uint32(b)), Load[float32](b, false))
}

func TestStoreLoadRoundTrip(t *testing.T) {
	check := func(v int64, little bool) bool {
		var b [8]byte
		Store(b[:], v, little)
		return Load[int64](b[:], little) == v
	}
	require.NoError(t, quick.Check(check, nil))
}

func TestCastAlignment(t *testing.T) {
	backing := make([]uint64, 2)
	raw := CastBytes(backing)

	p, ok := Cast[uint32](raw)
	require.True(t, ok)
	*p = 0xAABBCCDD
	assert.Equal(t, uint32(0xAABBCCDD), Load[uint32](raw, NativeLittle))

	_, ok = Cast[uint32](raw[1:])
	assert.False(t, ok, "odd offset must be rejected")

	_, ok = Cast[uint64](raw[12:])
	assert.False(t, ok, "short range must be rejected")

	s, ok := CastSlice[uint16](raw[2:], 3)
	require.True(t, ok)
	assert.Len(t, s, 3)
	_, ok = CastSlice[uint16](raw[1:], 3)
	assert.False(t, ok)
}

func TestStringAliases(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "abc", String([]byte("abc")))
}
