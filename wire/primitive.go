package wire

import (
	"io"

	"golang.org/x/exp/constraints"

	"github.com/rawbytedev/bincast/internal/common"
)

// scalar is the single primitive codec, parameterized by width through T.
type scalar[T common.Scalar] struct {
	size int
	dec  string
	enc  string
}

func newScalar[T common.Scalar](name string) scalar[T] {
	return scalar[T]{size: common.SizeOf[T](), dec: "decode " + name, enc: "encode " + name}
}

// Scalar returns the primitive codec for any fixed-width numeric type,
// including named types such as `type Port uint16`.
func Scalar[T common.Scalar]() Fixed[T] {
	return newScalar[T]("scalar")
}

var (
	U8  Fixed[uint8]   = newScalar[uint8]("u8")
	U16 Fixed[uint16]  = newScalar[uint16]("u16")
	U32 Fixed[uint32]  = newScalar[uint32]("u32")
	U64 Fixed[uint64]  = newScalar[uint64]("u64")
	I8  Fixed[int8]    = newScalar[int8]("i8")
	I16 Fixed[int16]   = newScalar[int16]("i16")
	I32 Fixed[int32]   = newScalar[int32]("i32")
	I64 Fixed[int64]   = newScalar[int64]("i64")
	F32 Fixed[float32] = newScalar[float32]("f32")
	F64 Fixed[float64] = newScalar[float64]("f64")
)

func (s scalar[T]) Hint() SizeHint { return Static(s.size) }

func (s scalar[T]) Decode(r io.Reader, ctx *Context) (T, error) {
	var buf [8]byte
	b := buf[:s.size]
	if err := readFull(r, b, ctx, s.dec); err != nil {
		var zero T
		return zero, err
	}
	return common.Load[T](b, ctx.little()), nil
}

func (s scalar[T]) DecodeUnchecked(b []byte, ctx *Context) (T, error) {
	return common.Load[T](b, ctx.little()), nil
}

func (s scalar[T]) Encode(w io.Writer, v T, ctx *Context) (int, error) {
	var buf [8]byte
	b := buf[:s.size]
	common.Store(b, v, ctx.little())
	return WriteAll(w, b, ctx, s.enc)
}

type boolCodec struct{}

// Bool decodes through the u8 path; any non-zero byte is true. It encodes
// as 0 or 1.
var Bool Fixed[bool] = boolCodec{}

func (boolCodec) Hint() SizeHint { return Static(1) }

func (boolCodec) Decode(r io.Reader, ctx *Context) (bool, error) {
	v, err := U8.Decode(r, ctx)
	return v != 0, err
}

func (boolCodec) DecodeUnchecked(b []byte, _ *Context) (bool, error) {
	return b[0] != 0, nil
}

func (boolCodec) Encode(w io.Writer, v bool, ctx *Context) (int, error) {
	var b uint8
	if v {
		b = 1
	}
	return U8.Encode(w, b, ctx)
}

// NonZero holds an integer that is never zero on the wire.
type NonZero[T constraints.Integer] struct {
	v T
}

// NewNonZero wraps v, reporting false when v is zero.
func NewNonZero[T constraints.Integer](v T) (NonZero[T], bool) {
	return NonZero[T]{v: v}, v != 0
}

// Get returns the wrapped value.
func (n NonZero[T]) Get() T { return n.v }

type nonZero[T constraints.Integer] struct {
	inner Fixed[T]
}

// NonZeroOf decodes through inner and rejects zero with InvalidEncoding.
func NonZeroOf[T constraints.Integer](inner Fixed[T]) Fixed[NonZero[T]] {
	return nonZero[T]{inner: inner}
}

func (n nonZero[T]) Hint() SizeHint { return n.inner.Hint() }

func (n nonZero[T]) Decode(r io.Reader, ctx *Context) (NonZero[T], error) {
	v, err := n.inner.Decode(r, ctx)
	if err != nil {
		return NonZero[T]{}, err
	}
	return n.check(v, ctx)
}

func (n nonZero[T]) DecodeUnchecked(b []byte, ctx *Context) (NonZero[T], error) {
	v, err := n.inner.DecodeUnchecked(b, ctx)
	if err != nil {
		return NonZero[T]{}, err
	}
	return n.check(v, ctx)
}

func (n nonZero[T]) check(v T, ctx *Context) (NonZero[T], error) {
	if v == 0 {
		return NonZero[T]{}, Fail(ctx, KindInvalidEncoding, "decode non-zero", "value is zero")
	}
	return NonZero[T]{v: v}, nil
}

func (n nonZero[T]) Encode(w io.Writer, v NonZero[T], ctx *Context) (int, error) {
	if v.v == 0 {
		return 0, Fail(ctx, KindInvalidEncoding, "encode non-zero", "value is zero")
	}
	return n.inner.Encode(w, v.v, ctx)
}
