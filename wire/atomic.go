package wire

import (
	"io"

	"go.uber.org/atomic"
)

// atomicCodec carries an atomic cell over the wire as its plain scalar. The
// cell is loaded once on encode and a fresh cell is allocated on decode.
type atomicCodec[A any, T any] struct {
	inner Fixed[T]
	wrap  func(T) A
	load  func(A) T
}

var (
	AtomicU32 Fixed[*atomic.Uint32] = atomicCodec[*atomic.Uint32, uint32]{
		inner: U32, wrap: atomic.NewUint32,
		load: func(a *atomic.Uint32) uint32 {
			if a == nil {
				return 0
			}
			return a.Load()
		},
	}
	AtomicI32 Fixed[*atomic.Int32] = atomicCodec[*atomic.Int32, int32]{
		inner: I32, wrap: atomic.NewInt32,
		load: func(a *atomic.Int32) int32 {
			if a == nil {
				return 0
			}
			return a.Load()
		},
	}
	AtomicU64 Fixed[*atomic.Uint64] = atomicCodec[*atomic.Uint64, uint64]{
		inner: U64, wrap: atomic.NewUint64,
		load: func(a *atomic.Uint64) uint64 {
			if a == nil {
				return 0
			}
			return a.Load()
		},
	}
	AtomicI64 Fixed[*atomic.Int64] = atomicCodec[*atomic.Int64, int64]{
		inner: I64, wrap: atomic.NewInt64,
		load: func(a *atomic.Int64) int64 {
			if a == nil {
				return 0
			}
			return a.Load()
		},
	}
	AtomicF64 Fixed[*atomic.Float64] = atomicCodec[*atomic.Float64, float64]{
		inner: F64, wrap: atomic.NewFloat64,
		load: func(a *atomic.Float64) float64 {
			if a == nil {
				return 0
			}
			return a.Load()
		},
	}
	AtomicBool Fixed[*atomic.Bool] = atomicCodec[*atomic.Bool, bool]{
		inner: Bool, wrap: atomic.NewBool,
		load: func(a *atomic.Bool) bool {
			return a != nil && a.Load()
		},
	}
)

func (a atomicCodec[A, T]) Hint() SizeHint { return a.inner.Hint() }

func (a atomicCodec[A, T]) Decode(r io.Reader, ctx *Context) (A, error) {
	v, err := a.inner.Decode(r, ctx)
	if err != nil {
		var zero A
		return zero, err
	}
	return a.wrap(v), nil
}

func (a atomicCodec[A, T]) DecodeUnchecked(b []byte, ctx *Context) (A, error) {
	v, err := a.inner.DecodeUnchecked(b, ctx)
	if err != nil {
		var zero A
		return zero, err
	}
	return a.wrap(v), nil
}

func (a atomicCodec[A, T]) Encode(w io.Writer, v A, ctx *Context) (int, error) {
	return a.inner.Encode(w, a.load(v), ctx)
}
