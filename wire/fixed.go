package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
)

type uuidCodec struct{}

// UUID carries a uuid.UUID as its 16 raw bytes. Byte order does not apply.
var UUID Fixed[uuid.UUID] = uuidCodec{}

func (uuidCodec) Hint() SizeHint { return Static(16) }

func (uuidCodec) Decode(r io.Reader, ctx *Context) (uuid.UUID, error) {
	var id uuid.UUID
	if err := readFull(r, id[:], ctx, "decode uuid"); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (uuidCodec) DecodeUnchecked(b []byte, _ *Context) (uuid.UUID, error) {
	var id uuid.UUID
	copy(id[:], b)
	return id, nil
}

func (uuidCodec) Encode(w io.Writer, v uuid.UUID, ctx *Context) (int, error) {
	return WriteAll(w, v[:], ctx, "encode uuid")
}

type magic struct {
	want []byte
}

// Magic is a format constant: decode fails with InvalidEncoding unless the
// exact bytes are present, encode always writes them.
func Magic(b ...byte) Fixed[struct{}] {
	return magic{want: bytes.Clone(b)}
}

func (m magic) Hint() SizeHint { return Static(len(m.want)) }

func (m magic) Decode(r io.Reader, ctx *Context) (struct{}, error) {
	got := make([]byte, len(m.want))
	if err := readFull(r, got, ctx, "decode magic"); err != nil {
		return struct{}{}, err
	}
	return m.DecodeUnchecked(got, ctx)
}

func (m magic) DecodeUnchecked(b []byte, ctx *Context) (struct{}, error) {
	if !bytes.Equal(b[:len(m.want)], m.want) {
		return struct{}{}, Fail(ctx, KindInvalidEncoding, "decode magic",
			fmt.Sprintf("unrecognized constant %x, want %x", b[:len(m.want)], m.want))
	}
	return struct{}{}, nil
}

func (m magic) Encode(w io.Writer, _ struct{}, ctx *Context) (int, error) {
	return WriteAll(w, m.want, ctx, "encode magic")
}

type array[T any] struct {
	elem Codec[T]
	n    int
}

// Array is a sequence of exactly n elements with no length prefix. It is
// statically sized when elem is.
func Array[T any](n int, elem Codec[T]) Codec[[]T] {
	a := array[T]{elem: elem, n: n}
	if _, ok := AsFixed(elem); ok {
		return fixedArray[T]{array: a}
	}
	return a
}

func (a array[T]) Hint() SizeHint {
	eh := a.elem.Hint()
	if eh.Variable {
		return SizeHint{Variable: true, Footprint: eh.Footprint}
	}
	return Static(a.n * eh.Footprint)
}

func (a array[T]) Count([]T) int { return a.n }

func (a array[T]) Decode(r io.Reader, ctx *Context) ([]T, error) {
	if f, ok := AsFixed(a.elem); ok {
		run, err := ReadRun(r, a.n*a.elem.Hint().Footprint, ctx, "decode array")
		if err != nil {
			return nil, err
		}
		return decodeRun(run, a.n, f, ctx)
	}
	out := make([]T, 0, min(a.n, runChunk))
	for range a.n {
		v, err := a.elem.Decode(r, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (a array[T]) Encode(w io.Writer, v []T, ctx *Context) (int, error) {
	if len(v) != a.n {
		return 0, Fail(ctx, KindInvalidEncoding, "encode array",
			fmt.Sprintf("have %d elements, want %d", len(v), a.n))
	}
	total := 0
	for _, e := range v {
		n, err := a.elem.Encode(w, e, ctx)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type fixedArray[T any] struct {
	array[T]
}

func (a fixedArray[T]) DecodeUnchecked(b []byte, ctx *Context) ([]T, error) {
	f, _ := AsFixed(a.elem)
	return decodeRun(b, a.n, f, ctx)
}

// decodeRun walks n statically sized elements laid out back to back in run.
func decodeRun[T any](run []byte, n int, elem Fixed[T], ctx *Context) ([]T, error) {
	size := elem.Hint().Footprint
	out := make([]T, n)
	for i := range out {
		v, err := elem.DecodeUnchecked(run[i*size:], ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
