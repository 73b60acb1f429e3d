package wire

import (
	"fmt"
	"io"
	"math"
	"slices"
)

// LengthPrefixWidth is the width of the default u32 length prefix written in
// front of self-describing collections.
const LengthPrefixWidth = 4

// runChunk bounds how much is allocated ahead of bytes actually arriving, so
// a forged element count cannot force a huge allocation.
const runChunk = 64 << 10

// MaxEmptyElements caps the count of a collection whose elements encode to
// zero bytes. Such a count is backed by no input at all.
const MaxEmptyElements = 1 << 16

// Codec converts between T and its wire representation.
type Codec[T any] interface {
	// Hint reports the static size facts of T.
	Hint() SizeHint
	// Decode consumes T from r, advancing ctx.Cursor by the bytes read.
	Decode(r io.Reader, ctx *Context) (T, error)
	// Encode writes v to w and returns the number of bytes written.
	Encode(w io.Writer, v T, ctx *Context) (int, error)
}

// Fixed is a statically sized codec that can decode from a run of bytes the
// caller has already bounds-checked. DecodeUnchecked does not move the
// cursor; whoever validated the run accounts for it.
type Fixed[T any] interface {
	Codec[T]
	DecodeUnchecked(b []byte, ctx *Context) (T, error)
}

// Counted is a codec whose values have a runtime element count, so that a
// sibling field can carry the count instead of a length prefix.
type Counted[T any] interface {
	Codec[T]
	Count(v T) int
}

// AsFixed returns c as a Fixed codec when it supports unchecked decoding and
// is statically sized.
func AsFixed[T any](c Codec[T]) (Fixed[T], bool) {
	f, ok := c.(Fixed[T])
	if !ok || c.Hint().Variable {
		return nil, false
	}
	return f, true
}

type lenReader interface {
	Len() int
}

func readFull(r io.Reader, b []byte, ctx *Context, op string) error {
	n, err := io.ReadFull(r, b)
	ctx.Advance(n)
	if err != nil {
		return Wrap(ctx, KindInsufficientInput, op, err)
	}
	return nil
}

// ReadRun reads exactly n bytes from r as one bounds-checked run. Readers
// that know their remaining length are checked before anything is consumed.
func ReadRun(r io.Reader, n int, ctx *Context, op string) ([]byte, error) {
	if n < 0 {
		return nil, Fail(ctx, KindInvalidEncoding, op, "negative run length")
	}
	if lr, ok := r.(lenReader); ok && lr.Len() < n {
		return nil, Fail(ctx, KindInsufficientInput, op,
			fmt.Sprintf("need %d bytes, %d available", n, lr.Len()))
	}
	if n <= runChunk {
		buf := make([]byte, n)
		if err := readFull(r, buf, ctx, op); err != nil {
			return nil, err
		}
		return buf, nil
	}
	buf := make([]byte, 0, runChunk)
	for len(buf) < n {
		step := min(n-len(buf), runChunk)
		at := len(buf)
		buf = slices.Grow(buf, step)[:at+step]
		if err := readFull(r, buf[at:], ctx, op); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// WriteAll writes b in full, mapping a refusing sink to InsufficientInput.
func WriteAll(w io.Writer, b []byte, ctx *Context, op string) (int, error) {
	n, err := w.Write(b)
	ctx.Advance(n)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, Wrap(ctx, KindInsufficientInput, op, err)
	}
	return n, nil
}

// ReadCount resolves the element count of the next collection: a pending
// count wins and is cleared, otherwise a u32 prefix is decoded.
func ReadCount(r io.Reader, ctx *Context, op string) (int, error) {
	if n, ok := ctx.TakePending(); ok {
		if n > math.MaxInt32 {
			return 0, Fail(ctx, KindInvalidEncoding, op, fmt.Sprintf("external count %d out of range", n))
		}
		return int(n), nil
	}
	n, err := U32.Decode(r, ctx)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		return 0, Fail(ctx, KindInvalidEncoding, op, fmt.Sprintf("length prefix %d out of range", n))
	}
	return int(n), nil
}

// WriteCount writes the u32 prefix for n elements unless the context carries
// an external count, in which case the prefix is suppressed and the external
// count must agree with n.
func WriteCount(w io.Writer, n int, ctx *Context, op string) (int, error) {
	if ext, ok := ctx.TakePending(); ok {
		if ext != uint64(n) {
			return 0, Fail(ctx, KindInvalidEncoding, op,
				fmt.Sprintf("external count %d disagrees with %d elements", ext, n))
		}
		return 0, nil
	}
	if uint64(n) > math.MaxUint32 {
		return 0, Fail(ctx, KindCountFieldOverflow, op,
			fmt.Sprintf("%d elements exceed the u32 length prefix", n))
	}
	return U32.Encode(w, uint32(n), ctx)
}
