package zc

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/rawbytedev/bincast/internal/common"
	"github.com/rawbytedev/bincast/wire"
)

// ErrForeignOrder is returned when a typed view is defined with a byte order
// other than the platform's. Such fields must be decoded by copy.
var ErrForeignOrder = errors.New("zc: typed view requires native byte order")

// count resolves the element count of the next view: a pending count wins,
// otherwise a u32 prefix is read from the buffer in ctx.Order.
func count(c *Cursor, ctx *wire.Context, op string) (int, error) {
	if n, ok := ctx.TakePending(); ok {
		if n > math.MaxInt32 {
			return 0, wire.Fail(ctx, wire.KindInvalidEncoding, op, fmt.Sprintf("external count %d out of range", n))
		}
		return int(n), nil
	}
	b, err := c.take(wire.LengthPrefixWidth, ctx, op)
	if err != nil {
		return 0, err
	}
	n := common.Load[uint32](b, ctx.Order == wire.Little)
	if n > math.MaxInt32 {
		return 0, wire.Fail(ctx, wire.KindInvalidEncoding, op, fmt.Sprintf("length prefix %d out of range", n))
	}
	return int(n), nil
}

// Skip consumes n bytes without producing a view.
func Skip(c *Cursor, n int, ctx *wire.Context) error {
	_, err := c.take(n, ctx, "skip")
	return err
}

// Ref returns a reference to the scalar at the cursor.
func Ref[T common.Scalar](c *Cursor, ctx *wire.Context) (*T, error) {
	const op = "view ref"
	size := common.SizeOf[T]()
	b, err := c.peek(size, ctx, op)
	if err != nil {
		return nil, err
	}
	p, ok := common.Cast[T](b)
	if !ok {
		return nil, wire.Fail(ctx, wire.KindMisalignment, op,
			fmt.Sprintf("address not aligned to %d", common.AlignOf[T]()))
	}
	c.advance(size, ctx)
	return p, nil
}

// Slice returns a view of count-prefixed scalars at the cursor.
func Slice[T common.Scalar](c *Cursor, ctx *wire.Context) ([]T, error) {
	const op = "view slice"
	n, err := count(c, ctx, op)
	if err != nil {
		return nil, err
	}
	return run[T](c, n, ctx, op)
}

// Array returns a view of exactly n scalars at the cursor.
func Array[T common.Scalar](c *Cursor, n int, ctx *wire.Context) ([]T, error) {
	return run[T](c, n, ctx, "view array")
}

func run[T common.Scalar](c *Cursor, n int, ctx *wire.Context, op string) ([]T, error) {
	size := common.SizeOf[T]()
	if n > math.MaxInt/size {
		return nil, wire.Fail(ctx, wire.KindInsufficientInput, op, "view exceeds buffer")
	}
	b, err := c.peek(n*size, ctx, op)
	if err != nil {
		return nil, err
	}
	s, ok := common.CastSlice[T](b, n)
	if !ok {
		return nil, wire.Fail(ctx, wire.KindMisalignment, op,
			fmt.Sprintf("address not aligned to %d", common.AlignOf[T]()))
	}
	c.advance(n*size, ctx)
	return s, nil
}

// Bytes returns a view of count-prefixed raw bytes at the cursor.
func Bytes(c *Cursor, ctx *wire.Context) ([]byte, error) {
	const op = "view bytes"
	n, err := count(c, ctx, op)
	if err != nil {
		return nil, err
	}
	return c.take(n, ctx, op)
}

// String returns a view of count-prefixed UTF-8 at the cursor.
func String(c *Cursor, ctx *wire.Context) (string, error) {
	const op = "view string"
	n, err := count(c, ctx, op)
	if err != nil {
		return "", err
	}
	b, err := c.peek(n, ctx, op)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", wire.Fail(ctx, wire.KindInvalidEncoding, op, "invalid utf-8")
	}
	c.advance(n, ctx)
	return common.String(b), nil
}

// CString returns a view of the zero-terminated UTF-8 at the cursor. The
// terminator is consumed but not part of the view.
func CString(c *Cursor, ctx *wire.Context) (string, error) {
	const op = "view cstring"
	i := bytes.IndexByte(c.Rest(), 0)
	if i < 0 {
		return "", wire.Fail(ctx, wire.KindInsufficientInput, op, "missing terminator")
	}
	b, _ := c.peek(i, ctx, op)
	if !utf8.Valid(b) {
		return "", wire.Fail(ctx, wire.KindInvalidEncoding, op, "invalid utf-8")
	}
	c.advance(i+1, ctx)
	return common.String(b), nil
}

// MutRef is Ref for a cursor whose buffer may be written through the view.
func MutRef[T common.Scalar](c *MutCursor, ctx *wire.Context) (*T, error) {
	return Ref[T](&c.Cursor, ctx)
}

// MutSlice is Slice for a cursor whose buffer may be written through the view.
func MutSlice[T common.Scalar](c *MutCursor, ctx *wire.Context) ([]T, error) {
	return Slice[T](&c.Cursor, ctx)
}

// MutBytes is Bytes for a cursor whose buffer may be written through the view.
func MutBytes(c *MutCursor, ctx *wire.Context) ([]byte, error) {
	return Bytes(&c.Cursor, ctx)
}

// Viewer produces a value of F aliasing the cursor's buffer.
type Viewer[F any] interface {
	View(c *Cursor, ctx *wire.Context) (F, error)
}

// ViewFunc adapts a plain function to Viewer.
type ViewFunc[F any] func(c *Cursor, ctx *wire.Context) (F, error)

func (f ViewFunc[F]) View(c *Cursor, ctx *wire.Context) (F, error) { return f(c, ctx) }

type refView[T common.Scalar] struct{}

func (refView[T]) View(c *Cursor, ctx *wire.Context) (*T, error) { return Ref[T](c, ctx) }

type sliceView[T common.Scalar] struct{}

func (sliceView[T]) View(c *Cursor, ctx *wire.Context) ([]T, error) { return Slice[T](c, ctx) }

func checkOrder[T common.Scalar](order wire.Endian) error {
	if common.SizeOf[T]() > 1 && order != wire.Native {
		var zero T
		return errors.Wrapf(ErrForeignOrder, "%T in %s endian", zero, order)
	}
	return nil
}

// RefOf defines a reference view for a field declared in order.
func RefOf[T common.Scalar](order wire.Endian) (Viewer[*T], error) {
	if err := checkOrder[T](order); err != nil {
		return nil, err
	}
	return refView[T]{}, nil
}

// SliceOf defines a slice view for a field declared in order.
func SliceOf[T common.Scalar](order wire.Endian) (Viewer[[]T], error) {
	if err := checkOrder[T](order); err != nil {
		return nil, err
	}
	return sliceView[T]{}, nil
}

var (
	// BytesView, StringView and CStringView are the byte-oriented views,
	// which do not depend on byte order.
	BytesView   Viewer[[]byte] = ViewFunc[[]byte](Bytes)
	StringView  Viewer[string] = ViewFunc[string](String)
	CStringView Viewer[string] = ViewFunc[string](CString)
)
