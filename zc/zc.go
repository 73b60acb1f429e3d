// Package zc decodes views that alias a borrowed byte buffer instead of
// copying out of it.
//
// Every view is bounds checked against the buffer first. Typed references
// and slices are additionally checked for alignment, and string views for
// UTF-8. A view is a sub-range of the buffer and lives exactly as long as the
// buffer does; the buffer must not be modified while immutable views derived
// from it are in use.
//
// Views are always read in native byte order. Definitions that need a
// foreign order must decode by copy through the wire codecs; RefOf and
// SliceOf reject such definitions up front.
package zc

import (
	"io"

	"github.com/rawbytedev/bincast/wire"
)

// Cursor walks a borrowed buffer. It also implements io.Reader so that any
// wire codec can decode by copy from the same position.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor starts a cursor at the beginning of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the number of bytes left.
func (c *Cursor) Len() int { return len(c.buf) - c.pos }

// Rest returns the unconsumed tail without advancing.
func (c *Cursor) Rest() []byte { return c.buf[c.pos:] }

func (c *Cursor) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}

func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// peek returns the next n bytes without consuming them.
func (c *Cursor) peek(n int, ctx *wire.Context, op string) ([]byte, error) {
	if n < 0 || n > c.Len() {
		return nil, wire.Fail(ctx, wire.KindInsufficientInput, op, "view exceeds buffer")
	}
	end := c.pos + n
	return c.buf[c.pos:end:end], nil
}

func (c *Cursor) advance(n int, ctx *wire.Context) {
	c.pos += n
	ctx.Advance(n)
}

// take bounds checks and consumes the next n bytes, returning them capped
// so that appending to the view cannot overwrite what follows.
func (c *Cursor) take(n int, ctx *wire.Context, op string) ([]byte, error) {
	b, err := c.peek(n, ctx, op)
	if err != nil {
		return nil, err
	}
	c.advance(n, ctx)
	return b, nil
}

// MutCursor is a Cursor whose views may be written in place. The caller must
// not reach the buffer through any other path while a mutable view is live.
type MutCursor struct {
	Cursor
}

// NewMutCursor starts a mutable cursor at the beginning of buf.
func NewMutCursor(buf []byte) *MutCursor {
	return &MutCursor{Cursor: Cursor{buf: buf}}
}
