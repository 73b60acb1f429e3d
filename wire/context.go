package wire

import (
	"encoding/binary"

	"github.com/rawbytedev/bincast/internal/common"
)

// Endian selects the byte order of multi-byte scalars. The zero value is
// Little.
type Endian uint8

const (
	Little Endian = iota
	Big
)

// Native is the byte order of the running platform.
var Native = func() Endian {
	if common.NativeLittle {
		return Little
	}
	return Big
}()

func (e Endian) String() string {
	if e == Big {
		return "big"
	}
	return "little"
}

// ByteOrder returns the encoding/binary equivalent of e.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Context is the mutable state threaded through one top-level decode or
// encode call. It is owned by that call and must not be shared.
type Context struct {
	// Cursor counts bytes consumed or produced so far. It is accounting only.
	Cursor int
	// Reading is true on the decode pass and false on the encode pass.
	Reading bool
	// Order is the endianness applied to the next field.
	Order Endian

	pending    uint64
	hasPending bool
}

// NewContext returns a fresh context for one decode (reading) or encode call.
func NewContext(reading bool, order Endian) *Context {
	return &Context{Reading: reading, Order: order}
}

// SetPending records an externally supplied element count (or presence flag)
// for the next collection-like field.
func (c *Context) SetPending(n uint64) {
	c.pending, c.hasPending = n, true
}

// TakePending consumes and clears the pending count.
func (c *Context) TakePending() (uint64, bool) {
	if !c.hasPending {
		return 0, false
	}
	n := c.pending
	c.pending, c.hasPending = 0, false
	return n, true
}

// HasPending reports whether a count is waiting to be consumed.
func (c *Context) HasPending() bool { return c.hasPending }

// ClearPending drops an unconsumed count.
func (c *Context) ClearPending() { c.pending, c.hasPending = 0, false }

// Advance moves the cursor forward by n bytes.
func (c *Context) Advance(n int) { c.Cursor += n }

func (c *Context) little() bool { return c.Order == Little }
