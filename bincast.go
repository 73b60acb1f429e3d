// Package bincast converts between typed Go values and their binary wire
// representation. Layouts are described by codec values from the wire,
// compound and zc packages, or derived from struct tags with For.
package bincast

import (
	"bytes"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rawbytedev/bincast/compound"
	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

// Decode reads one T from r through c using a fresh context.
func Decode[T any](r io.Reader, c wire.Codec[T], opts ...Option) (T, error) {
	o := newOptions(opts)
	return c.Decode(r, wire.NewContext(true, o.Order))
}

// Unmarshal decodes b in full. Bytes left over after T are reported as
// InvalidEncoding.
func Unmarshal[T any](b []byte, c wire.Codec[T], opts ...Option) (T, error) {
	o := newOptions(opts)
	ctx := wire.NewContext(true, o.Order)
	r := bytes.NewReader(b)
	v, err := c.Decode(r, ctx)
	if err != nil {
		return v, err
	}
	if r.Len() > 0 {
		var zero T
		return zero, wire.Fail(ctx, wire.KindInvalidEncoding, "unmarshal",
			fmt.Sprintf("%d trailing bytes", r.Len()))
	}
	return v, nil
}

// Encode writes v to w through c using a fresh context and returns the number
// of bytes written. Bytes already written before a failure stay in w.
func Encode[T any](w io.Writer, v T, c wire.Codec[T], opts ...Option) (int, error) {
	o := newOptions(opts)
	return c.Encode(w, v, wire.NewContext(false, o.Order))
}

// Marshal encodes v into a new buffer sized from the codec's hint.
func Marshal[T any](v T, c wire.Codec[T], opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(c.Hint().Footprint)
	if _, err := Encode(&buf, v, c, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// View decodes T from b by borrowing: slices and strings in the result alias
// b and must not outlive it.
func View[T any](b []byte, v zc.Viewer[T], opts ...Option) (T, error) {
	o := newOptions(opts)
	return v.View(zc.NewCursor(b), wire.NewContext(true, o.Order))
}

// SetLogger routes definition and decode diagnostics to l.
func SetLogger(l *zap.Logger) {
	compound.SetLogger(l)
}
