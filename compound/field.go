package compound

import (
	"fmt"
	"io"
	"reflect"

	"golang.org/x/exp/constraints"

	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

type fieldKind uint8

const (
	kindValue fieldKind = iota
	kindCount
	kindFlag
	kindView
	kindCustom
	kindConst
)

// FieldDef is one field of a struct of type T, created by Value, Count,
// Flag, Collection, View, Custom or Const.
type FieldDef[T any] struct {
	f *field[T]
}

// field is a type-erased field: every closure captures the field's own
// codec and accessor, so the struct only ever sees *T.
type field[T any] struct {
	name string
	kind fieldKind
	opts fieldOptions
	hint wire.SizeHint
	err  error

	decode    func(r io.Reader, ctx *wire.Context, dst *T, deps Deps) error
	encode    func(w io.Writer, ctx *wire.Context, src *T, deps Deps) (int, error)
	unchecked func(b []byte, ctx *wire.Context, dst *T) error
	view      func(c *zc.Cursor, ctx *wire.Context, dst *T, deps Deps) error
	validate  func(ctx *wire.Context, src *T, deps Deps) error
	get       func(src *T) any

	// count sources
	count    func(src *T, ctx *wire.Context) (uint64, error)
	setCount func(dst *T, n int) bool
	// dependents
	counted func(src *T) int

	source int
	deps   []depRef
}

func newField[T, F any](name string, kind fieldKind, c wire.Codec[F], at func(*T) *F, opts []Option) *field[T] {
	f := &field[T]{name: name, kind: kind, source: -1}
	for _, o := range opts {
		o(&f.opts)
	}
	if c == nil || at == nil {
		f.err = definitionf("field %q needs both a codec and an accessor", name)
		return f
	}
	f.hint = c.Hint()
	f.decode = func(r io.Reader, ctx *wire.Context, dst *T, _ Deps) error {
		v, err := c.Decode(r, ctx)
		if err != nil {
			return err
		}
		*at(dst) = v
		return nil
	}
	f.encode = func(w io.Writer, ctx *wire.Context, src *T, _ Deps) (int, error) {
		return c.Encode(w, *at(src), ctx)
	}
	f.get = func(src *T) any { return *at(src) }
	if fx, ok := wire.AsFixed(c); ok {
		f.unchecked = func(b []byte, ctx *wire.Context, dst *T) error {
			v, err := fx.DecodeUnchecked(b, ctx)
			if err != nil {
				return err
			}
			*at(dst) = v
			return nil
		}
	}
	if cc, ok := c.(wire.Counted[F]); ok {
		f.counted = func(src *T) int { return cc.Count(*at(src)) }
	}
	if v, ok := c.(zc.Viewer[F]); ok {
		f.view = viewInto(v, at)
	}
	f.err = bindValidator(f, at)
	return f
}

func viewInto[T, F any](v zc.Viewer[F], at func(*T) *F) func(*zc.Cursor, *wire.Context, *T, Deps) error {
	return func(c *zc.Cursor, ctx *wire.Context, dst *T, _ Deps) error {
		x, err := v.View(c, ctx)
		if err != nil {
			return err
		}
		*at(dst) = x
		return nil
	}
}

func bindValidator[T, F any](f *field[T], at func(*T) *F) error {
	if f.opts.validate == nil {
		return nil
	}
	fn, ok := f.opts.validate.(func(*wire.Context, F, Deps) error)
	if !ok {
		return definitionf("validator of field %q is %T, want a func taking %s",
			f.name, f.opts.validate, reflect.TypeFor[F]())
	}
	f.validate = func(ctx *wire.Context, src *T, deps Deps) error {
		return fn(ctx, *at(src), deps)
	}
	return nil
}

// Value is a plain field decoded and encoded by c.
func Value[T, F any](name string, c wire.Codec[F], at func(*T) *F, opts ...Option) FieldDef[T] {
	return FieldDef[T]{newField(name, kindValue, c, at, opts)}
}

// Collection is a field whose element count may come from an earlier Count
// field (see CountFrom).
func Collection[T, F any](name string, c wire.Counted[F], at func(*T) *F, opts ...Option) FieldDef[T] {
	return FieldDef[T]{newField[T, F](name, kindValue, c, at, opts)}
}

// Count is an integer field that can carry the element count of a later
// field. When encoding, its value is taken from that field's length.
func Count[T any, F constraints.Integer](name string, c wire.Codec[F], at func(*T) *F, opts ...Option) FieldDef[T] {
	f := newField(name, kindCount, c, at, opts)
	if f.err != nil {
		return FieldDef[T]{f}
	}
	f.count = func(src *T, ctx *wire.Context) (uint64, error) {
		v := *at(src)
		if v < 0 {
			return 0, wire.Fail(ctx, wire.KindInvalidEncoding, "count "+name, fmt.Sprintf("negative count %d", v))
		}
		return uint64(v), nil
	}
	f.setCount = func(dst *T, n int) bool {
		v := F(n)
		if v < 0 || uint64(v) != uint64(n) {
			return false
		}
		*at(dst) = v
		return true
	}
	return FieldDef[T]{f}
}

// Flag is a boolean field that can carry the presence of a later optional
// field. When encoding, its value is taken from that field.
func Flag[T any](name string, c wire.Codec[bool], at func(*T) *bool, opts ...Option) FieldDef[T] {
	f := newField(name, kindFlag, c, at, opts)
	if f.err != nil {
		return FieldDef[T]{f}
	}
	f.count = func(src *T, _ *wire.Context) (uint64, error) {
		if *at(src) {
			return 1, nil
		}
		return 0, nil
	}
	f.setCount = func(dst *T, n int) bool {
		if n > 1 {
			return false
		}
		*at(dst) = n == 1
		return true
	}
	return FieldDef[T]{f}
}

// View is a field that aliases the input buffer when its struct is decoded
// with DecodeView. Stream decoding and encoding go through c.
func View[T, F any](name string, v zc.Viewer[F], c wire.Codec[F], at func(*T) *F, opts ...Option) FieldDef[T] {
	f := newField(name, kindView, c, at, opts)
	if f.err != nil {
		return FieldDef[T]{f}
	}
	if v == nil {
		f.err = definitionf("view field %q has no viewer", name)
		return FieldDef[T]{f}
	}
	f.view = viewInto(v, at)
	return FieldDef[T]{f}
}

// Hook replaces a field's codec with caller supplied functions. Both
// functions are required. Errors they return propagate unchanged.
type Hook[F any] struct {
	Decode func(r io.Reader, ctx *wire.Context, deps Deps) (F, error)
	Encode func(w io.Writer, v F, ctx *wire.Context, deps Deps) (int, error)
	// Hint describes the hook's footprint. The zero value means variable.
	Hint wire.SizeHint
}

// Custom is a field handled entirely by h.
func Custom[T, F any](name string, h Hook[F], at func(*T) *F, opts ...Option) FieldDef[T] {
	f := &field[T]{name: name, kind: kindCustom, source: -1}
	for _, o := range opts {
		o(&f.opts)
	}
	if h.Decode == nil || h.Encode == nil || at == nil {
		f.err = definitionf("custom field %q needs decode and encode hooks and an accessor", name)
		return FieldDef[T]{f}
	}
	f.hint = h.Hint
	if f.hint == (wire.SizeHint{}) {
		f.hint = wire.SizeHint{Variable: true}
	}
	f.decode = func(r io.Reader, ctx *wire.Context, dst *T, deps Deps) error {
		v, err := h.Decode(r, ctx, deps)
		if err != nil {
			return err
		}
		*at(dst) = v
		return nil
	}
	f.encode = func(w io.Writer, ctx *wire.Context, src *T, deps Deps) (int, error) {
		return h.Encode(w, *at(src), ctx, deps)
	}
	f.get = func(src *T) any { return *at(src) }
	f.err = bindValidator(f, at)
	return FieldDef[T]{f}
}

// Const is a format constant, such as a magic number, that has no place in
// T. Decoding fails unless the constant is present.
func Const[T any](name string, c wire.Fixed[struct{}]) FieldDef[T] {
	var slot struct{}
	return FieldDef[T]{newField(name, kindConst, wire.Codec[struct{}](c), func(*T) *struct{} { return &slot }, nil)}
}
