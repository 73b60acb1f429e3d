package bincast

import (
	"bytes"
	"io"
	"reflect"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"

	"github.com/rawbytedev/bincast/internal/common"
	"github.com/rawbytedev/bincast/wire"
)

// valueCodec is a wire codec working on reflect.Value, so one plan can
// drive fields whose static types are only known at runtime.
type valueCodec interface {
	hint() wire.SizeHint
	decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error
	encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error)
}

// fixedValue decodes from a pre-checked run, like wire.Fixed.
type fixedValue interface {
	valueCodec
	unchecked(b []byte, ctx *wire.Context, dst reflect.Value) error
}

// countedValue reports runtime element counts, like wire.Counted.
type countedValue interface {
	valueCodec
	count(src reflect.Value) int
}

func valueFor(t reflect.Type, tag fieldTag, visiting map[reflect.Type]bool) (valueCodec, error) {
	k := t.Kind()
	switch {
	case common.IsFixedKind(k):
		return scalarFor(k), nil
	case k == reflect.String:
		if tag.cstring {
			return textValue{c: wire.CString}, nil
		}
		return textValue{c: wire.String}, nil
	case k == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return bytesValue{}, nil
	case k == reflect.Slice:
		elem, err := valueFor(t.Elem(), fieldTag{cstring: tag.cstring}, visiting)
		if err != nil {
			return nil, err
		}
		if h := elem.hint(); !h.Variable && h.Footprint == 0 {
			return nil, errors.Wrapf(ErrUnsupported, "%s has zero-size elements", t)
		}
		return sliceValue{typ: t, c: wire.Slice(adapt(elem, t.Elem()))}, nil
	case k == reflect.Array:
		elem, err := valueFor(t.Elem(), fieldTag{cstring: tag.cstring}, visiting)
		if err != nil {
			return nil, err
		}
		return arrayValue{c: wire.Array(t.Len(), adapt(elem, t.Elem()))}, nil
	case k == reflect.Pointer:
		elem, err := valueFor(t.Elem(), fieldTag{cstring: tag.cstring}, visiting)
		if err != nil {
			return nil, err
		}
		return optionalValue{typ: t, c: wire.Optional(adapt(elem, t.Elem()))}, nil
	case k == reflect.Struct:
		p, err := buildPlan(t, visiting)
		if err != nil {
			return nil, err
		}
		return structValue{p: p}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupported, "%s", t)
	}
}

// scalar kinds

type scalarValue[T any] struct {
	c   wire.Fixed[T]
	get func(reflect.Value) T
	set func(reflect.Value, T)
}

func signed[T constraints.Signed](c wire.Fixed[T]) valueCodec {
	return scalarValue[T]{
		c:   c,
		get: func(v reflect.Value) T { return T(v.Int()) },
		set: func(v reflect.Value, x T) { v.SetInt(int64(x)) },
	}
}

func unsigned[T constraints.Unsigned](c wire.Fixed[T]) valueCodec {
	return scalarValue[T]{
		c:   c,
		get: func(v reflect.Value) T { return T(v.Uint()) },
		set: func(v reflect.Value, x T) { v.SetUint(uint64(x)) },
	}
}

func float[T constraints.Float](c wire.Fixed[T]) valueCodec {
	return scalarValue[T]{
		c:   c,
		get: func(v reflect.Value) T { return T(v.Float()) },
		set: func(v reflect.Value, x T) { v.SetFloat(float64(x)) },
	}
}

func scalarFor(k reflect.Kind) valueCodec {
	switch k {
	case reflect.Bool:
		return scalarValue[bool]{c: wire.Bool, get: reflect.Value.Bool, set: reflect.Value.SetBool}
	case reflect.Int8:
		return signed(wire.I8)
	case reflect.Int16:
		return signed(wire.I16)
	case reflect.Int32:
		return signed(wire.I32)
	case reflect.Int64:
		return signed(wire.I64)
	case reflect.Uint8:
		return unsigned(wire.U8)
	case reflect.Uint16:
		return unsigned(wire.U16)
	case reflect.Uint32:
		return unsigned(wire.U32)
	case reflect.Uint64:
		return unsigned(wire.U64)
	case reflect.Float32:
		return float(wire.F32)
	case reflect.Float64:
		return float(wire.F64)
	default:
		panic("not fixed")
	}
}

func (s scalarValue[T]) hint() wire.SizeHint { return s.c.Hint() }

func (s scalarValue[T]) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	v, err := s.c.Decode(r, ctx)
	if err != nil {
		return err
	}
	s.set(dst, v)
	return nil
}

func (s scalarValue[T]) unchecked(b []byte, ctx *wire.Context, dst reflect.Value) error {
	v, err := s.c.DecodeUnchecked(b, ctx)
	if err != nil {
		return err
	}
	s.set(dst, v)
	return nil
}

func (s scalarValue[T]) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	return s.c.Encode(w, s.get(src), ctx)
}

// text and byte runs

type textValue struct {
	c wire.Codec[string]
}

func (t textValue) hint() wire.SizeHint { return t.c.Hint() }

func (t textValue) count(src reflect.Value) int { return src.Len() }

func (t textValue) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	s, err := t.c.Decode(r, ctx)
	if err != nil {
		return err
	}
	dst.SetString(s)
	return nil
}

func (t textValue) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	return t.c.Encode(w, src.String(), ctx)
}

type bytesValue struct{}

func (bytesValue) hint() wire.SizeHint { return wire.Bytes.Hint() }

func (bytesValue) count(src reflect.Value) int { return src.Len() }

func (bytesValue) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	b, err := wire.Bytes.Decode(r, ctx)
	if err != nil {
		return err
	}
	dst.SetBytes(b)
	return nil
}

func (bytesValue) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	return wire.Bytes.Encode(w, src.Bytes(), ctx)
}

// containers

type sliceValue struct {
	typ reflect.Type
	c   wire.Counted[[]reflect.Value]
}

func (s sliceValue) hint() wire.SizeHint { return s.c.Hint() }

func (s sliceValue) count(src reflect.Value) int { return src.Len() }

func (s sliceValue) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	vals, err := s.c.Decode(r, ctx)
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(s.typ, len(vals), len(vals))
	for i, v := range vals {
		out.Index(i).Set(v)
	}
	dst.Set(out)
	return nil
}

func (s sliceValue) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	return s.c.Encode(w, elements(src), ctx)
}

func elements(src reflect.Value) []reflect.Value {
	vals := make([]reflect.Value, src.Len())
	for i := range vals {
		vals[i] = src.Index(i)
	}
	return vals
}

type arrayValue struct {
	c wire.Codec[[]reflect.Value]
}

func (a arrayValue) hint() wire.SizeHint { return a.c.Hint() }

func (a arrayValue) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	vals, err := a.c.Decode(r, ctx)
	if err != nil {
		return err
	}
	for i, v := range vals {
		dst.Index(i).Set(v)
	}
	return nil
}

func (a arrayValue) unchecked(b []byte, ctx *wire.Context, dst reflect.Value) error {
	return detached(b, ctx, dst, a)
}

func (a arrayValue) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	return a.c.Encode(w, elements(src), ctx)
}

type optionalValue struct {
	typ reflect.Type
	c   wire.Counted[*reflect.Value]
}

func (o optionalValue) hint() wire.SizeHint { return o.c.Hint() }

func (o optionalValue) count(src reflect.Value) int {
	if src.IsNil() {
		return 0
	}
	return 1
}

func (o optionalValue) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	v, err := o.c.Decode(r, ctx)
	if err != nil {
		return err
	}
	if v == nil {
		dst.SetZero()
		return nil
	}
	p := reflect.New(o.typ.Elem())
	p.Elem().Set(*v)
	dst.Set(p)
	return nil
}

func (o optionalValue) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	if src.IsNil() {
		return o.c.Encode(w, nil, ctx)
	}
	v := src.Elem()
	return o.c.Encode(w, &v, ctx)
}

type structValue struct {
	p *plan
}

func (s structValue) hint() wire.SizeHint { return s.p.hint }

func (s structValue) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	return s.p.decode(r, ctx, dst)
}

func (s structValue) unchecked(b []byte, ctx *wire.Context, dst reflect.Value) error {
	return detached(b, ctx, dst, s)
}

func (s structValue) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	return s.p.encode(w, ctx, src)
}

// detached decodes a statically sized value from a checked run without
// moving the cursor, which the caller already accounted for.
func detached(b []byte, ctx *wire.Context, dst reflect.Value, vc valueCodec) error {
	at := ctx.Cursor
	err := vc.decode(bytes.NewReader(b[:vc.hint().Footprint]), ctx, dst)
	ctx.Cursor = at
	return err
}

// adapt turns a valueCodec into a wire codec so the wire containers can
// carry reflected elements.
func adapt(vc valueCodec, typ reflect.Type) wire.Codec[reflect.Value] {
	a := adapter{vc: vc, typ: typ}
	if f, ok := vc.(fixedValue); ok && !vc.hint().Variable {
		return fixedAdapter{adapter: a, f: f}
	}
	return a
}

type adapter struct {
	vc  valueCodec
	typ reflect.Type
}

func (a adapter) Hint() wire.SizeHint { return a.vc.hint() }

func (a adapter) Decode(r io.Reader, ctx *wire.Context) (reflect.Value, error) {
	v := reflect.New(a.typ).Elem()
	if err := a.vc.decode(r, ctx, v); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

func (a adapter) Encode(w io.Writer, v reflect.Value, ctx *wire.Context) (int, error) {
	return a.vc.encode(w, ctx, v)
}

type fixedAdapter struct {
	adapter
	f fixedValue
}

func (a fixedAdapter) DecodeUnchecked(b []byte, ctx *wire.Context) (reflect.Value, error) {
	v := reflect.New(a.typ).Elem()
	if err := a.f.unchecked(b, ctx, v); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}
