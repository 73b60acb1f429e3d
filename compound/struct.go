package compound

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

// StructBuilder collects the fields of a struct definition in order.
type StructBuilder[T any] struct {
	name   string
	opts   defOptions
	fields []field[T]
}

// NewStruct starts the definition of a struct type T.
func NewStruct[T any](name string, opts ...DefOption) *StructBuilder[T] {
	b := &StructBuilder[T]{name: name}
	for _, o := range opts {
		o(&b.opts)
	}
	return b
}

// Field appends a field. Fields are decoded and encoded in the order they
// are added.
func (b *StructBuilder[T]) Field(def FieldDef[T]) *StructBuilder[T] {
	if def.f == nil {
		b.fields = append(b.fields, field[T]{err: definitionf("empty field definition")})
		return b
	}
	b.fields = append(b.fields, *def.f)
	return b
}

// step is either a single field or a run of consecutive statically sized
// fields read with one bounded read.
type step struct {
	start, end int
	run        int
}

// Struct is a compiled struct definition. It is immutable and safe for
// concurrent use.
type Struct[T any] struct {
	name   string
	order  *wire.Endian
	fields []field[T]
	steps  []step
	hint   wire.SizeHint
}

// Build compiles the definition, resolving field references.
func (b *StructBuilder[T]) Build() (*Struct[T], error) {
	fields := make([]field[T], len(b.fields))
	copy(fields, b.fields)
	for i := range fields {
		if fields[i].err != nil {
			return nil, errors.Wrapf(fields[i].err, "struct %s", b.name)
		}
		if fields[i].name == "" {
			return nil, definitionf("struct %s: field %d has no name", b.name, i)
		}
	}
	names := lo.Map(fields, func(f field[T], _ int) string { return f.name })
	if dup := lo.FindDuplicates(names); len(dup) > 0 {
		return nil, definitionf("struct %s: duplicate fields %v", b.name, dup)
	}
	index := make(map[string]int, len(fields))
	for i, n := range names {
		index[n] = i
	}
	for i := range fields {
		if err := resolve(fields, i, index); err != nil {
			return nil, errors.Wrapf(err, "struct %s", b.name)
		}
	}

	s := &Struct[T]{name: b.name, order: b.opts.order, fields: fields}
	s.steps = plan(fields)
	s.hint = wire.Seq(lo.Map(fields, func(f field[T], _ int) wire.SizeHint { return f.hint })...)
	Logger().Debug("struct defined",
		zap.String("type", s.name),
		zap.Int("fields", len(fields)),
		zap.Int("steps", len(s.steps)),
		zap.Bool("variable", s.hint.Variable))
	return s, nil
}

// MustBuild is Build for package-level definitions; it panics on error.
func (b *StructBuilder[T]) MustBuild() *Struct[T] {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func resolve[T any](fields []field[T], i int, index map[string]int) error {
	f := &fields[i]
	if name := f.opts.countFrom; name != "" {
		src, ok := index[name]
		switch {
		case !ok:
			return definitionf("field %q counts from unknown field %q", f.name, name)
		case src >= i:
			return definitionf("field %q counts from %q, which does not precede it", f.name, name)
		case fields[src].setCount == nil:
			return definitionf("field %q counts from %q, which is not a count or flag field", f.name, name)
		case f.kind != kindCustom && f.hint.PrefixWidth == 0:
			return definitionf("field %q has no prefix to replace with a count", f.name)
		}
		f.source = src
	}
	f.deps = nil
	for _, name := range f.opts.uses {
		j, ok := index[name]
		if !ok || j >= i {
			return definitionf("field %q uses %q, which is not an earlier field", f.name, name)
		}
		f.deps = append(f.deps, depRef{name: name, index: j})
	}
	for _, name := range f.opts.usesLater {
		j, ok := index[name]
		if !ok || j <= i {
			return definitionf("field %q uses %q, which is not a later field", f.name, name)
		}
		f.deps = append(f.deps, depRef{name: name, index: j, later: true})
	}
	return nil
}

func plan[T any](fields []field[T]) []step {
	var steps []step
	for i := 0; i < len(fields); {
		if !runnable(&fields[i]) {
			steps = append(steps, step{start: i, end: i + 1})
			i++
			continue
		}
		st := step{start: i}
		for i < len(fields) && runnable(&fields[i]) {
			st.run += fields[i].hint.Footprint
			i++
		}
		st.end = i
		steps = append(steps, st)
	}
	return steps
}

func runnable[T any](f *field[T]) bool {
	return f.unchecked != nil && f.view == nil && !f.hint.Variable && f.hint.Footprint > 0 &&
		f.source < 0 && len(f.deps) == 0
}

// Name returns the name the struct was defined with.
func (s *Struct[T]) Name() string { return s.name }

// Hint reports the static size facts of T.
func (s *Struct[T]) Hint() wire.SizeHint { return s.hint }

// Decode reads T from r. No partially decoded value is ever returned.
func (s *Struct[T]) Decode(r io.Reader, ctx *wire.Context) (T, error) {
	var v T
	if err := s.decodeInto(r, nil, ctx, &v); err != nil {
		var zero T
		s.logFailure("decode", ctx, err)
		return zero, err
	}
	return v, nil
}

// DecodeView reads T from a borrowed buffer. View fields alias the buffer,
// every other field is copied out of it.
func (s *Struct[T]) DecodeView(c *zc.Cursor, ctx *wire.Context) (T, error) {
	var v T
	if err := s.decodeInto(c, c, ctx, &v); err != nil {
		var zero T
		s.logFailure("view", ctx, err)
		return zero, err
	}
	return v, nil
}

// View implements zc.Viewer so that nested structs keep aliasing.
func (s *Struct[T]) View(c *zc.Cursor, ctx *wire.Context) (T, error) {
	return s.DecodeView(c, ctx)
}

// DecodeUnchecked decodes T from a run the caller has already bounds
// checked, leaving the cursor where it was.
func (s *Struct[T]) DecodeUnchecked(b []byte, ctx *wire.Context) (T, error) {
	at := ctx.Cursor
	v, err := s.Decode(bytes.NewReader(b), ctx)
	ctx.Cursor = at
	return v, err
}

func (s *Struct[T]) base(ctx *wire.Context) wire.Endian {
	if s.order != nil {
		return *s.order
	}
	return ctx.Order
}

func (s *Struct[T]) orderOf(f *field[T], base wire.Endian) wire.Endian {
	if f.opts.order != nil {
		return *f.opts.order
	}
	return base
}

func (s *Struct[T]) decodeInto(r io.Reader, c *zc.Cursor, ctx *wire.Context, dst *T) error {
	entry := ctx.Order
	defer func() { ctx.Order = entry }()
	base := s.base(ctx)

	for _, st := range s.steps {
		if st.run > 0 {
			b, err := wire.ReadRun(r, st.run, ctx, "decode "+s.name)
			if err != nil {
				return err
			}
			off := 0
			for i := st.start; i < st.end; i++ {
				f := &s.fields[i]
				ctx.Order = s.orderOf(f, base)
				if err := f.unchecked(b[off:], ctx, dst); err != nil {
					return err
				}
				off += f.hint.Footprint
				if err := s.check(f, ctx, dst, Deps{}); err != nil {
					return err
				}
			}
			continue
		}

		f := &s.fields[st.start]
		ctx.Order = s.orderOf(f, base)
		if f.source >= 0 {
			n, err := s.fields[f.source].count(dst, ctx)
			if err != nil {
				return err
			}
			ctx.SetPending(n)
		}
		deps := s.deps(f, dst, true)
		var err error
		if c != nil && f.view != nil {
			err = f.view(c, ctx, dst, deps)
		} else {
			err = f.decode(r, ctx, dst, deps)
		}
		ctx.ClearPending()
		if err != nil {
			return err
		}
		if err := s.check(f, ctx, dst, deps); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes v to w. Count and flag fields are written from the length
// of the field that depends on them, not from v.
func (s *Struct[T]) Encode(w io.Writer, v T, ctx *wire.Context) (int, error) {
	entry := ctx.Order
	defer func() { ctx.Order = entry }()
	base := s.base(ctx)

	for i := range s.fields {
		f := &s.fields[i]
		if f.source < 0 || f.counted == nil {
			continue
		}
		src := &s.fields[f.source]
		if n := f.counted(&v); !src.setCount(&v, n) {
			return 0, wire.Fail(ctx, wire.KindCountFieldOverflow, "encode "+s.name+"."+src.name,
				fmt.Sprintf("%d elements of %s do not fit", n, f.name))
		}
	}

	total := 0
	for i := range s.fields {
		f := &s.fields[i]
		ctx.Order = s.orderOf(f, base)
		deps := s.deps(f, &v, false)
		if err := s.check(f, ctx, &v, deps); err != nil {
			return total, err
		}
		if f.source >= 0 {
			n, err := s.fields[f.source].count(&v, ctx)
			if err != nil {
				return total, err
			}
			ctx.SetPending(n)
		}
		n, err := f.encode(w, ctx, &v, deps)
		ctx.ClearPending()
		total += n
		if err != nil {
			s.logFailure("encode", ctx, err)
			return total, err
		}
	}
	return total, nil
}

func (s *Struct[T]) deps(f *field[T], v *T, reading bool) Deps {
	if len(f.deps) == 0 {
		return Deps{}
	}
	d := Deps{
		names:   make([]string, len(f.deps)),
		values:  make([]any, len(f.deps)),
		present: make([]bool, len(f.deps)),
	}
	for i, ref := range f.deps {
		d.names[i] = ref.name
		if ref.later && reading {
			continue
		}
		d.values[i] = s.fields[ref.index].get(v)
		d.present[i] = true
	}
	return d
}

func (s *Struct[T]) check(f *field[T], ctx *wire.Context, v *T, deps Deps) error {
	if f.validate == nil {
		return nil
	}
	err := f.validate(ctx, v, deps)
	if err == nil {
		return nil
	}
	var we *wire.Error
	if errors.As(err, &we) {
		return err
	}
	return wire.Wrap(ctx, wire.KindInvalidEncoding, "validate "+s.name+"."+f.name, err)
}

func (s *Struct[T]) logFailure(op string, ctx *wire.Context, err error) {
	Logger().Debug("struct "+op+" failed",
		zap.String("type", s.name),
		zap.Int("offset", ctx.Cursor),
		zap.Error(err))
}
