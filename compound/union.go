package compound

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

// CaseDef is one variant of a union over U, created by Case.
type CaseDef[U any] struct {
	c *unionCase[U]
}

type unionCase[U any] struct {
	id       uint64
	explicit bool
	typ      reflect.Type
	hint     wire.SizeHint
	err      error

	decode func(r io.Reader, c *zc.Cursor, ctx *wire.Context) (U, error)
	match  func(u U) bool
	encode func(w io.Writer, u U, ctx *wire.Context) (int, error)
}

// Case declares a variant whose Go type V implements U and whose body is
// handled by c. At most one explicit discriminant id may be given; without
// one the id follows the previous variant's.
func Case[U, V any](c wire.Codec[V], id ...uint64) CaseDef[U] {
	uc := &unionCase[U]{typ: reflect.TypeFor[V]()}
	ut := reflect.TypeFor[U]()
	switch {
	case c == nil:
		uc.err = definitionf("variant %s has no codec", uc.typ)
	case len(id) > 1:
		uc.err = definitionf("variant %s declares %d ids", uc.typ, len(id))
	case ut.Kind() != reflect.Interface:
		uc.err = definitionf("union type %s is not an interface", ut)
	case !uc.typ.Implements(ut):
		uc.err = definitionf("variant %s does not implement %s", uc.typ, ut)
	}
	if uc.err != nil {
		return CaseDef[U]{uc}
	}
	if len(id) == 1 {
		uc.id, uc.explicit = id[0], true
	}
	uc.hint = c.Hint()
	viewer, _ := c.(zc.Viewer[V])
	uc.decode = func(r io.Reader, cur *zc.Cursor, ctx *wire.Context) (U, error) {
		var (
			v   V
			err error
		)
		if cur != nil && viewer != nil {
			v, err = viewer.View(cur, ctx)
		} else {
			v, err = c.Decode(r, ctx)
		}
		if err != nil {
			var zero U
			return zero, err
		}
		return any(v).(U), nil
	}
	uc.match = func(u U) bool {
		_, ok := any(u).(V)
		return ok
	}
	uc.encode = func(w io.Writer, u U, ctx *wire.Context) (int, error) {
		return c.Encode(w, any(u).(V), ctx)
	}
	return CaseDef[U]{uc}
}

// UnionBuilder collects the variants of a union definition in order.
type UnionBuilder[U any] struct {
	name  string
	opts  defOptions
	cases []unionCase[U]
}

// NewUnion starts the definition of a tagged union over the interface U.
func NewUnion[U any](name string, opts ...DefOption) *UnionBuilder[U] {
	b := &UnionBuilder[U]{name: name}
	for _, o := range opts {
		o(&b.opts)
	}
	return b
}

// Variant appends a variant.
func (b *UnionBuilder[U]) Variant(def CaseDef[U]) *UnionBuilder[U] {
	if def.c == nil {
		b.cases = append(b.cases, unionCase[U]{err: definitionf("empty variant definition")})
		return b
	}
	b.cases = append(b.cases, *def.c)
	return b
}

// Union is a compiled tagged union. It is immutable and safe for concurrent
// use.
type Union[U any] struct {
	name  string
	order *wire.Endian
	width int
	disc  discriminant
	cases []unionCase[U]
	byID  map[uint64]int
	hint  wire.SizeHint
}

// Build assigns default ids, picks the discriminant width and checks that
// ids and variant types are unique.
func (b *UnionBuilder[U]) Build() (*Union[U], error) {
	if len(b.cases) == 0 {
		return nil, definitionf("union %s has no variants", b.name)
	}
	cases := slices.Clone(b.cases)
	next := uint64(0)
	for i := range cases {
		c := &cases[i]
		if c.err != nil {
			return nil, errors.Wrapf(c.err, "union %s", b.name)
		}
		if !c.explicit {
			c.id = next
		}
		next = c.id + 1
	}
	ids := lo.Map(cases, func(c unionCase[U], _ int) uint64 { return c.id })
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return nil, definitionf("union %s: duplicate discriminants %v", b.name, dup)
	}
	types := lo.Map(cases, func(c unionCase[U], _ int) reflect.Type { return c.typ })
	if dup := lo.FindDuplicates(types); len(dup) > 0 {
		return nil, definitionf("union %s: variant types %v appear more than once", b.name, dup)
	}

	maxID := lo.Max(ids)
	width := b.opts.width
	if width == 0 {
		width = widthFor(maxID)
	}
	disc, ok := discriminants[width]
	if !ok {
		return nil, definitionf("union %s: discriminant width %d is not 1, 2, 4 or 8", b.name, width)
	}
	if widthFor(maxID) > width {
		return nil, definitionf("union %s: discriminant %d does not fit in %d bytes", b.name, maxID, width)
	}

	u := &Union[U]{
		name:  b.name,
		order: b.opts.order,
		width: width,
		disc:  disc,
		cases: cases,
		byID:  make(map[uint64]int, len(cases)),
	}
	for i, c := range cases {
		u.byID[c.id] = i
	}
	u.hint = wire.Alt(wire.Static(width), lo.Map(cases, func(c unionCase[U], _ int) wire.SizeHint { return c.hint })...)
	Logger().Debug("union defined",
		zap.String("type", u.name),
		zap.Int("variants", len(cases)),
		zap.Int("discriminant_width", width))
	return u, nil
}

// MustBuild is Build for package-level definitions; it panics on error.
func (b *UnionBuilder[U]) MustBuild() *Union[U] {
	u, err := b.Build()
	if err != nil {
		panic(err)
	}
	return u
}

func widthFor(id uint64) int {
	switch {
	case id <= math.MaxUint8:
		return 1
	case id <= math.MaxUint16:
		return 2
	case id <= math.MaxUint32:
		return 4
	default:
		return 8
	}
}

type discriminant struct {
	read  func(r io.Reader, ctx *wire.Context) (uint64, error)
	write func(w io.Writer, id uint64, ctx *wire.Context) (int, error)
}

func discOf[T uint8 | uint16 | uint32 | uint64](c wire.Fixed[T]) discriminant {
	return discriminant{
		read: func(r io.Reader, ctx *wire.Context) (uint64, error) {
			v, err := c.Decode(r, ctx)
			return uint64(v), err
		},
		write: func(w io.Writer, id uint64, ctx *wire.Context) (int, error) {
			return c.Encode(w, T(id), ctx)
		},
	}
}

var discriminants = map[int]discriminant{
	1: discOf(wire.U8),
	2: discOf(wire.U16),
	4: discOf(wire.U32),
	8: discOf(wire.U64),
}

// Name returns the name the union was defined with.
func (u *Union[U]) Name() string { return u.name }

// Width returns the discriminant width in bytes.
func (u *Union[U]) Width() int { return u.width }

// Hint reports the static size facts of the union.
func (u *Union[U]) Hint() wire.SizeHint { return u.hint }

// Decode reads a discriminant and the variant it selects.
func (u *Union[U]) Decode(r io.Reader, ctx *wire.Context) (U, error) {
	return u.decode(r, nil, ctx)
}

// View decodes like Decode but lets variant bodies alias the buffer.
func (u *Union[U]) View(c *zc.Cursor, ctx *wire.Context) (U, error) {
	return u.decode(c, c, ctx)
}

func (u *Union[U]) decode(r io.Reader, c *zc.Cursor, ctx *wire.Context) (U, error) {
	var zero U
	entry := ctx.Order
	defer func() { ctx.Order = entry }()
	if u.order != nil {
		ctx.Order = *u.order
	}
	id, err := u.disc.read(r, ctx)
	if err != nil {
		return zero, err
	}
	i, ok := u.byID[id]
	if !ok {
		err := wire.Fail(ctx, wire.KindUnknownVariant, "decode "+u.name, fmt.Sprintf("discriminant %d", id))
		Logger().Debug("union decode failed",
			zap.String("type", u.name),
			zap.Int("offset", ctx.Cursor),
			zap.Error(err))
		return zero, err
	}
	return u.cases[i].decode(r, c, ctx)
}

// Encode writes the discriminant of v's variant followed by its body.
func (u *Union[U]) Encode(w io.Writer, v U, ctx *wire.Context) (int, error) {
	entry := ctx.Order
	defer func() { ctx.Order = entry }()
	if u.order != nil {
		ctx.Order = *u.order
	}
	for _, c := range u.cases {
		if !c.match(v) {
			continue
		}
		n, err := u.disc.write(w, c.id, ctx)
		if err != nil {
			return n, err
		}
		m, err := c.encode(w, v, ctx)
		return n + m, err
	}
	return 0, wire.Fail(ctx, wire.KindInvalidEncoding, "encode "+u.name,
		fmt.Sprintf("%T matches no variant", v))
}
