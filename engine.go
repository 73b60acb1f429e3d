package bincast

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rawbytedev/bincast/compound"
	"github.com/rawbytedev/bincast/wire"
)

var (
	ErrNotStruct    = errors.New("expected struct")
	ErrNotStructPtr = errors.New("expected pointer to struct")
	ErrUnsupported  = errors.New("unsupported type")
)

// Engine derives layouts from struct tags and caches one plan per type.
// It is safe for concurrent use.
//
// Tag syntax, on exported fields:
//
//	bin:"-"            skip the field
//	bin:"be" / "le"    byte order of the field and everything inside it
//	bin:"cstring"      zero-terminated string (or slice of them)
//	bin:"count=Name"   element count comes from the earlier integer field Name
type Engine struct {
	opts Options
	mu   sync.RWMutex
	plan map[reflect.Type]*plan
}

// NewEngine returns an engine whose Marshal and Unmarshal start from opts.
func NewEngine(opts ...Option) *Engine {
	return &Engine{
		opts: newOptions(opts),
		plan: make(map[reflect.Type]*plan),
	}
}

var defaultEngine = NewEngine()

// For returns the tag-derived codec for struct type T.
func For[T any]() (wire.Codec[T], error) {
	p, err := defaultEngine.getPlan(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return tagged[T]{p: p}, nil
}

// MustFor is For that panics on an invalid type.
func MustFor[T any]() wire.Codec[T] {
	c, err := For[T]()
	if err != nil {
		panic(err)
	}
	return c
}

// Marshal encodes a struct or pointer to struct.
func (e *Engine) Marshal(val any) ([]byte, error) {
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	p, err := e.getPlan(v.Type())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(p.hint.Footprint)
	if _, err := p.encode(&buf, wire.NewContext(false, e.opts.Order), v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into the struct out points to. Leftover bytes are
// InvalidEncoding.
func (e *Engine) Unmarshal(data []byte, out any) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrNotStructPtr
	}
	dst := v.Elem()
	p, err := e.getPlan(dst.Type())
	if err != nil {
		return err
	}
	ctx := wire.NewContext(true, e.opts.Order)
	r := bytes.NewReader(data)
	// decode into a scratch value so a failure leaves out untouched
	tmp := reflect.New(dst.Type()).Elem()
	if err := p.decode(r, ctx, tmp); err != nil {
		return err
	}
	if r.Len() > 0 {
		return wire.Fail(ctx, wire.KindInvalidEncoding, "unmarshal", fmt.Sprintf("%d trailing bytes", r.Len()))
	}
	dst.Set(tmp)
	return nil
}

func (e *Engine) getPlan(t reflect.Type) (*plan, error) {
	e.mu.RLock()
	if p, ok := e.plan[t]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	e.mu.RUnlock()

	// built outside the lock: nested types do not take it
	p, err := buildPlan(t, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Double-check
	if cached, ok := e.plan[t]; ok {
		return cached, nil
	}
	e.plan[t] = p
	compound.Logger().Debug("tag plan built",
		zap.Stringer("type", t),
		zap.Int("fields", len(p.fields)),
		zap.Bool("variable", p.hint.Variable),
		zap.Int("footprint", p.hint.Footprint))
	return p, nil
}

type plan struct {
	typ    reflect.Type
	fields []fieldPlan
	hint   wire.SizeHint
}

type fieldPlan struct {
	idx   int
	name  string
	typ   reflect.Type
	order *wire.Endian
	codec valueCodec

	source int   // plan index of the count source, or -1
	sinks  []int // plan indexes of fields counted by this one
}

type fieldTag struct {
	skip    bool
	order   *wire.Endian
	cstring bool
	count   string
}

func parseTag(s string) (fieldTag, error) {
	var tag fieldTag
	if s == "-" {
		tag.skip = true
		return tag, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "skip":
			tag.skip = true
		case part == "be":
			tag.order = lo.ToPtr(wire.Big)
		case part == "le":
			tag.order = lo.ToPtr(wire.Little)
		case part == "cstring":
			tag.cstring = true
		case strings.HasPrefix(part, "count="):
			tag.count = strings.TrimPrefix(part, "count=")
		default:
			return tag, errors.Wrapf(ErrUnsupported, "tag option %q", part)
		}
	}
	return tag, nil
}

func buildPlan(t reflect.Type, visiting map[reflect.Type]bool) (*plan, error) {
	if t.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	if visiting[t] {
		return nil, errors.Wrapf(ErrUnsupported, "%s is recursive", t)
	}
	visiting[t] = true
	defer delete(visiting, t)

	p := &plan{typ: t}
	index := make(map[string]int)
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, err := parseTag(sf.Tag.Get("bin"))
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", t, sf.Name)
		}
		if tag.skip {
			continue
		}
		vc, err := valueFor(sf.Type, tag, visiting)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", t, sf.Name)
		}
		fp := fieldPlan{idx: i, name: sf.Name, typ: sf.Type, order: tag.order, codec: vc, source: -1}
		if tag.count != "" {
			src, ok := index[tag.count]
			if !ok {
				return nil, errors.Wrapf(ErrUnsupported, "%s.%s: count field %q is not an earlier field", t, sf.Name, tag.count)
			}
			if !isInteger(p.fields[src].typ.Kind()) {
				return nil, errors.Wrapf(ErrUnsupported, "%s.%s: count field %q is not an integer", t, sf.Name, tag.count)
			}
			if _, ok := vc.(countedValue); !ok || vc.hint().PrefixWidth == 0 {
				return nil, errors.Wrapf(ErrUnsupported, "%s.%s: %s cannot take an external count", t, sf.Name, sf.Type)
			}
			fp.source = src
			p.fields[src].sinks = append(p.fields[src].sinks, len(p.fields))
		}
		index[sf.Name] = len(p.fields)
		p.fields = append(p.fields, fp)
	}
	p.hint = wire.Seq(lo.Map(p.fields, func(f fieldPlan, _ int) wire.SizeHint {
		return f.codec.hint()
	})...)
	return p, nil
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func (p *plan) decode(r io.Reader, ctx *wire.Context, dst reflect.Value) error {
	base := ctx.Order
	defer func() { ctx.Order = base }()
	for i := range p.fields {
		f := &p.fields[i]
		ctx.Order = f.orderFrom(base)
		if f.source >= 0 {
			n, err := p.sourceCount(ctx, dst, f)
			if err != nil {
				return err
			}
			ctx.SetPending(n)
		}
		err := f.codec.decode(r, ctx, dst.Field(f.idx))
		ctx.ClearPending()
		if err != nil {
			return err
		}
	}
	return nil
}

// sourceCount reads the already decoded count field feeding f.
func (p *plan) sourceCount(ctx *wire.Context, v reflect.Value, f *fieldPlan) (uint64, error) {
	src := v.Field(p.fields[f.source].idx)
	if src.CanInt() {
		n := src.Int()
		if n < 0 {
			return 0, wire.Fail(ctx, wire.KindInvalidEncoding, "decode "+p.typ.Name()+"."+f.name,
				fmt.Sprintf("negative count %d", n))
		}
		return uint64(n), nil
	}
	return src.Uint(), nil
}

func (p *plan) encode(w io.Writer, ctx *wire.Context, src reflect.Value) (int, error) {
	base := ctx.Order
	defer func() { ctx.Order = base }()
	total := 0
	for i := range p.fields {
		f := &p.fields[i]
		ctx.Order = f.orderFrom(base)
		v := src.Field(f.idx)
		if len(f.sinks) > 0 {
			n, err := p.derive(ctx, src, f)
			if err != nil {
				return total, err
			}
			v = n
		}
		if f.source >= 0 {
			first := &p.fields[p.fields[f.source].sinks[0]]
			ctx.SetPending(uint64(first.codec.(countedValue).count(src.Field(first.idx))))
		}
		n, err := f.codec.encode(w, ctx, v)
		ctx.ClearPending()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// derive computes the value a count field is written with: the runtime
// length of the first field it counts, narrowed to the field's type.
func (p *plan) derive(ctx *wire.Context, src reflect.Value, f *fieldPlan) (reflect.Value, error) {
	sink := &p.fields[f.sinks[0]]
	n := sink.codec.(countedValue).count(src.Field(sink.idx))
	out := reflect.New(f.typ).Elem()
	overflow := false
	if out.CanInt() {
		overflow = out.OverflowInt(int64(n))
		if !overflow {
			out.SetInt(int64(n))
		}
	} else {
		overflow = out.OverflowUint(uint64(n))
		if !overflow {
			out.SetUint(uint64(n))
		}
	}
	if overflow {
		return out, wire.Fail(ctx, wire.KindCountFieldOverflow, "encode "+p.typ.Name()+"."+f.name,
			fmt.Sprintf("%d elements in %s do not fit %s", n, sink.name, f.typ))
	}
	return out, nil
}

func (f *fieldPlan) orderFrom(base wire.Endian) wire.Endian {
	if f.order != nil {
		return *f.order
	}
	return base
}

// tagged exposes a plan as a typed codec.
type tagged[T any] struct {
	p *plan
}

func (t tagged[T]) Hint() wire.SizeHint { return t.p.hint }

func (t tagged[T]) Decode(r io.Reader, ctx *wire.Context) (T, error) {
	var v T
	if err := t.p.decode(r, ctx, reflect.ValueOf(&v).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (t tagged[T]) Encode(w io.Writer, v T, ctx *wire.Context) (int, error) {
	return t.p.encode(w, ctx, reflect.ValueOf(&v).Elem())
}
