package wire

import "io"

type optional[T any] struct {
	inner Codec[T]
}

// Optional carries *T behind a one byte presence flag. When the context holds
// a pending value the flag byte is skipped and that value decides presence.
func Optional[T any](inner Codec[T]) Counted[*T] {
	return optional[T]{inner: inner}
}

func (o optional[T]) Hint() SizeHint { return Prefixed(1) }

func (o optional[T]) Decode(r io.Reader, ctx *Context) (*T, error) {
	present, ok := ctx.TakePending()
	if !ok {
		flag, err := U8.Decode(r, ctx)
		if err != nil {
			return nil, err
		}
		present = uint64(flag)
	}
	if present == 0 {
		return nil, nil
	}
	v, err := o.inner.Decode(r, ctx)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (o optional[T]) Encode(w io.Writer, v *T, ctx *Context) (int, error) {
	n := 0
	if ext, ok := ctx.TakePending(); ok {
		if (ext != 0) != (v != nil) {
			return 0, Fail(ctx, KindInvalidEncoding, "encode optional", "presence flag disagrees with value")
		}
	} else {
		var flag uint8
		if v != nil {
			flag = 1
		}
		m, err := U8.Encode(w, flag, ctx)
		n += m
		if err != nil {
			return n, err
		}
	}
	if v == nil {
		return n, nil
	}
	m, err := o.inner.Encode(w, *v, ctx)
	return n + m, err
}

// Count reports 1 for a present value, so a sibling flag field can be
// derived from it.
func (o optional[T]) Count(v *T) int {
	if v == nil {
		return 0
	}
	return 1
}
