package compound

import (
	"github.com/rawbytedev/bincast/wire"
)

type fieldOptions struct {
	order     *wire.Endian
	countFrom string
	validate  any
	uses      []string
	usesLater []string
}

// Option adjusts a single field.
type Option func(*fieldOptions)

// WithOrder overrides the byte order of one field.
func WithOrder(e wire.Endian) Option {
	return func(o *fieldOptions) { o.order = &e }
}

// CountFrom makes the field take its element count, or presence flag, from
// an earlier Count or Flag field instead of its own prefix.
func CountFrom(name string) Option {
	return func(o *fieldOptions) { o.countFrom = name }
}

// Validate runs fn after the field is decoded and before it is encoded.
// ctx.Reading tells the two passes apart. A non-nil error fails the call
// with InvalidEncoding unless it already is a *wire.Error.
func Validate[F any](fn func(ctx *wire.Context, v F, deps Deps) error) Option {
	return func(o *fieldOptions) { o.validate = fn }
}

// Uses exposes earlier fields to the field's validator or hook.
func Uses(names ...string) Option {
	return func(o *fieldOptions) { o.uses = append(o.uses, names...) }
}

// UsesLater exposes later fields to the field's validator or hook. They are
// absent while decoding and present while encoding.
func UsesLater(names ...string) Option {
	return func(o *fieldOptions) { o.usesLater = append(o.usesLater, names...) }
}

type defOptions struct {
	order *wire.Endian
	width int
}

// DefOption adjusts a whole struct or union definition.
type DefOption func(*defOptions)

// DefaultOrder sets the byte order of every field without its own override.
// Without it a definition inherits the order it is decoded or encoded in.
func DefaultOrder(e wire.Endian) DefOption {
	return func(o *defOptions) { o.order = &e }
}

// DiscriminantWidth fixes the byte width of a union's discriminant. It must
// be 1, 2, 4 or 8.
func DiscriminantWidth(w int) DefOption {
	return func(o *defOptions) { o.width = w }
}
