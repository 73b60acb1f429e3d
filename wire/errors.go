package wire

import (
	"errors"
	"strconv"
	"strings"
)

// Kind is the closed set of failures a decode or encode can report.
type Kind uint8

const (
	// KindUnknownVariant: a discriminant matched no variant of a union.
	KindUnknownVariant Kind = iota + 1
	// KindInsufficientInput: the source ran dry or the sink refused bytes.
	KindInsufficientInput
	// KindCountFieldOverflow: a count field is too narrow for the element count.
	KindCountFieldOverflow
	// KindInvalidEncoding: bytes were present but failed validation.
	KindInvalidEncoding
	// KindMisalignment: a zero-copy view would be misaligned for its type.
	KindMisalignment
)

func (k Kind) String() string {
	switch k {
	case KindUnknownVariant:
		return "unknown variant"
	case KindInsufficientInput:
		return "insufficient input"
	case KindCountFieldOverflow:
		return "count field overflow"
	case KindInvalidEncoding:
		return "invalid encoding"
	case KindMisalignment:
		return "misalignment"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error carries a Kind plus the position and reason of the failure.
type Error struct {
	Cause  error
	Op     string
	Detail string
	Offset int
	Kind   Kind
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("bincast: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Offset > 0 {
		b.WriteString(" at offset ")
		b.WriteString(strconv.Itoa(e.Offset))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of offset or detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnknownVariant     = &Error{Kind: KindUnknownVariant}
	ErrInsufficientInput  = &Error{Kind: KindInsufficientInput}
	ErrCountFieldOverflow = &Error{Kind: KindCountFieldOverflow}
	ErrInvalidEncoding    = &Error{Kind: KindInvalidEncoding}
	ErrMisalignment       = &Error{Kind: KindMisalignment}
)

// KindOf extracts the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Fail builds an *Error positioned at the context cursor.
func Fail(ctx *Context, kind Kind, op, detail string) *Error {
	e := &Error{Kind: kind, Op: op, Detail: detail}
	if ctx != nil {
		e.Offset = ctx.Cursor
	}
	return e
}

// Wrap builds an *Error with an underlying cause, typically an io error.
func Wrap(ctx *Context, kind Kind, op string, cause error) *Error {
	e := Fail(ctx, kind, op, "")
	e.Cause = cause
	return e
}
