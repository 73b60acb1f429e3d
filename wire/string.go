package wire

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/rawbytedev/bincast/internal/common"
)

type byteRun struct {
	text bool
}

var (
	// Bytes is a length-prefixed raw byte sequence.
	Bytes Counted[[]byte] = byteRun{}
	// String is a length-prefixed UTF-8 sequence.
	String Counted[string] = textRun{}
)

func (byteRun) Hint() SizeHint { return Prefixed(LengthPrefixWidth) }

func (byteRun) Count(v []byte) int { return len(v) }

func (b byteRun) Decode(r io.Reader, ctx *Context) ([]byte, error) {
	op := "decode bytes"
	if b.text {
		op = "decode string"
	}
	n, err := ReadCount(r, ctx, op)
	if err != nil {
		return nil, err
	}
	run, err := ReadRun(r, n, ctx, op)
	if err != nil {
		return nil, err
	}
	if b.text && !utf8.Valid(run) {
		return nil, Fail(ctx, KindInvalidEncoding, op, "invalid utf-8")
	}
	return run, nil
}

func (byteRun) Encode(w io.Writer, v []byte, ctx *Context) (int, error) {
	n, err := WriteCount(w, len(v), ctx, "encode bytes")
	if err != nil {
		return n, err
	}
	m, err := WriteAll(w, v, ctx, "encode bytes")
	return n + m, err
}

type textRun struct{}

func (textRun) Hint() SizeHint { return Prefixed(LengthPrefixWidth) }

func (textRun) Count(v string) int { return len(v) }

func (textRun) Decode(r io.Reader, ctx *Context) (string, error) {
	b, err := byteRun{text: true}.Decode(r, ctx)
	if err != nil {
		return "", err
	}
	// b is freshly allocated and never shared.
	return common.String(b), nil
}

func (textRun) Encode(w io.Writer, v string, ctx *Context) (int, error) {
	return byteRun{}.Encode(w, []byte(v), ctx)
}

type cstring struct{}

// CString is a zero-terminated UTF-8 string. It is read one byte at a time
// because its length is unknown until the terminator arrives.
var CString Codec[string] = cstring{}

func (cstring) Hint() SizeHint { return SizeHint{Variable: true, Footprint: 1} }

func (cstring) Decode(r io.Reader, ctx *Context) (string, error) {
	const op = "decode cstring"
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &oneByteReader{r: r}
	}
	var buf []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", Wrap(ctx, KindInsufficientInput, op, noEOF(err))
		}
		ctx.Advance(1)
		if c == 0 {
			break
		}
		buf = append(buf, c)
	}
	if !utf8.Valid(buf) {
		return "", Fail(ctx, KindInvalidEncoding, op, "invalid utf-8")
	}
	return string(buf), nil
}

func (cstring) Encode(w io.Writer, v string, ctx *Context) (int, error) {
	const op = "encode cstring"
	if bytes.IndexByte([]byte(v), 0) >= 0 {
		return 0, Fail(ctx, KindInvalidEncoding, op, "payload contains a zero byte")
	}
	b := make([]byte, len(v)+1)
	copy(b, v)
	return WriteAll(w, b, ctx, op)
}

type oneByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (o *oneByteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(o.r, o.buf[:]); err != nil {
		return 0, err
	}
	return o.buf[0], nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
