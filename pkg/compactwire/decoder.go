package compactwire

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/rawbytedev/bincast"
	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

// Decode reads one frame and checks its CRC. Payloads are copied.
func (frameCodec) Decode(r io.Reader, ctx *wire.Context) (Frame, error) {
	entry := ctx.Order
	defer func() { ctx.Order = entry }()
	ctx.Order = wire.Little

	if _, err := magic.Decode(r, ctx); err != nil {
		return nil, err
	}
	sum := crc32.NewIEEE()
	f, err := bodyDef.Decode(io.TeeReader(r, sum), ctx)
	if err != nil {
		return nil, err
	}
	if err := verify(r, sum.Sum32(), ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// View decodes one frame from a buffer. Payload and error data alias it.
func (frameCodec) View(c *zc.Cursor, ctx *wire.Context) (Frame, error) {
	entry := ctx.Order
	defer func() { ctx.Order = entry }()
	ctx.Order = wire.Little

	if _, err := magic.Decode(c, ctx); err != nil {
		return nil, err
	}
	body := c.Rest()
	f, err := bodyDef.View(c, ctx)
	if err != nil {
		return nil, err
	}
	covered := body[:len(body)-c.Len()]
	if err := verify(c, crc32.ChecksumIEEE(covered), ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func verify(r io.Reader, got uint32, ctx *wire.Context) error {
	want, err := wire.U32.Decode(r, ctx)
	if err != nil {
		return err
	}
	if got != want {
		return wire.Fail(ctx, wire.KindInvalidEncoding, "decode compactwire",
			fmt.Sprintf("crc mismatch: computed %08x, frame carries %08x", got, want))
	}
	return nil
}

// Unmarshal decodes exactly one frame from b.
func Unmarshal(b []byte) (Frame, error) {
	return bincast.Unmarshal(b, Codec)
}

// View decodes one frame from b without copying payloads. The frame must
// not outlive b.
func View(b []byte) (Frame, error) {
	return bincast.View(b, codec)
}

// Reader decodes consecutive frames from a stream.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next frame, or io.EOF when the stream ends cleanly
// between frames.
func (r *Reader) Next() (Frame, error) {
	if _, err := r.r.Peek(1); err != nil {
		return nil, err
	}
	return bincast.Decode(r.r, Codec)
}
