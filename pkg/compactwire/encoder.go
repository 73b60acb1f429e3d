package compactwire

import (
	"hash/crc32"
	"io"

	"github.com/rawbytedev/bincast"
	"github.com/rawbytedev/bincast/wire"
)

type frameCodec struct{}

var codec = frameCodec{}

// Codec reads and writes whole frames, preamble and trailer included. It
// also implements zc.Viewer.
var Codec wire.Codec[Frame] = codec

var magic = wire.Magic(Magic[:]...)

func (frameCodec) Hint() wire.SizeHint {
	return wire.Seq(magic.Hint(), bodyDef.Hint(), wire.Static(crc32.Size))
}

// Encode writes one frame. Frames are always little-endian.
func (frameCodec) Encode(w io.Writer, f Frame, ctx *wire.Context) (int, error) {
	entry := ctx.Order
	defer func() { ctx.Order = entry }()
	ctx.Order = wire.Little

	n, err := magic.Encode(w, struct{}{}, ctx)
	if err != nil {
		return n, err
	}
	sum := crc32.NewIEEE()
	m, err := bodyDef.Encode(io.MultiWriter(w, sum), f, ctx)
	n += m
	if err != nil {
		return n, err
	}
	m, err = wire.U32.Encode(w, sum.Sum32(), ctx)
	return n + m, err
}

// Marshal encodes f into a new buffer.
func Marshal(f Frame) ([]byte, error) {
	return bincast.Marshal(f, Codec)
}

// Writer writes consecutive frames to a stream.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes f. A failed frame may leave partial bytes in the stream.
func (w *Writer) Write(f Frame) (int, error) {
	return bincast.Encode(w.w, f, Codec)
}
