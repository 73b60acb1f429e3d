// Package compactwire is a small framed transport format:
//
//	magic(2) | type(1) | body | crc32(4)
//
// The type byte selects a handshake, data or error body. The CRC32 (IEEE,
// little-endian) covers the type byte and the body. Frames decode from a
// stream by copy or from a buffer by view, in which case payload bytes
// alias the buffer.
package compactwire

import (
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/rawbytedev/bincast/compound"
	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

// Type is the frame type byte following the magic preamble.
type Type uint8

const (
	TypeHandshake Type = 0x01
	TypeData      Type = 0x02
	TypeError     Type = 0x03
)

// Data frame flags.
const (
	FlagHasOffsetTable uint8 = 1 << iota
	FlagFinal
)

// MinMTU is the smallest MTU a handshake may announce.
const MinMTU = 64

// Magic is the two byte preamble of every frame.
var Magic = [2]byte{0xC3, 0x57}

// Frame is one of HandshakeFrame, DataFrame or ErrorFrame.
type Frame interface {
	Type() Type
}

type HandshakeFrame struct {
	Session     uuid.UUID
	VersionMask uint16
	MTU         uint16
	TimeoutMS   uint32
	AlgCount    uint8
	AlgCodes    []byte
}

func (HandshakeFrame) Type() Type { return TypeHandshake }

type DataFrame struct {
	Flags uint8
	// Offsets is carried only when Flags has FlagHasOffsetTable.
	Offsets []uint32
	Payload []byte
}

func (DataFrame) Type() Type { return TypeData }

type ErrorFrame struct {
	Code    uint8
	Reason  string
	DataLen uint16
	Data    []byte
}

func (ErrorFrame) Type() Type { return TypeError }

var handshakeDef = compound.NewStruct[HandshakeFrame]("handshake").
	Field(compound.Value("session", wire.UUID, func(h *HandshakeFrame) *uuid.UUID { return &h.Session })).
	Field(compound.Value("version_mask", wire.U16, func(h *HandshakeFrame) *uint16 { return &h.VersionMask },
		compound.Validate(func(_ *wire.Context, mask uint16, _ compound.Deps) error {
			if mask == 0 {
				return errors.New("no protocol version offered")
			}
			return nil
		}))).
	Field(compound.Value("mtu", wire.U16, func(h *HandshakeFrame) *uint16 { return &h.MTU },
		compound.Validate(func(_ *wire.Context, mtu uint16, _ compound.Deps) error {
			if mtu < MinMTU {
				return errors.Newf("mtu %d below %d", mtu, MinMTU)
			}
			return nil
		}))).
	Field(compound.Value("timeout_ms", wire.U32, func(h *HandshakeFrame) *uint32 { return &h.TimeoutMS },
		compound.WithOrder(wire.Big))).
	Field(compound.Count("alg_count", wire.U8, func(h *HandshakeFrame) *uint8 { return &h.AlgCount })).
	Field(compound.Collection("alg_codes", wire.Bytes, func(h *HandshakeFrame) *[]byte { return &h.AlgCodes },
		compound.CountFrom("alg_count"))).
	MustBuild()

var offsetRun = wire.Slice(wire.U32)

// offsetTable is present only when the flags field announces it, so it is
// a hook rather than a counted collection.
var offsetTable = compound.Hook[[]uint32]{
	Decode: func(r io.Reader, ctx *wire.Context, deps compound.Deps) ([]uint32, error) {
		flags, _ := compound.Dep[uint8](deps, "flags")
		if flags&FlagHasOffsetTable == 0 {
			return nil, nil
		}
		n, err := wire.U16.Decode(r, ctx)
		if err != nil {
			return nil, err
		}
		ctx.SetPending(uint64(n))
		return offsetRun.Decode(r, ctx)
	},
	Encode: func(w io.Writer, v []uint32, ctx *wire.Context, deps compound.Deps) (int, error) {
		flags, _ := compound.Dep[uint8](deps, "flags")
		if flags&FlagHasOffsetTable == 0 {
			if len(v) > 0 {
				return 0, wire.Fail(ctx, wire.KindInvalidEncoding, "encode data.offsets",
					"offsets given without FlagHasOffsetTable")
			}
			return 0, nil
		}
		if len(v) > math.MaxUint16 {
			return 0, wire.Fail(ctx, wire.KindCountFieldOverflow, "encode data.offsets",
				"offset table exceeds the u16 count")
		}
		n, err := wire.U16.Encode(w, uint16(len(v)), ctx)
		if err != nil {
			return n, err
		}
		ctx.SetPending(uint64(len(v)))
		m, err := offsetRun.Encode(w, v, ctx)
		return n + m, err
	},
}

var dataDef = compound.NewStruct[DataFrame]("data").
	Field(compound.Value("flags", wire.U8, func(d *DataFrame) *uint8 { return &d.Flags })).
	Field(compound.Custom("offsets", offsetTable, func(d *DataFrame) *[]uint32 { return &d.Offsets },
		compound.Uses("flags"))).
	Field(compound.View("payload", zc.BytesView, wire.Bytes, func(d *DataFrame) *[]byte { return &d.Payload })).
	MustBuild()

var errorDef = compound.NewStruct[ErrorFrame]("error").
	Field(compound.Value("code", wire.U8, func(e *ErrorFrame) *uint8 { return &e.Code })).
	Field(compound.Value("reason", wire.CString, func(e *ErrorFrame) *string { return &e.Reason })).
	Field(compound.Count("data_len", wire.U16, func(e *ErrorFrame) *uint16 { return &e.DataLen })).
	Field(compound.View("data", zc.BytesView, wire.Bytes, func(e *ErrorFrame) *[]byte { return &e.Data },
		compound.CountFrom("data_len"))).
	MustBuild()

var bodyDef = compound.NewUnion[Frame]("compactwire").
	Variant(compound.Case[Frame](handshakeDef, uint64(TypeHandshake))).
	Variant(compound.Case[Frame](dataDef)).
	Variant(compound.Case[Frame](errorDef)).
	MustBuild()
