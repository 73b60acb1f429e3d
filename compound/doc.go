// Package compound sequences field codecs into structures and tagged unions.
//
// A definition is assembled once with NewStruct or NewUnion and compiled by
// Build, which resolves every field reference by name and rejects duplicate
// discriminants, forward references and malformed hooks. The compiled value
// is an ordinary wire.Codec and never looks a name up again.
//
//	var frame = compound.NewStruct[Frame]("frame").
//		Field(compound.Count("len", wire.U16, func(f *Frame) *uint16 { return &f.Len })).
//		Field(compound.Collection("body", wire.Bytes, func(f *Frame) *[]byte { return &f.Body },
//			compound.CountFrom("len"))).
//		MustBuild()
//
// On decode a dependent field reads its element count from its source field
// instead of a length prefix. On encode the source field is written from the
// dependent field's actual length.
package compound
