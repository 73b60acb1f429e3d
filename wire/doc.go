// Package wire holds the codec contract shared by every layer of bincast:
// the parse context threaded through a call, the size hints each codec
// reports, the closed error model, and the stream codecs for primitives and
// collections.
//
// A collection reads its element count from the context when a sibling
// field supplied one, and from a u32 length prefix otherwise. The two never
// both apply.
package wire
