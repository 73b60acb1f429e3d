package common

import (
	"reflect"
	"unsafe"
)

// Scalar is the set of fixed-width numeric types that can be reinterpreted
// directly from their byte representation.
type Scalar interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NativeLittle reports whether the running platform stores integers
// least-significant byte first.
var NativeLittle = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// IsFixedKind reports whether k is a fixed-size primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// FixedSize returns the byte width for fixed-size primitive kinds.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// SizeOf returns the in-memory width of T.
func SizeOf[T Scalar]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// AlignOf returns the alignment the platform requires for T.
func AlignOf[T any]() int {
	var v T
	return int(unsafe.Alignof(v))
}

// Aligned reports whether the first byte of b sits on an address that is a
// multiple of align. An empty slice is always aligned.
func Aligned(b []byte, align int) bool {
	if len(b) == 0 || align <= 1 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))%uintptr(align) == 0
}

// Swap reverses b in place.
func Swap(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// Load reinterprets the first sizeof(T) bytes of b as T. The bytes are copied
// in native layout and reversed when little disagrees with the platform.
// b must hold at least sizeof(T) bytes.
func Load[T Scalar](b []byte, little bool) T {
	var v T
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v))
	copy(dst, b)
	if little != NativeLittle {
		Swap(dst)
	}
	return v
}

// Store writes v into the first sizeof(T) bytes of b in the requested order.
func Store[T Scalar](b []byte, v T, little bool) {
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v))
	n := copy(b, src)
	if little != NativeLittle {
		Swap(b[:n])
	}
}

// Cast returns a pointer aliasing the first sizeof(T) bytes of b. It is the
// only place where a byte range is reinterpreted as a typed reference; ok is
// false when b is too short or misaligned for T.
func Cast[T Scalar](b []byte) (p *T, ok bool) {
	if len(b) < SizeOf[T]() || !Aligned(b, AlignOf[T]()) {
		return nil, false
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), true
}

// CastSlice aliases n consecutive T values at the start of b.
func CastSlice[T Scalar](b []byte, n int) (s []T, ok bool) {
	if n < 0 || len(b) < n*SizeOf[T]() || !Aligned(b, AlignOf[T]()) {
		return nil, false
	}
	if n == 0 {
		return []T{}, true
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), true
}

// CastBytes exposes the memory behind s as bytes.
func CastBytes[T Scalar](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*SizeOf[T]())
}

// String aliases b as a string without copying. b must not be modified while
// the string is reachable.
func String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
