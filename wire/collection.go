package wire

import (
	"container/list"
	"fmt"
	"io"
	"math"

	"github.com/google/btree"
)

// collection is the one algorithm shared by every variable-length container.
// Containers differ only in how they are created, how an element is
// inserted, and the order in which they are walked for encoding.
type collection[C any, E any] struct {
	elem  Codec[E]
	name  string
	make  func(n int) C
	add   func(C, E) C
	count func(C) int
	each  func(C, func(E) error) error
}

func (c collection[C, E]) Hint() SizeHint { return Prefixed(LengthPrefixWidth) }

func (c collection[C, E]) Count(v C) int { return c.count(v) }

func (c collection[C, E]) Decode(r io.Reader, ctx *Context) (C, error) {
	var zero C
	n, err := ReadCount(r, ctx, "decode "+c.name)
	if err != nil {
		return zero, err
	}
	if eh := c.elem.Hint(); !eh.Variable && eh.Footprint == 0 && n > MaxEmptyElements {
		return zero, Fail(ctx, KindInvalidEncoding, "decode "+c.name,
			fmt.Sprintf("%d empty elements exceed %d", n, MaxEmptyElements))
	}
	out := c.make(min(n, runChunk))
	if f, ok := AsFixed(c.elem); ok {
		size := f.Hint().Footprint
		if size > 0 && n > math.MaxInt/size {
			return zero, Fail(ctx, KindInsufficientInput, "decode "+c.name, "element run exceeds addressable size")
		}
		run, err := ReadRun(r, n*size, ctx, "decode "+c.name)
		if err != nil {
			return zero, err
		}
		for i := range n {
			v, err := f.DecodeUnchecked(run[i*size:], ctx)
			if err != nil {
				return zero, err
			}
			out = c.add(out, v)
		}
		return out, nil
	}
	for range n {
		v, err := c.elem.Decode(r, ctx)
		if err != nil {
			return zero, err
		}
		out = c.add(out, v)
	}
	return out, nil
}

func (c collection[C, E]) Encode(w io.Writer, v C, ctx *Context) (int, error) {
	total, err := WriteCount(w, c.count(v), ctx, "encode "+c.name)
	if err != nil {
		return total, err
	}
	err = c.each(v, func(e E) error {
		n, err := c.elem.Encode(w, e, ctx)
		total += n
		return err
	})
	return total, err
}

// Slice is an append-ordered sequence.
func Slice[T any](elem Codec[T]) Counted[[]T] {
	return collection[[]T, T]{
		elem:  elem,
		name:  "slice",
		make:  func(n int) []T { return make([]T, 0, n) },
		add:   func(s []T, v T) []T { return append(s, v) },
		count: func(s []T) int { return len(s) },
		each: func(s []T, f func(T) error) error {
			for _, v := range s {
				if err := f(v); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// DequeOf is a double-ended sequence, walked front to back.
func DequeOf[T any](elem Codec[T]) Counted[*Deque[T]] {
	return collection[*Deque[T], T]{
		elem: elem,
		name: "deque",
		make: func(n int) *Deque[T] { return NewDeque[T](n) },
		add: func(d *Deque[T], v T) *Deque[T] {
			d.PushBack(v)
			return d
		},
		count: func(d *Deque[T]) int { return d.Len() },
		each: func(d *Deque[T], f func(T) error) error {
			for i := range d.Len() {
				if err := f(d.At(i)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// List is a linked sequence backed by container/list. Elements must hold T.
func List[T any](elem Codec[T]) Counted[*list.List] {
	return collection[*list.List, T]{
		elem: elem,
		name: "list",
		make: func(int) *list.List { return list.New() },
		add: func(l *list.List, v T) *list.List {
			l.PushBack(v)
			return l
		},
		count: func(l *list.List) int {
			if l == nil {
				return 0
			}
			return l.Len()
		},
		each: func(l *list.List, f func(T) error) error {
			if l == nil {
				return nil
			}
			for e := l.Front(); e != nil; e = e.Next() {
				if err := f(e.Value.(T)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// Set is a hash set. Its encoding order is unspecified.
func Set[T comparable](elem Codec[T]) Counted[map[T]struct{}] {
	return collection[map[T]struct{}, T]{
		elem: elem,
		name: "set",
		make: func(n int) map[T]struct{} { return make(map[T]struct{}, n) },
		add: func(m map[T]struct{}, v T) map[T]struct{} {
			m[v] = struct{}{}
			return m
		},
		count: func(m map[T]struct{}) int { return len(m) },
		each: func(m map[T]struct{}, f func(T) error) error {
			for v := range m {
				if err := f(v); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// btreeDegree is the node degree used for ordered containers.
const btreeDegree = 16

// NewOrderedSet returns an empty set compatible with OrderedSet.
func NewOrderedSet[T btree.Ordered]() *btree.BTreeG[T] {
	return btree.NewOrderedG[T](btreeDegree)
}

// OrderedSet is a unique set walked in ascending order.
func OrderedSet[T btree.Ordered](elem Codec[T]) Counted[*btree.BTreeG[T]] {
	return OrderedSetFunc(elem, btree.Less[T]())
}

// OrderedSetFunc is OrderedSet with a caller supplied ordering.
func OrderedSetFunc[T any](elem Codec[T], less btree.LessFunc[T]) Counted[*btree.BTreeG[T]] {
	return collection[*btree.BTreeG[T], T]{
		elem: elem,
		name: "ordered set",
		make: func(int) *btree.BTreeG[T] { return btree.NewG(btreeDegree, less) },
		add: func(s *btree.BTreeG[T], v T) *btree.BTreeG[T] {
			s.ReplaceOrInsert(v)
			return s
		},
		count: func(s *btree.BTreeG[T]) int {
			if s == nil {
				return 0
			}
			return s.Len()
		},
		each: walkTree[T],
	}
}

// Entry is one key/value pair of a map.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Map is a hash map. Its encoding order is unspecified.
func Map[K comparable, V any](key Codec[K], value Codec[V]) Counted[map[K]V] {
	return collection[map[K]V, Entry[K, V]]{
		elem: EntryOf(key, value),
		name: "map",
		make: func(n int) map[K]V { return make(map[K]V, n) },
		add: func(m map[K]V, e Entry[K, V]) map[K]V {
			m[e.Key] = e.Value
			return m
		},
		count: func(m map[K]V) int { return len(m) },
		each: func(m map[K]V, f func(Entry[K, V]) error) error {
			for k, v := range m {
				if err := f(Entry[K, V]{Key: k, Value: v}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// NewOrderedMap returns an empty map compatible with OrderedMap.
func NewOrderedMap[K btree.Ordered, V any]() *btree.BTreeG[Entry[K, V]] {
	return btree.NewG(btreeDegree, entryLess[K, V])
}

func entryLess[K btree.Ordered, V any](a, b Entry[K, V]) bool { return a.Key < b.Key }

// OrderedMap is a keyed map walked in ascending key order.
func OrderedMap[K btree.Ordered, V any](key Codec[K], value Codec[V]) Counted[*btree.BTreeG[Entry[K, V]]] {
	return collection[*btree.BTreeG[Entry[K, V]], Entry[K, V]]{
		elem: EntryOf(key, value),
		name: "ordered map",
		make: func(int) *btree.BTreeG[Entry[K, V]] { return NewOrderedMap[K, V]() },
		add: func(m *btree.BTreeG[Entry[K, V]], e Entry[K, V]) *btree.BTreeG[Entry[K, V]] {
			m.ReplaceOrInsert(e)
			return m
		},
		count: func(m *btree.BTreeG[Entry[K, V]]) int {
			if m == nil {
				return 0
			}
			return m.Len()
		},
		each: walkTree[Entry[K, V]],
	}
}

func walkTree[T any](t *btree.BTreeG[T], f func(T) error) error {
	if t == nil {
		return nil
	}
	var err error
	t.Ascend(func(v T) bool {
		err = f(v)
		return err == nil
	})
	return err
}

// HeapOf is a priority collection. It is encoded in the heap's internal
// order, which decoding reproduces exactly.
func HeapOf[T any](elem Codec[T], less func(a, b T) bool) Counted[*Heap[T]] {
	return collection[*Heap[T], T]{
		elem: elem,
		name: "heap",
		make: func(n int) *Heap[T] { return NewHeap(less, n) },
		add: func(h *Heap[T], v T) *Heap[T] {
			h.Push(v)
			return h
		},
		count: func(h *Heap[T]) int { return h.Len() },
		each: func(h *Heap[T], f func(T) error) error {
			for _, v := range h.items {
				if err := f(v); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

type entry[K, V any] struct {
	key   Codec[K]
	value Codec[V]
}

// EntryOf encodes a key immediately followed by its value.
func EntryOf[K, V any](key Codec[K], value Codec[V]) Codec[Entry[K, V]] {
	e := entry[K, V]{key: key, value: value}
	if _, ok := AsFixed(key); ok {
		if _, ok := AsFixed(value); ok {
			return fixedEntry[K, V]{entry: e}
		}
	}
	return e
}

func (e entry[K, V]) Hint() SizeHint { return Seq(e.key.Hint(), e.value.Hint()) }

func (e entry[K, V]) Decode(r io.Reader, ctx *Context) (Entry[K, V], error) {
	k, err := e.key.Decode(r, ctx)
	if err != nil {
		return Entry[K, V]{}, err
	}
	v, err := e.value.Decode(r, ctx)
	if err != nil {
		return Entry[K, V]{}, err
	}
	return Entry[K, V]{Key: k, Value: v}, nil
}

func (e entry[K, V]) Encode(w io.Writer, v Entry[K, V], ctx *Context) (int, error) {
	n, err := e.key.Encode(w, v.Key, ctx)
	if err != nil {
		return n, err
	}
	m, err := e.value.Encode(w, v.Value, ctx)
	return n + m, err
}

type fixedEntry[K, V any] struct {
	entry[K, V]
}

func (e fixedEntry[K, V]) DecodeUnchecked(b []byte, ctx *Context) (Entry[K, V], error) {
	kf, _ := AsFixed(e.key)
	vf, _ := AsFixed(e.value)
	k, err := kf.DecodeUnchecked(b, ctx)
	if err != nil {
		return Entry[K, V]{}, err
	}
	v, err := vf.DecodeUnchecked(b[e.key.Hint().Footprint:], ctx)
	if err != nil {
		return Entry[K, V]{}, err
	}
	return Entry[K, V]{Key: k, Value: v}, nil
}
