package wire

import "container/heap"

// Heap is a binary heap ordered by less; the least element is on top.
type Heap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// NewHeap returns an empty heap with room for n elements.
func NewHeap[T any](less func(a, b T) bool, n int) *Heap[T] {
	return &Heap[T]{items: make([]T, 0, n), less: less}
}

// heapAdapter satisfies container/heap without exposing its methods on Heap.
type heapAdapter[T any] struct{ h *Heap[T] }

func (a heapAdapter[T]) Len() int           { return len(a.h.items) }
func (a heapAdapter[T]) Less(i, j int) bool { return a.h.less(a.h.items[i], a.h.items[j]) }
func (a heapAdapter[T]) Swap(i, j int)      { a.h.items[i], a.h.items[j] = a.h.items[j], a.h.items[i] }
func (a heapAdapter[T]) Push(x any)         { a.h.items = append(a.h.items, x.(T)) }
func (a heapAdapter[T]) Pop() any {
	n := len(a.h.items) - 1
	v := a.h.items[n]
	a.h.items = a.h.items[:n]
	return v
}

// Len returns the number of stored elements. A nil heap is empty.
func (h *Heap[T]) Len() int {
	if h == nil {
		return 0
	}
	return len(h.items)
}

func (h *Heap[T]) Push(v T) { heap.Push(heapAdapter[T]{h}, v) }

// Pop removes and returns the least element, reporting false when empty.
func (h *Heap[T]) Pop() (T, bool) {
	if h.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(heapAdapter[T]{h}).(T), true
}

// Peek returns the least element without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	if h.Len() == 0 {
		var zero T
		return zero, false
	}
	return h.items[0], true
}
