package wire

// Deque is a growable ring buffer supporting pushes and pops at both ends.
type Deque[T any] struct {
	buf   []T
	head  int
	count int
}

// NewDeque returns an empty deque with room for n elements.
func NewDeque[T any](n int) *Deque[T] {
	return &Deque[T]{buf: make([]T, max(n, 1))}
}

// Len returns the number of stored elements. A nil deque is empty.
func (d *Deque[T]) Len() int {
	if d == nil {
		return 0
	}
	return d.count
}

// At returns the i-th element counted from the front.
func (d *Deque[T]) At(i int) T {
	if i < 0 || i >= d.count {
		panic("wire: deque index out of range")
	}
	return d.buf[(d.head+i)%len(d.buf)]
}

func (d *Deque[T]) grow() {
	if d.buf == nil {
		d.buf = make([]T, 1)
	}
	if d.count < len(d.buf) {
		return
	}
	next := make([]T, len(d.buf)*2)
	for i := range d.count {
		next[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = next
	d.head = 0
}

func (d *Deque[T]) PushBack(v T) {
	d.grow()
	d.buf[(d.head+d.count)%len(d.buf)] = v
	d.count++
}

func (d *Deque[T]) PushFront(v T) {
	d.grow()
	d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
	d.buf[d.head] = v
	d.count++
}

// PopFront removes the first element, reporting false when empty.
func (d *Deque[T]) PopFront() (T, bool) {
	var zero T
	if d.Len() == 0 {
		return zero, false
	}
	v := d.buf[d.head]
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.count--
	return v, true
}

// PopBack removes the last element, reporting false when empty.
func (d *Deque[T]) PopBack() (T, bool) {
	var zero T
	if d.Len() == 0 {
		return zero, false
	}
	i := (d.head + d.count - 1) % len(d.buf)
	v := d.buf[i]
	d.buf[i] = zero
	d.count--
	return v, true
}
