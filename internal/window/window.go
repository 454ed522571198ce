// Package window provides the bounded FIFO buffer shared by the fatigue and
// attention detectors.
package window

// Buffer is a fixed-capacity FIFO. Appending beyond capacity evicts the
// oldest element, so the buffer never holds more than its capacity.
type Buffer[T any] struct {
	items []T
	head  int
	size  int
}

// New creates a Buffer with the given capacity.
// It panics if capacity is not positive.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("window: capacity must be positive")
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Append adds v as the newest element, evicting the oldest if the buffer is full.
func (b *Buffer[T]) Append(v T) {
	if b.size < len(b.items) {
		b.items[(b.head+b.size)%len(b.items)] = v
		b.size++
		return
	}
	b.items[b.head] = v
	b.head = (b.head + 1) % len(b.items)
}

// Len returns the number of elements currently held.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// At returns the element at index i, where 0 is the oldest element.
// It panics if i is out of range.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.size {
		panic("window: index out of range")
	}
	return b.items[(b.head+i)%len(b.items)]
}

// Oldest returns the oldest element, or false if the buffer is empty.
func (b *Buffer[T]) Oldest() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[b.head], true
}

// Latest returns the newest element, or false if the buffer is empty.
func (b *Buffer[T]) Latest() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

// PopOldest removes and returns the oldest element, or false if the buffer is empty.
func (b *Buffer[T]) PopOldest() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	v := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.size--
	return v, true
}

// Items returns the elements in order from oldest to newest as a new slice.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}
