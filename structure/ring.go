package structure

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

var (
	ErrInvalidCapacity       = errors.New("structure: capacity must be positive")
	ErrCapacityNotPowerOfTwo = errors.New("structure: capacity must be a power of two")
)

// Ring is a bounded single-producer/single-consumer queue.
//
// Exactly one goroutine may call the push methods and exactly one goroutine may
// call the pop methods. One slot is always left empty so that head == tail means
// empty and head+1 == tail means full, which leaves Cap()-1 usable slots.
//
// T should be a plain value type: items are copied in and out of the buffer.
type Ring[T any] struct {
	_    cpu.CacheLinePad
	head atomic.Uint64 // next slot to write, owned by the producer
	_    cpu.CacheLinePad
	tail atomic.Uint64 // next slot to read, owned by the consumer
	_    cpu.CacheLinePad

	buffer []T
	mask   uint64
}

// NewRing creates a ring with the given capacity, which must be a power of two.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity <= 1 {
		return nil, ErrInvalidCapacity
	}
	if capacity&(capacity-1) != 0 {
		return nil, ErrCapacityNotPowerOfTwo
	}
	return &Ring[T]{
		buffer: make([]T, capacity),
		mask:   uint64(capacity - 1),
	}, nil
}

// MustNewRing is like NewRing but panics on an invalid capacity.
func MustNewRing[T any](capacity int) *Ring[T] {
	r, err := NewRing[T](capacity)
	if err != nil {
		panic(err)
	}
	return r
}

// TryPush copies item into the ring. It returns false, leaving the ring
// untouched, when the ring is full.
func (r *Ring[T]) TryPush(item T) bool {
	head := r.head.Load()
	next := (head + 1) & r.mask
	if next == r.tail.Load() {
		return false
	}

	r.buffer[head] = item
	r.head.Store(next)
	return true
}

// TryPop copies the oldest item into item. It returns false when the ring is empty.
func (r *Ring[T]) TryPop(item *T) bool {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return false
	}

	*item = r.buffer[tail]
	r.tail.Store((tail + 1) & r.mask)
	return true
}

// TryPushBatch pushes as many leading elements of items as fit and returns
// how many were pushed. The head cursor is published once for the whole batch.
func (r *Ring[T]) TryPushBatch(items []T) int {
	head := r.head.Load()
	tail := r.tail.Load()

	free := int(r.mask - ((head - tail) & r.mask))
	n := min(free, len(items))
	if n == 0 {
		return 0
	}

	first := copy(r.buffer[head:], items[:n])
	if first < n {
		copy(r.buffer, items[first:n])
	}

	r.head.Store((head + uint64(n)) & r.mask)
	return n
}

// TryPopBatch fills dst with up to len(dst) items in FIFO order and returns
// how many were popped. The tail cursor is published once for the whole batch.
func (r *Ring[T]) TryPopBatch(dst []T) int {
	tail := r.tail.Load()
	head := r.head.Load()

	used := int((head - tail) & r.mask)
	n := min(used, len(dst))
	if n == 0 {
		return 0
	}

	first := copy(dst[:n], r.buffer[tail:])
	if first < n {
		copy(dst[first:n], r.buffer)
	}

	r.tail.Store((tail + uint64(n)) & r.mask)
	return n
}

// Len returns the number of buffered items. The value may be stale by the time
// the caller uses it.
func (r *Ring[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((head - tail) & r.mask)
}

// Empty reports whether the ring holds no items.
func (r *Ring[T]) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Full reports whether a push would currently fail.
func (r *Ring[T]) Full() bool {
	return (r.head.Load()+1)&r.mask == r.tail.Load()
}

// Cap returns the size of the backing buffer. Cap()-1 items fit at once.
func (r *Ring[T]) Cap() int {
	return len(r.buffer)
}
