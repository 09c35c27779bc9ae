package structure

import (
	"fmt"
	"time"

	"golang.org/x/sys/cpu"
)

// NullIndex marks an absent arena index.
const NullIndex int32 = -1

// Handle refers to a slot of a SlotPool. The generation makes a handle go stale
// as soon as its slot is released, so a recycled slot is never mistaken for the
// record that used to live there.
type Handle struct {
	Index int32
	Gen   uint32
}

// NilHandle is the zero reference. It is never valid.
var NilHandle = Handle{Index: NullIndex}

// IsNil reports whether h refers to no slot.
func (h Handle) IsNil() bool {
	return h.Index == NullIndex
}

// SlotPoolOptions configures a SlotPool.
type SlotPoolOptions struct {
	// Clock returns a monotonic nanosecond reading. When set, every Acquire
	// records its latency, readable through LastAcquireLatency.
	Clock func() int64
}

// poolMeta groups the hot counters so they share one cache line.
type poolMeta struct {
	freeTop       int32
	allocated     int32
	lastAcquireNs int64
}

// SlotPool is a fixed-capacity free-list allocator.
//
// All slots are created up front; Acquire and Release only move indices on and
// off a stack. A SlotPool is not safe for concurrent use: it belongs to a
// single goroutine, normally the one owning the structure built on top of it.
type SlotPool[T any] struct {
	_     cpu.CacheLinePad
	meta  poolMeta
	_     cpu.CacheLinePad
	slots []T
	gens  []uint32
	free  []int32
	clock func() int64
}

// NewSlotPool creates a pool with capacity slots, all available.
func NewSlotPool[T any](capacity int) (*SlotPool[T], error) {
	return NewSlotPoolWithOptions[T](capacity, SlotPoolOptions{})
}

// NewSlotPoolWithOptions creates a pool with custom options.
func NewSlotPoolWithOptions[T any](capacity int, opts SlotPoolOptions) (*SlotPool[T], error) {
	if capacity <= 0 || capacity > 1<<31-1 {
		return nil, fmt.Errorf("slot pool capacity %d: %w", capacity, ErrInvalidCapacity)
	}

	p := &SlotPool[T]{
		slots: make([]T, capacity),
		gens:  make([]uint32, capacity),
		free:  make([]int32, capacity),
		clock: opts.Clock,
	}
	p.fill()
	return p, nil
}

// fill pushes every slot onto the free stack. Slot 0 ends on top so that a
// fresh pool hands out slots in ascending order.
func (p *SlotPool[T]) fill() {
	n := int32(len(p.slots))
	for i := int32(0); i < n; i++ {
		p.free[i] = n - 1 - i
	}
	p.meta.freeTop = n
	p.meta.allocated = 0
}

// Acquire takes a slot off the free stack. It returns NilHandle and false when
// the pool is exhausted. The slot keeps whatever its previous user left in it.
func (p *SlotPool[T]) Acquire() (Handle, bool) {
	if p.clock == nil {
		return p.acquire()
	}

	start := p.clock()
	h, ok := p.acquire()
	p.meta.lastAcquireNs = p.clock() - start
	return h, ok
}

func (p *SlotPool[T]) acquire() (Handle, bool) {
	if p.meta.freeTop == 0 {
		return NilHandle, false
	}

	p.meta.freeTop--
	idx := p.free[p.meta.freeTop]
	p.meta.allocated++
	return Handle{Index: idx, Gen: p.gens[idx]}, true
}

// Release returns the slot behind h to the pool and invalidates h.
// A stale, foreign or already released handle is refused and false is
// returned; builds with the hftdebug tag panic instead.
func (p *SlotPool[T]) Release(h Handle) bool {
	if !p.Valid(h) {
		if debugAssertions {
			panic(fmt.Sprintf("structure: release of invalid handle %+v", h))
		}
		return false
	}

	p.gens[h.Index]++
	p.free[p.meta.freeTop] = h.Index
	p.meta.freeTop++
	p.meta.allocated--
	return true
}

// Valid reports whether h refers to a slot that is currently acquired.
func (p *SlotPool[T]) Valid(h Handle) bool {
	return h.Index >= 0 && int(h.Index) < len(p.slots) && p.gens[h.Index] == h.Gen && p.allocatedSlot(h.Index)
}

// allocatedSlot catches handles minted by another pool whose index and
// generation happen to match a free slot here. Debug builds only: it scans the
// free stack.
func (p *SlotPool[T]) allocatedSlot(idx int32) bool {
	if !debugAssertions {
		return true
	}
	for i := int32(0); i < p.meta.freeTop; i++ {
		if p.free[i] == idx {
			return false
		}
	}
	return true
}

// At returns the slot behind h without validation. Builds with the hftdebug
// tag verify the generation.
func (p *SlotPool[T]) At(h Handle) *T {
	if debugAssertions && !p.Valid(h) {
		panic(fmt.Sprintf("structure: access through invalid handle %+v", h))
	}
	return &p.slots[h.Index]
}

// Get returns the slot behind h, or false if h is stale or foreign.
func (p *SlotPool[T]) Get(h Handle) (*T, bool) {
	if !p.Valid(h) {
		return nil, false
	}
	return &p.slots[h.Index], true
}

// Size returns the number of acquired slots.
func (p *SlotPool[T]) Size() int {
	return int(p.meta.allocated)
}

// Capacity returns the total number of slots.
func (p *SlotPool[T]) Capacity() int {
	return len(p.slots)
}

// Available returns the number of free slots.
func (p *SlotPool[T]) Available() int {
	return int(p.meta.freeTop)
}

// LastAcquireLatency returns the duration of the most recent Acquire, or zero
// when the pool has no clock.
func (p *SlotPool[T]) LastAcquireLatency() time.Duration {
	return time.Duration(p.meta.lastAcquireNs)
}

// Reset makes every slot available again. All outstanding handles go stale.
func (p *SlotPool[T]) Reset() {
	for i := range p.gens {
		p.gens[i]++
	}
	p.fill()
}
