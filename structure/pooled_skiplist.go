package structure

import (
	"errors"
	"math/rand"
)

// PooledSkiplist is an ordered int64 → V map stored in a node arena.
// Lookups, inserts and deletes are O(log N) and allocation free while the
// arena has room. Every node carries SkiplistMaxHeight links so freed nodes
// can be reused at any height; the free list is threaded through next[0].

const (
	SkiplistMaxHeight    = 16
	SkiplistBranching    = 4 // a node reaches the next height with probability 1/SkiplistBranching
	SkiplistGrowthFactor = 2
)

// ErrSkiplistFull is returned when the arena is at MaxCapacity.
var ErrSkiplistFull = errors.New("skiplist: max capacity reached")

// SkiplistNode is one arena entry.
type SkiplistNode[V any] struct {
	next   [SkiplistMaxHeight]int32
	Key    int64
	Value  V
	height int32
}

// SkiplistOptions configures the pooled skiplist behavior.
type SkiplistOptions struct {
	// MaxCapacity caps the arena size, head sentinel included.
	// If 0 (default), the arena grows without limit.
	MaxCapacity int32

	// OnGrow is called when the arena expands.
	OnGrow func(prevCap, nextCap int32)
}

// PooledSkiplist is an arena-backed skiplist.
type PooledSkiplist[V any] struct {
	nodes       []SkiplistNode[V]
	head        int32
	freeList    int32
	count       int32
	height      int32
	rng         *rand.Rand
	seed        int64
	maxCapacity int32
	onGrow      func(int32, int32)
}

// NewPooledSkiplist creates a skiplist with room for capacity keys.
func NewPooledSkiplist[V any](capacity int32, seed int64) *PooledSkiplist[V] {
	return NewPooledSkiplistWithOptions[V](capacity, seed, SkiplistOptions{})
}

// NewPooledSkiplistWithOptions creates a skiplist with custom options.
func NewPooledSkiplistWithOptions[V any](capacity int32, seed int64, opts SkiplistOptions) *PooledSkiplist[V] {
	if capacity < 1 {
		capacity = 1
	}
	sl := &PooledSkiplist[V]{
		nodes:       make([]SkiplistNode[V], capacity+1), // +1 for head sentinel
		rng:         rand.New(rand.NewSource(seed)),
		seed:        seed,
		maxCapacity: opts.MaxCapacity,
		onGrow:      opts.OnGrow,
	}
	sl.init()
	return sl
}

func (sl *PooledSkiplist[V]) init() {
	total := int32(len(sl.nodes))

	sl.head = 0
	sl.count = 0
	sl.height = 1
	sl.nodes[0].height = SkiplistMaxHeight
	for i := 0; i < SkiplistMaxHeight; i++ {
		sl.nodes[0].next[i] = NullIndex
	}

	if total == 1 {
		sl.freeList = NullIndex
		return
	}
	sl.freeList = 1
	for i := int32(1); i < total-1; i++ {
		sl.nodes[i].next[0] = i + 1
	}
	sl.nodes[total-1].next[0] = NullIndex
}

// Reset empties the skiplist, keeping the arena.
func (sl *PooledSkiplist[V]) Reset() {
	var zero V
	for i := range sl.nodes {
		sl.nodes[i].Value = zero
	}
	sl.rng.Seed(sl.seed)
	sl.init()
}

// grow expands the arena capacity.
func (sl *PooledSkiplist[V]) grow() error {
	prevCap := int32(len(sl.nodes))
	nextCap := prevCap * SkiplistGrowthFactor

	if sl.maxCapacity > 0 && nextCap > sl.maxCapacity {
		if prevCap >= sl.maxCapacity {
			return ErrSkiplistFull
		}
		nextCap = sl.maxCapacity
	}

	if sl.onGrow != nil {
		sl.onGrow(prevCap, nextCap)
	}

	grown := make([]SkiplistNode[V], nextCap)
	copy(grown, sl.nodes)

	for i := prevCap; i < nextCap-1; i++ {
		grown[i].next[0] = i + 1
	}
	grown[nextCap-1].next[0] = sl.freeList
	sl.freeList = prevCap

	sl.nodes = grown
	return nil
}

// alloc takes a node from the free list, growing if necessary.
func (sl *PooledSkiplist[V]) alloc() (int32, error) {
	if sl.freeList == NullIndex {
		if err := sl.grow(); err != nil {
			return NullIndex, err
		}
	}
	idx := sl.freeList
	sl.freeList = sl.nodes[idx].next[0]

	for i := 0; i < SkiplistMaxHeight; i++ {
		sl.nodes[idx].next[i] = NullIndex
	}
	return idx, nil
}

// free returns a node to the free list.
func (sl *PooledSkiplist[V]) free(idx int32) {
	var zero V
	sl.nodes[idx].Value = zero
	sl.nodes[idx].next[0] = sl.freeList
	sl.freeList = idx
}

func (sl *PooledSkiplist[V]) randomHeight() int32 {
	h := int32(1)
	for h < SkiplistMaxHeight && sl.rng.Intn(SkiplistBranching) == 0 {
		h++
	}
	return h
}

// predecessors fills preds with the last node before key on every level and
// returns the level-0 predecessor.
func (sl *PooledSkiplist[V]) predecessors(key int64, preds *[SkiplistMaxHeight]int32) int32 {
	x := sl.head
	for i := sl.height - 1; i >= 0; i-- {
		for sl.nodes[x].next[i] != NullIndex && sl.nodes[sl.nodes[x].next[i]].Key < key {
			x = sl.nodes[x].next[i]
		}
		if preds != nil {
			preds[i] = x
		}
	}
	return x
}

// Insert adds key with value. It returns false, leaving the existing value,
// if key is already present, and an error when the arena cannot grow.
func (sl *PooledSkiplist[V]) Insert(key int64, value V) (bool, error) {
	var preds [SkiplistMaxHeight]int32
	x := sl.nodes[sl.predecessors(key, &preds)].next[0]

	if x != NullIndex && sl.nodes[x].Key == key {
		return false, nil
	}

	node, err := sl.alloc()
	if err != nil {
		return false, err
	}

	nodeHeight := sl.randomHeight()
	if nodeHeight > sl.height {
		for i := sl.height; i < nodeHeight; i++ {
			preds[i] = sl.head
		}
		sl.height = nodeHeight
	}

	n := &sl.nodes[node]
	n.Key = key
	n.Value = value
	n.height = nodeHeight

	for i := int32(0); i < nodeHeight; i++ {
		n.next[i] = sl.nodes[preds[i]].next[i]
		sl.nodes[preds[i]].next[i] = node
	}

	sl.count++
	return true, nil
}

// MustInsert is like Insert but panics on error.
func (sl *PooledSkiplist[V]) MustInsert(key int64, value V) bool {
	inserted, err := sl.Insert(key, value)
	if err != nil {
		panic(err)
	}
	return inserted
}

// Get returns the value stored under key.
func (sl *PooledSkiplist[V]) Get(key int64) (V, bool) {
	x := sl.nodes[sl.predecessors(key, nil)].next[0]
	if x != NullIndex && sl.nodes[x].Key == key {
		return sl.nodes[x].Value, true
	}
	var zero V
	return zero, false
}

// Contains checks if key exists in the skiplist.
func (sl *PooledSkiplist[V]) Contains(key int64) bool {
	_, ok := sl.Get(key)
	return ok
}

// Delete removes key. Returns true if deleted, false if not found.
func (sl *PooledSkiplist[V]) Delete(key int64) bool {
	var preds [SkiplistMaxHeight]int32
	x := sl.nodes[sl.predecessors(key, &preds)].next[0]

	if x == NullIndex || sl.nodes[x].Key != key {
		return false
	}

	for i := int32(0); i < sl.height; i++ {
		if sl.nodes[preds[i]].next[i] != x {
			break
		}
		sl.nodes[preds[i]].next[i] = sl.nodes[x].next[i]
	}

	sl.free(x)

	for sl.height > 1 && sl.nodes[sl.head].next[sl.height-1] == NullIndex {
		sl.height--
	}

	sl.count--
	return true
}

// Floor returns the entry with the greatest key <= key.
func (sl *PooledSkiplist[V]) Floor(key int64) (int64, V, bool) {
	pred := sl.predecessors(key, nil)
	x := sl.nodes[pred].next[0]
	if x != NullIndex && sl.nodes[x].Key == key {
		return key, sl.nodes[x].Value, true
	}
	if pred == sl.head {
		var zero V
		return 0, zero, false
	}
	return sl.nodes[pred].Key, sl.nodes[pred].Value, true
}

// Ceiling returns the entry with the smallest key >= key.
func (sl *PooledSkiplist[V]) Ceiling(key int64) (int64, V, bool) {
	x := sl.nodes[sl.predecessors(key, nil)].next[0]
	if x == NullIndex {
		var zero V
		return 0, zero, false
	}
	return sl.nodes[x].Key, sl.nodes[x].Value, true
}

// Min returns the entry with the smallest key.
func (sl *PooledSkiplist[V]) Min() (int64, V, bool) {
	x := sl.nodes[sl.head].next[0]
	if x == NullIndex {
		var zero V
		return 0, zero, false
	}
	return sl.nodes[x].Key, sl.nodes[x].Value, true
}

// Max returns the entry with the greatest key.
func (sl *PooledSkiplist[V]) Max() (int64, V, bool) {
	x := sl.head
	for i := sl.height - 1; i >= 0; i-- {
		for sl.nodes[x].next[i] != NullIndex {
			x = sl.nodes[x].next[i]
		}
	}
	if x == sl.head {
		var zero V
		return 0, zero, false
	}
	return sl.nodes[x].Key, sl.nodes[x].Value, true
}

// Count returns the number of keys.
func (sl *PooledSkiplist[V]) Count() int32 {
	return sl.count
}

// Capacity returns the current capacity of the arena.
func (sl *PooledSkiplist[V]) Capacity() int32 {
	return int32(len(sl.nodes)) - 1 // -1 for head sentinel
}

// Keys returns all keys in ascending order.
func (sl *PooledSkiplist[V]) Keys() []int64 {
	result := make([]int64, 0, sl.count)
	for it := sl.Iterator(); it.Valid(); it.Next() {
		result = append(result, it.Key())
	}
	return result
}

// SkiplistIterator provides ordered traversal over the skiplist.
// Usage:
//
//	for it := sl.Iterator(); it.Valid(); it.Next() {
//	    key, value := it.Key(), it.Value()
//	    // ...
//	}
type SkiplistIterator[V any] struct {
	sl      *PooledSkiplist[V]
	current int32
}

// Iterator returns an iterator positioned at the smallest key.
func (sl *PooledSkiplist[V]) Iterator() SkiplistIterator[V] {
	return SkiplistIterator[V]{
		sl:      sl,
		current: sl.nodes[sl.head].next[0],
	}
}

// Valid returns true if the iterator points to an element.
func (it *SkiplistIterator[V]) Valid() bool {
	return it.current != NullIndex
}

// Next advances the iterator to the next element.
func (it *SkiplistIterator[V]) Next() {
	if it.current != NullIndex {
		it.current = it.sl.nodes[it.current].next[0]
	}
}

// Key returns the key at the current position. Only valid when Valid() is true.
func (it *SkiplistIterator[V]) Key() int64 {
	return it.sl.nodes[it.current].Key
}

// Value returns the value at the current position.
func (it *SkiplistIterator[V]) Value() V {
	return it.sl.nodes[it.current].Value
}
