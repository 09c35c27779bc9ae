package hftcore

import (
	"github.com/0x5487/hftcore/structure"
)

// priceLevel holds every resting order at one price on one side.
// Orders form a FIFO through orderRecord.prev/next; levels form the side's
// sorted chain through prev/next, prev pointing toward the best price.
type priceLevel struct {
	price Price
	total uint64
	count uint32
	head  structure.Handle
	tail  structure.Handle
	prev  structure.Handle
	next  structure.Handle
}

// bookSide is one sorted chain of price levels. Bids are kept descending and
// asks ascending, so the head of the chain is always the best price.
type bookSide struct {
	side   Side
	best   structure.Handle
	worst  structure.Handle
	depths int

	levels *structure.SlotPool[priceLevel]
	orders *structure.SlotPool[orderRecord]

	// optional price -> level index for deep books
	index *structure.PooledSkiplist[structure.Handle]
}

func newBookSide(side Side, levels *structure.SlotPool[priceLevel], orders *structure.SlotPool[orderRecord]) bookSide {
	return bookSide{
		side:   side,
		best:   structure.NilHandle,
		worst:  structure.NilHandle,
		levels: levels,
		orders: orders,
	}
}

// better reports whether a ranks ahead of b on this side.
func (s *bookSide) better(a, b Price) bool {
	if s.side == Bid {
		return a > b
	}
	return a < b
}

// findLevel returns the level at price or NilHandle. The walk starts at the
// best level, so prices at or near the top of book resolve in O(1).
func (s *bookSide) findLevel(price Price) structure.Handle {
	if s.index != nil {
		if h, ok := s.index.Get(int64(price)); ok {
			return h
		}
		return structure.NilHandle
	}

	h := s.best
	for !h.IsNil() {
		lvl := s.levels.At(h)
		if lvl.price == price {
			return h
		}
		if !s.better(lvl.price, price) {
			break
		}
		h = lvl.next
	}
	return structure.NilHandle
}

// predecessor returns the last level that ranks ahead of price, or NilHandle
// when price would become the new best.
func (s *bookSide) predecessor(price Price) structure.Handle {
	if s.best.IsNil() || s.better(price, s.levels.At(s.best).price) {
		return structure.NilHandle
	}
	if s.better(s.levels.At(s.worst).price, price) {
		return s.worst
	}

	if s.index != nil {
		var (
			h  structure.Handle
			ok bool
		)
		if s.side == Bid {
			_, h, ok = s.index.Ceiling(int64(price))
		} else {
			_, h, ok = s.index.Floor(int64(price))
		}
		if ok {
			return h
		}
		return structure.NilHandle
	}

	prev := s.best
	for {
		next := s.levels.At(prev).next
		if next.IsNil() || !s.better(s.levels.At(next).price, price) {
			return prev
		}
		prev = next
	}
}

// insertLevel creates an empty level at price and links it in sorted
// position. It returns false when the level pool is exhausted.
func (s *bookSide) insertLevel(price Price) (structure.Handle, bool) {
	h, ok := s.levels.Acquire()
	if !ok {
		return structure.NilHandle, false
	}

	prev := s.predecessor(price)
	if s.index != nil {
		if _, err := s.index.Insert(int64(price), h); err != nil {
			s.levels.Release(h)
			return structure.NilHandle, false
		}
	}

	lvl := s.levels.At(h)
	*lvl = priceLevel{
		price: price,
		head:  structure.NilHandle,
		tail:  structure.NilHandle,
		prev:  prev,
	}

	if prev.IsNil() {
		lvl.next = s.best
		s.best = h
	} else {
		p := s.levels.At(prev)
		lvl.next = p.next
		p.next = h
	}

	if lvl.next.IsNil() {
		s.worst = h
	} else {
		s.levels.At(lvl.next).prev = h
	}

	s.depths++
	return h, true
}

// removeLevel unlinks an empty level and returns it to the pool. Removing
// the best level advances best to the next level in the chain.
func (s *bookSide) removeLevel(h structure.Handle) {
	lvl := s.levels.At(h)

	if lvl.prev.IsNil() {
		s.best = lvl.next
	} else {
		s.levels.At(lvl.prev).next = lvl.next
	}
	if lvl.next.IsNil() {
		s.worst = lvl.prev
	} else {
		s.levels.At(lvl.next).prev = lvl.prev
	}

	if s.index != nil {
		s.index.Delete(int64(lvl.price))
	}

	*lvl = priceLevel{}
	s.levels.Release(h)
	s.depths--
}

// appendOrder pushes the order to the back of the level queue.
func (s *bookSide) appendOrder(lh, oh structure.Handle) {
	lvl := s.levels.At(lh)
	rec := s.orders.At(oh)

	rec.level = lh
	rec.prev = lvl.tail
	rec.next = structure.NilHandle

	if lvl.tail.IsNil() {
		lvl.head = oh
	} else {
		s.orders.At(lvl.tail).next = oh
	}
	lvl.tail = oh

	lvl.total += rec.Remaining
	lvl.count++
}

// detachOrder unlinks the order from its level queue and returns the level.
// The caller decides whether the level must go.
func (s *bookSide) detachOrder(oh structure.Handle) structure.Handle {
	rec := s.orders.At(oh)
	lh := rec.level
	lvl := s.levels.At(lh)

	if rec.prev.IsNil() {
		lvl.head = rec.next
	} else {
		s.orders.At(rec.prev).next = rec.next
	}
	if rec.next.IsNil() {
		lvl.tail = rec.prev
	} else {
		s.orders.At(rec.next).prev = rec.prev
	}

	lvl.total -= rec.Remaining
	lvl.count--

	rec.prev = structure.NilHandle
	rec.next = structure.NilHandle
	rec.level = structure.NilHandle
	return lh
}

// top returns the best price and its aggregate quantity.
func (s *bookSide) top() (Price, uint64) {
	if s.best.IsNil() {
		return 0, 0
	}
	lvl := s.levels.At(s.best)
	return lvl.price, lvl.total
}

// appendDepth appends up to limit levels starting from the best one.
func (s *bookSide) appendDepth(dst []DepthLevel, limit int) []DepthLevel {
	h := s.best
	for i := 0; i < limit && !h.IsNil(); i++ {
		lvl := s.levels.At(h)
		dst = append(dst, DepthLevel{
			Price:    lvl.price,
			Quantity: lvl.total,
			Orders:   lvl.count,
		})
		h = lvl.next
	}
	return dst
}

// appendOrders appends every resting order in priority order: price first,
// then arrival within the level.
func (s *bookSide) appendOrders(dst []Order) []Order {
	for lh := s.best; !lh.IsNil(); {
		lvl := s.levels.At(lh)
		for oh := lvl.head; !oh.IsNil(); {
			rec := s.orders.At(oh)
			dst = append(dst, rec.Order)
			oh = rec.next
		}
		lh = lvl.next
	}
	return dst
}

func (s *bookSide) clear() {
	s.best = structure.NilHandle
	s.worst = structure.NilHandle
	s.depths = 0
	if s.index != nil {
		s.index.Reset()
	}
}
