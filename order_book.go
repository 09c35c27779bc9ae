package hftcore

import (
	"fmt"
	"math/bits"

	"github.com/0x5487/hftcore/protocol"
	"github.com/0x5487/hftcore/structure"
	"github.com/rs/xid"
)

// BookOptions configures an OrderBook. Zero values select the defaults.
type BookOptions struct {
	// Name identifies the book in logs.
	Name string

	// OrderCapacity is the number of order slots. Default DefaultOrderCapacity.
	OrderCapacity int

	// LevelCapacity is the number of price level slots shared by both sides.
	// Default DefaultLevelCapacity.
	LevelCapacity int

	// NotifyEvery samples add and cancel notifications: one in NotifyEvery
	// operations is published, the first one included. Must be a power of
	// two. 1 publishes every add and cancel. Default DefaultNotifyEvery.
	NotifyEvery int

	// IndexLevels keeps a skiplist price index per side, making level lookup
	// O(log n) instead of a walk from the best price.
	IndexLevels bool

	// Clock stamps orders and notifications. Default SystemClock.
	Clock Clock

	// Metrics receives operation counters. Optional.
	Metrics *Metrics
}

// OrderBook is a price-time priority limit order book.
//
// An OrderBook is not safe for concurrent use: every call must come from the
// goroutine that owns it. Records live in two fixed-capacity slot pools and
// are linked by generation-checked handles, so no mutation allocates.
// Notifications go to a single-producer ring that another goroutine drains.
type OrderBook struct {
	name string

	orders *structure.SlotPool[orderRecord]
	levels *structure.SlotPool[priceLevel]
	lookup map[uint64]structure.Handle

	bidSide bookSide
	askSide bookSide

	updates    *structure.Ring[Update]
	notifyMask uint64
	clock      Clock
	metrics    *Metrics
	session    xid.ID

	operations uint64
	sequence   uint64
	dropped    uint64
	lastUpdate int64
	lastReject RejectReason

	orderPoolEmpty bool
	levelPoolEmpty bool
}

// NewUpdateRing creates a notification ring. A zero capacity selects
// DefaultUpdateCapacity.
func NewUpdateRing(capacity int) (*structure.Ring[Update], error) {
	if capacity == 0 {
		capacity = DefaultUpdateCapacity
	}
	return structure.NewRing[Update](capacity)
}

// NewOrderBook creates an empty book publishing to updates. The ring must
// have exactly one consumer; the book is its only producer.
func NewOrderBook(updates *structure.Ring[Update], opts BookOptions) (*OrderBook, error) {
	if updates == nil {
		return nil, ErrNilUpdateRing
	}

	if opts.OrderCapacity == 0 {
		opts.OrderCapacity = DefaultOrderCapacity
	}
	if opts.LevelCapacity == 0 {
		opts.LevelCapacity = DefaultLevelCapacity
	}
	if opts.NotifyEvery == 0 {
		opts.NotifyEvery = DefaultNotifyEvery
	}
	if opts.NotifyEvery < 0 || bits.OnesCount(uint(opts.NotifyEvery)) != 1 {
		return nil, fmt.Errorf("notify every %d: %w", opts.NotifyEvery, ErrInvalidParam)
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}

	orders, err := structure.NewSlotPoolWithOptions[orderRecord](opts.OrderCapacity, structure.SlotPoolOptions{
		Clock: opts.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("order pool: %w", err)
	}
	levels, err := structure.NewSlotPool[priceLevel](opts.LevelCapacity)
	if err != nil {
		return nil, fmt.Errorf("level pool: %w", err)
	}

	book := &OrderBook{
		name:       opts.Name,
		orders:     orders,
		levels:     levels,
		lookup:     make(map[uint64]structure.Handle, opts.OrderCapacity),
		bidSide:    newBookSide(Bid, levels, orders),
		askSide:    newBookSide(Ask, levels, orders),
		updates:    updates,
		notifyMask: uint64(opts.NotifyEvery - 1),
		clock:      opts.Clock,
		metrics:    opts.Metrics,
		session:    xid.New(),
	}

	if opts.IndexLevels {
		book.bidSide.index = newLevelIndex(book.name, Bid, opts.LevelCapacity)
		book.askSide.index = newLevelIndex(book.name, Ask, opts.LevelCapacity)
	}

	logger.Info("order book created",
		"book", book.name,
		"session", book.session.String(),
		"order_capacity", opts.OrderCapacity,
		"level_capacity", opts.LevelCapacity,
		"notify_every", opts.NotifyEvery,
		"index_levels", opts.IndexLevels,
	)
	return book, nil
}

func newLevelIndex(name string, side Side, capacity int) *structure.PooledSkiplist[structure.Handle] {
	return structure.NewPooledSkiplistWithOptions[structure.Handle](int32(capacity), int64(side), structure.SkiplistOptions{
		OnGrow: func(oldCap, newCap int32) {
			logger.Warn("level index grew", "book", name, "side", side.String(), "old_cap", oldCap, "new_cap", newCap)
		},
	})
}

func (book *OrderBook) sideOf(side Side) *bookSide {
	if side == Bid {
		return &book.bidSide
	}
	return &book.askSide
}

func (book *OrderBook) reject(reason RejectReason) bool {
	book.lastReject = reason
	book.metrics.incReject(reason)
	return false
}

// AddOrder places a resting order. It returns false, leaving the book
// unchanged, when the id is zero or already active, the quantity is zero or
// less than Remaining, the price is not positive, the side is unknown, or a
// pool is exhausted. LastReject tells which.
//
// The book assigns the order's sequence number, and its timestamp when zero.
// Kind is carried as a label: market orders rest like limit orders.
func (book *OrderBook) AddOrder(o Order) bool {
	if reason := validateOrder(&o); reason != protocol.RejectReasonNone {
		return book.reject(reason)
	}
	if _, exists := book.lookup[o.ID]; exists {
		return book.reject(protocol.RejectReasonDuplicateID)
	}

	lh, ok := book.place(o)
	if !ok {
		return false
	}

	lvl := book.levels.At(lh)
	book.notifySampled(Update{
		Kind:          OrderAdded,
		Side:          o.Side,
		Instrument:    o.Instrument,
		OrderID:       o.ID,
		Price:         o.Price,
		Quantity:      o.Remaining,
		LevelQuantity: lvl.total,
		LevelOrders:   lvl.count,
	})
	book.metrics.incOp(opAdd)
	return true
}

func validateOrder(o *Order) RejectReason {
	if o.ID == 0 {
		return protocol.RejectReasonInvalidID
	}
	if o.Remaining == 0 {
		o.Remaining = o.Quantity
	}
	if o.Quantity == 0 || o.Remaining > o.Quantity {
		return protocol.RejectReasonInvalidQuantity
	}
	if !o.Price.IsPositive() {
		return protocol.RejectReasonInvalidPrice
	}
	if !o.Side.Valid() {
		return protocol.RejectReasonInvalidSide
	}
	return protocol.RejectReasonNone
}

// place stores a validated order and links it at the tail of its level.
// On pool exhaustion nothing is left behind.
func (book *OrderBook) place(o Order) (structure.Handle, bool) {
	oh, ok := book.orders.Acquire()
	if !ok {
		book.poolExhausted(poolOrder)
		return structure.NilHandle, book.reject(protocol.RejectReasonOrderPoolExhausted)
	}
	book.orderPoolEmpty = false

	side := book.sideOf(o.Side)
	lh := side.findLevel(o.Price)
	if lh.IsNil() {
		lh, ok = side.insertLevel(o.Price)
		if !ok {
			book.orders.Release(oh)
			book.poolExhausted(poolLevel)
			return structure.NilHandle, book.reject(protocol.RejectReasonLevelPoolExhausted)
		}
		book.levelPoolEmpty = false
	}

	book.sequence++
	if o.Timestamp == 0 {
		o.Timestamp = book.clock()
	}
	o.Sequence = book.sequence

	rec := book.orders.At(oh)
	rec.Order = o
	side.appendOrder(lh, oh)
	book.lookup[o.ID] = oh

	book.lastUpdate = o.Timestamp
	return lh, true
}

// poolExhausted counts every failed acquire and logs only the first one after
// the pool last had room.
func (book *OrderBook) poolExhausted(pool int) {
	book.metrics.incPoolExhausted(pool)

	flag := &book.orderPoolEmpty
	if pool == poolLevel {
		flag = &book.levelPoolEmpty
	}
	if *flag {
		return
	}
	*flag = true
	logger.Warn("slot pool exhausted", "book", book.name, "pool", poolNames[pool])
}

// CancelOrder removes an active order. It returns false when the id is
// unknown.
func (book *OrderBook) CancelOrder(id uint64) bool {
	oh, ok := book.lookup[id]
	if !ok {
		return book.reject(protocol.RejectReasonOrderNotFound)
	}

	rec := book.orders.At(oh)
	u := Update{
		Kind:       OrderCancelled,
		Side:       rec.Side,
		Instrument: rec.Instrument,
		OrderID:    id,
		Price:      rec.Price,
		Quantity:   rec.Remaining,
	}

	u.LevelQuantity, u.LevelOrders = book.unlink(oh)
	book.sequence++
	book.lastUpdate = book.clock()

	book.notifySampled(u)
	book.metrics.incOp(opCancel)
	return true
}

// unlink detaches and releases an order, dropping its level once empty.
// It returns the level state left behind.
func (book *OrderBook) unlink(oh structure.Handle) (uint64, uint32) {
	rec := book.orders.At(oh)
	id := rec.ID
	side := book.sideOf(rec.Side)

	lh := side.detachOrder(oh)
	*rec = orderRecord{}
	book.orders.Release(oh)
	delete(book.lookup, id)

	lvl := book.levels.At(lh)
	if lvl.count == 0 {
		side.removeLevel(lh)
		return 0, 0
	}
	return lvl.total, lvl.count
}

// ModifyOrder changes the price and quantity of an active order. It is a
// cancel followed by an add: the order gets a new timestamp and sequence
// number and goes to the back of its new level, losing time priority even
// when the price is unchanged. Between the two steps the order is absent
// from the book.
//
// Inputs are validated before anything changes. If the add step fails
// because the level pool is exhausted, the order stays cancelled and false
// is returned. Modify always notifies.
func (book *OrderBook) ModifyOrder(id uint64, price Price, qty uint64) bool {
	oh, ok := book.lookup[id]
	if !ok {
		return book.reject(protocol.RejectReasonOrderNotFound)
	}
	if qty == 0 {
		return book.reject(protocol.RejectReasonInvalidQuantity)
	}
	if !price.IsPositive() {
		return book.reject(protocol.RejectReasonInvalidPrice)
	}

	old := book.orders.At(oh).Order
	levelQty, levelOrders := book.unlink(oh)

	// both halves of the modify publish under the sequence place assigns
	seq := book.sequence + 1
	if old.Price != price {
		book.notify(Update{
			Kind:          LevelUpdated,
			Side:          old.Side,
			Instrument:    old.Instrument,
			Price:         old.Price,
			LevelQuantity: levelQty,
			LevelOrders:   levelOrders,
			Sequence:      seq,
		})
	}

	o := old
	o.Price = price
	o.Quantity = qty
	o.Remaining = qty
	o.Timestamp = 0

	lh, ok := book.place(o)
	if !ok {
		book.sequence = seq
		book.lastUpdate = book.clock()
		book.notify(Update{
			Kind:          OrderCancelled,
			Side:          old.Side,
			Instrument:    old.Instrument,
			OrderID:       id,
			Price:         old.Price,
			Quantity:      old.Remaining,
			LevelQuantity: levelQty,
			LevelOrders:   levelOrders,
		})
		return false
	}

	lvl := book.levels.At(lh)
	book.notify(Update{
		Kind:          OrderModified,
		Side:          o.Side,
		Instrument:    o.Instrument,
		OrderID:       id,
		Price:         price,
		Quantity:      qty,
		LevelQuantity: lvl.total,
		LevelOrders:   lvl.count,
	})
	book.operations++
	book.metrics.incOp(opModify)
	return true
}

// ProcessTrade executes qty against the resting orders at price on side,
// oldest first. Fully filled orders leave the book, an emptied level is
// removed. It returns the number of orders that received a fill.
func (book *OrderBook) ProcessTrade(price Price, qty uint64, side Side) int {
	if qty == 0 {
		book.reject(protocol.RejectReasonInvalidQuantity)
		return 0
	}
	if !price.IsPositive() {
		book.reject(protocol.RejectReasonInvalidPrice)
		return 0
	}
	if !side.Valid() {
		book.reject(protocol.RejectReasonInvalidSide)
		return 0
	}

	s := book.sideOf(side)
	lh := s.findLevel(price)
	if lh.IsNil() {
		return 0
	}

	var (
		affected   int
		executed   uint64
		left       = qty
		instrument Instrument
		removed    bool
	)

	lvl := s.levels.At(lh)
	oh := lvl.head
	for left > 0 && !oh.IsNil() {
		rec := book.orders.At(oh)
		next := rec.next
		instrument = rec.Instrument

		fill := min(rec.Remaining, left)
		rec.Remaining -= fill
		lvl.total -= fill
		left -= fill
		executed += fill
		affected++

		if rec.Remaining == 0 {
			if lvl.count == 1 {
				removed = true
			}
			book.unlink(oh)
		}
		oh = next
	}

	book.sequence++
	book.lastUpdate = book.clock()

	u := Update{
		Kind:       TradeExecuted,
		Side:       side,
		Instrument: instrument,
		Price:      price,
		Quantity:   executed,
	}
	if !removed {
		u.LevelQuantity = lvl.total
		u.LevelOrders = lvl.count
	}
	book.notify(u)

	book.operations++
	book.metrics.incOp(opTrade)
	book.metrics.addFills(affected)
	return affected
}

// BestBid returns the highest bid price and its aggregate quantity, or zeros
// when there are no bids.
func (book *OrderBook) BestBid() (Price, uint64) {
	return book.bidSide.top()
}

// BestAsk returns the lowest ask price and its aggregate quantity, or zeros
// when there are no asks.
func (book *OrderBook) BestAsk() (Price, uint64) {
	return book.askSide.top()
}

// Spread returns BestAsk - BestBid, or false when either side is empty.
func (book *OrderBook) Spread() (Price, bool) {
	if book.bidSide.best.IsNil() || book.askSide.best.IsNil() {
		return 0, false
	}
	bid, _ := book.bidSide.top()
	ask, _ := book.askSide.top()
	return ask - bid, true
}

// MarketDepth returns up to maxLevels levels of side, best first.
func (book *OrderBook) MarketDepth(side Side, maxLevels int) []DepthLevel {
	if !side.Valid() || maxLevels <= 0 {
		return nil
	}
	s := book.sideOf(side)
	return s.appendDepth(make([]DepthLevel, 0, min(maxLevels, s.depths)), maxLevels)
}

// AppendMarketDepth is MarketDepth appending to dst, for callers that reuse a
// buffer.
func (book *OrderBook) AppendMarketDepth(dst []DepthLevel, side Side, maxLevels int) []DepthLevel {
	if !side.Valid() {
		return dst
	}
	return book.sideOf(side).appendDepth(dst, maxLevels)
}

// Order returns a copy of the active order with the given id.
func (book *OrderBook) Order(id uint64) (Order, bool) {
	oh, ok := book.lookup[id]
	if !ok {
		return Order{}, false
	}
	return book.orders.At(oh).Order, true
}

// Len returns the number of active orders.
func (book *OrderBook) Len() int {
	return len(book.lookup)
}

// LevelCount returns the number of price levels on side.
func (book *OrderBook) LevelCount(side Side) int {
	if !side.Valid() {
		return 0
	}
	return book.sideOf(side).depths
}

// LastReject returns the reason of the most recent rejection.
func (book *OrderBook) LastReject() RejectReason {
	return book.lastReject
}

// Session returns the id of the current session. Reset starts a new one.
func (book *OrderBook) Session() xid.ID {
	return book.session
}

// Stats returns book counters.
func (book *OrderBook) Stats() BookStats {
	return BookStats{
		BidLevels:      book.bidSide.depths,
		AskLevels:      book.askSide.depths,
		Orders:         len(book.lookup),
		Operations:     book.operations,
		Sequence:       book.sequence,
		DroppedUpdates: book.dropped,
		LastUpdate:     book.lastUpdate,
		OrderSlotsFree: book.orders.Available(),
		LevelSlotsFree: book.levels.Available(),
	}
}

// Reset releases every order and level and starts a new session. A BookReset
// notification is always published.
func (book *OrderBook) Reset() {
	orders := len(book.lookup)

	book.orders.Reset()
	book.levels.Reset()
	clear(book.lookup)
	book.bidSide.clear()
	book.askSide.clear()

	book.operations = 0
	book.sequence++
	book.lastReject = protocol.RejectReasonNone
	book.orderPoolEmpty = false
	book.levelPoolEmpty = false
	book.session = xid.New()
	book.lastUpdate = book.clock()

	book.notify(Update{Kind: BookReset})
	book.metrics.incOp(opReset)

	logger.Info("order book reset", "book", book.name, "session", book.session.String(), "released_orders", orders)
}
