package hftcore

import (
	"github.com/0x5487/hftcore/protocol"
	"github.com/0x5487/hftcore/structure"
	"github.com/rs/xid"
)

type Side = protocol.Side

const (
	Bid Side = protocol.SideBid
	Ask Side = protocol.SideAsk
)

type OrderKind = protocol.OrderKind

const (
	Limit  OrderKind = protocol.OrderKindLimit
	Market OrderKind = protocol.OrderKindMarket
)

type Instrument = protocol.Instrument

type UpdateKind = protocol.UpdateKind

const (
	OrderAdded     UpdateKind = protocol.UpdateOrderAdded
	OrderCancelled UpdateKind = protocol.UpdateOrderCancelled
	OrderModified  UpdateKind = protocol.UpdateOrderModified
	TradeExecuted  UpdateKind = protocol.UpdateTradeExecuted
	LevelUpdated   UpdateKind = protocol.UpdateLevelUpdated
	BookReset      UpdateKind = protocol.UpdateBookReset
)

type RejectReason = protocol.RejectReason

// Order is the caller-visible state of a resting order.
//
// Quantity is the original size. Remaining defaults to Quantity when zero on
// AddOrder. Timestamp is stamped from the book clock when zero; Sequence is
// always assigned by the book.
type Order struct {
	ID         uint64     `json:"id"`
	Instrument Instrument `json:"instrument"`
	Side       Side       `json:"side"`
	Kind       OrderKind  `json:"kind"`
	Price      Price      `json:"price"`
	Quantity   uint64     `json:"quantity"`
	Remaining  uint64     `json:"remaining"`
	Timestamp  int64      `json:"timestamp"` // Unix nano, submission time
	Sequence   uint64     `json:"sequence"`
}

// IsFilled reports whether nothing remains to trade.
func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// orderRecord is the pooled storage behind an Order. Links are handles into
// the book's slot pools.
type orderRecord struct {
	Order
	level structure.Handle
	prev  structure.Handle
	next  structure.Handle
}

// Update is the notification the book publishes on its ring. It is a plain
// value with no pointers so it can be copied across goroutines.
//
// LevelQuantity and LevelOrders carry the state of the touched level after the
// mutation, which lets a consumer rebuild depth from a sampled feed.
type Update struct {
	Kind          UpdateKind
	Side          Side
	Instrument    Instrument
	OrderID       uint64
	Price         Price
	Quantity      uint64
	LevelQuantity uint64
	LevelOrders   uint32
	Sequence      uint64
	Timestamp     int64
	Session       xid.ID
}

// DepthLevel is one aggregated price level.
type DepthLevel struct {
	Price    Price  `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   uint32 `json:"orders"`
}

// BookStats contains statistics about the order book.
type BookStats struct {
	BidLevels      int    `json:"bid_levels"`
	AskLevels      int    `json:"ask_levels"`
	Orders         int    `json:"orders"`
	Operations     uint64 `json:"operations"`
	Sequence       uint64 `json:"sequence"`
	DroppedUpdates uint64 `json:"dropped_updates"`
	LastUpdate     int64  `json:"last_update"`
	OrderSlotsFree int    `json:"order_slots_free"`
	LevelSlotsFree int    `json:"level_slots_free"`
}
