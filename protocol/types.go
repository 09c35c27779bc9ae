package protocol

import "fmt"

// DepthItem is one aggregated price level as reported to external consumers.
type DepthItem struct {
	Price string `json:"price"`
	Size  uint64 `json:"size"`
	Count uint32 `json:"count"`
}

// GetDepthResponse represents the state of the order book depth.
type GetDepthResponse struct {
	Sequence uint64       `json:"sequence"`
	Asks     []*DepthItem `json:"asks"`
	Bids     []*DepthItem `json:"bids"`
}

// GetStatsResponse contains statistics about the order book.
type GetStatsResponse struct {
	AskLevelCount  int64  `json:"ask_level_count"`
	BidLevelCount  int64  `json:"bid_level_count"`
	OrderCount     int64  `json:"order_count"`
	Operations     uint64 `json:"operations"`
	DroppedUpdates uint64 `json:"dropped_updates"`
}

// Side represents the book side of an order.
type Side uint8

const (
	SideBid Side = 1
	SideAsk Side = 2
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBid || s == SideAsk
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "bid":
		*s = SideBid
	case "ask":
		*s = SideAsk
	default:
		return fmt.Errorf("protocol: unknown side %q", text)
	}
	return nil
}

// OrderKind represents the type of order.
type OrderKind uint8

const (
	OrderKindLimit  OrderKind = 0
	OrderKindMarket OrderKind = 1
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindLimit:
		return "limit"
	case OrderKindMarket:
		return "market"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k OrderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OrderKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "limit":
		*k = OrderKindLimit
	case "market":
		*k = OrderKindMarket
	default:
		return fmt.Errorf("protocol: unknown order kind %q", text)
	}
	return nil
}

// Instrument tags the traded instrument of an order. The book treats it as an
// opaque label carried through to notifications.
type Instrument uint8

const (
	InstrumentBill3M Instrument = iota
	InstrumentBill6M
	InstrumentNote2Y
	InstrumentNote5Y
	InstrumentNote10Y
	InstrumentBond30Y
)

var instrumentNames = [...]string{
	InstrumentBill3M:  "bill_3m",
	InstrumentBill6M:  "bill_6m",
	InstrumentNote2Y:  "note_2y",
	InstrumentNote5Y:  "note_5y",
	InstrumentNote10Y: "note_10y",
	InstrumentBond30Y: "bond_30y",
}

func (i Instrument) String() string {
	if int(i) < len(instrumentNames) {
		return instrumentNames[i]
	}
	return fmt.Sprintf("instrument(%d)", uint8(i))
}

// MarshalText implements encoding.TextMarshaler.
func (i Instrument) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Instrument) UnmarshalText(text []byte) error {
	v, err := ParseInstrument(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseInstrument maps a name produced by Instrument.String back to its tag.
func ParseInstrument(name string) (Instrument, error) {
	for i, n := range instrumentNames {
		if n == name {
			return Instrument(i), nil
		}
	}
	return 0, fmt.Errorf("protocol: unknown instrument %q", name)
}

// UpdateKind tells consumers what a book notification describes.
type UpdateKind uint8

const (
	UpdateOrderAdded UpdateKind = iota
	UpdateOrderCancelled
	UpdateOrderModified
	UpdateTradeExecuted
	UpdateLevelUpdated
	UpdateBookReset
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateOrderAdded:
		return "order_added"
	case UpdateOrderCancelled:
		return "order_cancelled"
	case UpdateOrderModified:
		return "order_modified"
	case UpdateTradeExecuted:
		return "trade_executed"
	case UpdateLevelUpdated:
		return "level_updated"
	case UpdateBookReset:
		return "book_reset"
	}
	return fmt.Sprintf("update(%d)", uint8(k))
}

// RejectReason explains why a book mutation was refused.
type RejectReason uint8

const (
	RejectReasonNone RejectReason = iota
	RejectReasonInvalidID
	RejectReasonInvalidQuantity
	RejectReasonInvalidPrice
	RejectReasonInvalidSide
	RejectReasonDuplicateID
	RejectReasonOrderNotFound
	RejectReasonOrderPoolExhausted
	RejectReasonLevelPoolExhausted
)

var rejectReasonNames = [...]string{
	RejectReasonNone:               "none",
	RejectReasonInvalidID:          "invalid_id",
	RejectReasonInvalidQuantity:    "invalid_quantity",
	RejectReasonInvalidPrice:       "invalid_price",
	RejectReasonInvalidSide:        "invalid_side",
	RejectReasonDuplicateID:        "duplicate_order_id",
	RejectReasonOrderNotFound:      "order_not_found",
	RejectReasonOrderPoolExhausted: "order_pool_exhausted",
	RejectReasonLevelPoolExhausted: "level_pool_exhausted",
}

// RejectReasons lists every reason, RejectReasonNone excluded.
func RejectReasons() []RejectReason {
	reasons := make([]RejectReason, 0, len(rejectReasonNames)-1)
	for i := 1; i < len(rejectReasonNames); i++ {
		reasons = append(reasons, RejectReason(i))
	}
	return reasons
}

func (r RejectReason) String() string {
	if int(r) < len(rejectReasonNames) {
		return rejectReasonNames[r]
	}
	return fmt.Sprintf("reject(%d)", uint8(r))
}
