package hftcore

import (
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/rs/xid"
)

// AggregatedBook maintains a simplified view of the order book, tracking
// only price levels and their aggregated sizes (depth). It is rebuilt from
// the Update stream drained off the book's ring.
//
// Every update carries the absolute state of the level it touched, so
// applying updates in order converges on the book's depth. With sampled
// notifications the view is only as fresh as the last published update per
// level; with NotifyEvery == 1 and no drops it mirrors the book exactly.
type AggregatedBook struct {
	mu      sync.RWMutex
	seqID   uint64 // last applied sequence, for gap detection
	gaps    uint64
	applied uint64
	session xid.ID
	ask     *treemap.TreeMap[Price, DepthLevel]
	bid     *treemap.TreeMap[Price, DepthLevel]
}

// NewAggregatedBook creates a new AggregatedBook instance with empty ask and bid sides.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		ask: treemap.NewWithKeyCompare[Price, DepthLevel](func(a, b Price) bool {
			return a < b
		}),
		bid: treemap.NewWithKeyCompare[Price, DepthLevel](func(a, b Price) bool {
			return a > b
		}),
	}
}

// OnUpdates implements UpdateHandler.
func (ab *AggregatedBook) OnUpdates(updates []Update) {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	for i := range updates {
		ab.apply(&updates[i])
	}
}

// Apply applies a single update.
func (ab *AggregatedBook) Apply(u Update) {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	ab.apply(&u)
}

func (ab *AggregatedBook) apply(u *Update) {
	if u.Kind == BookReset {
		ab.ask.Clear()
		ab.bid.Clear()
		ab.session = u.Session
		ab.seqID = u.Sequence
		ab.applied++
		return
	}

	if ab.session.IsNil() {
		ab.session = u.Session
	}

	switch {
	case u.Sequence < ab.seqID:
		// older than what we already hold
		return
	case ab.seqID != 0 && u.Sequence > ab.seqID+1:
		ab.gaps += u.Sequence - ab.seqID - 1
	}
	ab.seqID = u.Sequence

	levels := ab.sideOf(u.Side)
	if levels == nil {
		return
	}
	if u.LevelOrders == 0 {
		levels.Del(u.Price)
	} else {
		levels.Set(u.Price, DepthLevel{
			Price:    u.Price,
			Quantity: u.LevelQuantity,
			Orders:   u.LevelOrders,
		})
	}
	ab.applied++
}

func (ab *AggregatedBook) sideOf(side Side) *treemap.TreeMap[Price, DepthLevel] {
	switch side {
	case Bid:
		return ab.bid
	case Ask:
		return ab.ask
	}
	return nil
}

// SequenceID returns the last processed sequence ID.
func (ab *AggregatedBook) SequenceID() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.seqID
}

// Gaps returns the number of sequence numbers skipped so far. Sampled
// notifications and dropped updates both show up here.
func (ab *AggregatedBook) Gaps() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.gaps
}

// Applied returns the number of updates that changed the view.
func (ab *AggregatedBook) Applied() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.applied
}

// Session returns the session of the last BookReset, or of the first update
// seen.
func (ab *AggregatedBook) Session() xid.ID {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.session
}

// Depth returns the level at price on side.
func (ab *AggregatedBook) Depth(side Side, price Price) (DepthLevel, bool) {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	levels := ab.sideOf(side)
	if levels == nil {
		return DepthLevel{}, false
	}
	return levels.Get(price)
}

// MarketDepth returns up to maxLevels levels of side, best first.
func (ab *AggregatedBook) MarketDepth(side Side, maxLevels int) []DepthLevel {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	levels := ab.sideOf(side)
	if levels == nil || maxLevels <= 0 {
		return nil
	}

	result := make([]DepthLevel, 0, min(maxLevels, levels.Len()))
	for it := levels.Iterator(); it.Valid() && len(result) < maxLevels; it.Next() {
		result = append(result, it.Value())
	}
	return result
}

// BestBid returns the best bid level, or false when there is none.
func (ab *AggregatedBook) BestBid() (DepthLevel, bool) {
	return ab.best(Bid)
}

// BestAsk returns the best ask level, or false when there is none.
func (ab *AggregatedBook) BestAsk() (DepthLevel, bool) {
	return ab.best(Ask)
}

func (ab *AggregatedBook) best(side Side) (DepthLevel, bool) {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	it := ab.sideOf(side).Iterator()
	if !it.Valid() {
		return DepthLevel{}, false
	}
	return it.Value(), true
}

// LevelCount returns the number of levels held for side.
func (ab *AggregatedBook) LevelCount(side Side) int {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	levels := ab.sideOf(side)
	if levels == nil {
		return 0
	}
	return levels.Len()
}
