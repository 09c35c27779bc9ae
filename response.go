package hftcore

import (
	"github.com/0x5487/hftcore/protocol"
)

// DepthResponse renders up to maxLevels levels per side for external
// consumers. Sequence is the last update applied to the view.
func (ab *AggregatedBook) DepthResponse(maxLevels int) *protocol.GetDepthResponse {
	return &protocol.GetDepthResponse{
		Sequence: ab.SequenceID(),
		Asks:     toDepthItems(ab.MarketDepth(Ask, maxLevels)),
		Bids:     toDepthItems(ab.MarketDepth(Bid, maxLevels)),
	}
}

// StatsResponse renders the book counters for external consumers.
func (book *OrderBook) StatsResponse() *protocol.GetStatsResponse {
	stats := book.Stats()
	return &protocol.GetStatsResponse{
		AskLevelCount:  int64(stats.AskLevels),
		BidLevelCount:  int64(stats.BidLevels),
		OrderCount:     int64(stats.Orders),
		Operations:     stats.Operations,
		DroppedUpdates: stats.DroppedUpdates,
	}
}

func toDepthItems(levels []DepthLevel) []*protocol.DepthItem {
	items := make([]*protocol.DepthItem, 0, len(levels))
	for _, lvl := range levels {
		items = append(items, &protocol.DepthItem{
			Price: lvl.Price.String(),
			Size:  lvl.Quantity,
			Count: lvl.Orders,
		})
	}
	return items
}
