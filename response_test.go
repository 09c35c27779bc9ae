package hftcore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses(t *testing.T) {
	book, ring := createTestOrderBook(t, BookOptions{NotifyEvery: 1})
	view := NewAggregatedBook()

	require.True(t, book.AddOrder(bidOrder(1, "99.5", 10)))
	require.True(t, book.AddOrder(bidOrder(2, "99.5", 5)))
	require.True(t, book.AddOrder(bidOrder(3, "99.25", 7)))
	require.True(t, book.AddOrder(askOrder(4, "100.015625", 3)))
	view.OnUpdates(drainUpdates(ring))

	depth := view.DepthResponse(1)
	assert.Equal(t, book.Stats().Sequence, depth.Sequence)
	require.Len(t, depth.Bids, 1)
	assert.Equal(t, MustParsePrice("99.5"), MustParsePrice(depth.Bids[0].Price))
	assert.Equal(t, uint64(15), depth.Bids[0].Size)
	assert.Equal(t, uint32(2), depth.Bids[0].Count)
	require.Len(t, depth.Asks, 1)
	assert.Equal(t, Price32nd(100, 0, true), MustParsePrice(depth.Asks[0].Price))

	data, err := json.Marshal(depth)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"size":15`)

	stats := book.StatsResponse()
	assert.Equal(t, int64(2), stats.BidLevelCount)
	assert.Equal(t, int64(1), stats.AskLevelCount)
	assert.Equal(t, int64(4), stats.OrderCount)
	assert.Equal(t, uint64(4), stats.Operations)
	assert.Zero(t, stats.DroppedUpdates)

	empty := NewAggregatedBook().DepthResponse(5)
	assert.Empty(t, empty.Bids)
	assert.NotNil(t, empty.Asks)
}
